package ember_test

import (
	"testing"

	"github.com/mna/ember/internal/scripttest"
	"github.com/mna/ember/lang/machine"
)

// TestScenarios runs the end-to-end scenarios: each testdata/*.ember file
// compiled and executed on a fresh VM, asserting its captured stdout and
// final Status.
func TestScenarios(t *testing.T) {
	cases := []scripttest.Case{
		{File: "testdata/arithmetic.ember", WantStdout: "7\n", WantStatus: machine.StatusOK},
		{File: "testdata/concat.ember", WantStdout: "hi there\n", WantStatus: machine.StatusOK},
		{File: "testdata/closures.ember", WantStdout: "10\n20\n30\n", WantStatus: machine.StatusOK},
		{File: "testdata/structs.ember", WantStdout: "7\n", WantStatus: machine.StatusOK},
		{File: "testdata/enums.ember", WantStdout: "1\n", WantStatus: machine.StatusOK},
		{File: "testdata/arrays.ember", WantStdout: "10\n99\n", WantStatus: machine.StatusOK},
		{File: "testdata/arrays_out_of_bounds.ember", WantStdout: "", WantStatus: machine.StatusRuntimeErr},
		{File: "testdata/match.ember", WantStdout: "red\ncool\nunknown\n", WantStatus: machine.StatusOK},
		{File: "testdata/loops.ember", WantStdout: "25\n3\n5\n", WantStatus: machine.StatusOK},
		{File: "testdata/destructuring.ember", WantStdout: "1\n5\n20\n10\n", WantStatus: machine.StatusOK},
	}

	for _, c := range cases {
		c := c
		t.Run(c.File, func(t *testing.T) {
			scripttest.Run(t, c)
		})
	}
}
