// Package scripttest runs .ember source files from a testdata directory and
// asserts on their captured stdout and exit status.
package scripttest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/ember/internal/corelib"
	"github.com/mna/ember/lang/machine"
)

// Case is one script to run and the output it is expected to produce.
type Case struct {
	// File is the path to a .ember source file, typically under testdata/.
	File string
	// WantStdout is the exact expected stdout content.
	WantStdout string
	// WantStatus is the expected machine.Status the script should finish with.
	WantStatus machine.Status
}

// Run compiles and executes c.File on a freshly created VM (with the core
// globals registered, as the CLI's run command does) and asserts its
// captured stdout and final Status match c's expectations.
func Run(t *testing.T, c Case) {
	t.Helper()

	src, err := os.ReadFile(c.File)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	vm := machine.New()
	vm.Stdout = &stdout
	vm.Stderr = &stderr
	vm.RegisterGlobalFunctions(corelib.Funcs())

	status := vm.Interpret(string(src))
	require.Equalf(t, c.WantStatus, status, "stderr: %s", stderr.String())
	require.Equal(t, c.WantStdout, stdout.String())
}

// Glob returns every file matching pattern (e.g. filepath.Join(dir,
// "*.ember")), sorted, failing the test if the glob itself errors.
func Glob(t *testing.T, pattern string) []string {
	t.Helper()
	matches, err := filepath.Glob(pattern)
	require.NoError(t, err)
	return matches
}
