package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/ember/lang/compiler"
)

func TestCompileValidProgram(t *testing.T) {
	fn, err := compiler.Compile(`var x = 1 + 2; print(x);`)
	require.NoError(t, err)
	require.NotNil(t, fn)
	assert.NotEmpty(t, fn.Code)
	assert.Equal(t, len(fn.Code), len(fn.Lines))
}

func TestCompileErrorReportsLineAndLocation(t *testing.T) {
	_, err := compiler.Compile("var x = ;")
	require.Error(t, err)
	assert.Equal(t, "[line 1] Error at ';': Expect expression.", err.Error())
}

func TestCompileErrorRecoverySynchronizesAtStatementBoundary(t *testing.T) {
	// two independent errors on two separate lines: both should be reported,
	// not just the first, confirming panic-mode recovery resumes parsing.
	_, err := compiler.Compile("var x = ;\nvar y = ;\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "and 1 more errors")
}

func TestEnumLocalDeclarationLeavesValueInSlot(t *testing.T) {
	// regression test for the enumDeclaration POP bug: a locally-scoped enum
	// must not have its value popped out from under its local slot.
	fn, err := compiler.Compile(`
func f() {
	enum Color { Red, Green }
	return Color::Green;
}
`)
	require.NoError(t, err)
	require.NotNil(t, fn)
}

func TestSelfInStaticMethodIsCompileError(t *testing.T) {
	_, err := compiler.Compile(`
struct S {
	static func s() { return self; }
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't use 'self' outside of a method.")
}

func TestSelfAtTopLevelIsCompileError(t *testing.T) {
	_, err := compiler.Compile(`print(self);`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't use 'self' outside of a method.")
}

func TestBreakOutsideLoopIsCompileError(t *testing.T) {
	_, err := compiler.Compile(`break;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "break")
}

func TestTooManyEnumValuesIsCompileError(t *testing.T) {
	var sb string
	sb = "enum E { "
	for i := 0; i < 300; i++ {
		if i > 0 {
			sb += ", "
		}
		sb += "V" + itoa(i)
	}
	sb += " }"
	_, err := compiler.Compile(sb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Too many values in enum.")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
