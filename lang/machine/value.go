// Package machine implements the stack-based virtual machine that executes
// compiled bytecode: the frame stack, the operand stack, the managed heap and
// its tracing collector, and the runtime value representation.
package machine

import "fmt"

// Value is any value the machine can hold on its operand stack, in a local
// slot, or in a table: nil, a bool, a number, or a reference to a heap
// object.
type Value interface {
	// String returns the value's textual representation, as used by print,
	// toString, and string concatenation.
	String() string
	// Type names the value's runtime type, as used in error messages.
	Type() string
}

// Nil is the value of the nil literal. There is exactly one Nil value.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }

// NilValue is the sole instance of Nil.
var NilValue Value = Nil{}

// Bool is a boolean value.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

// Number is a double-precision floating point value; the language has no
// separate integer type.
type Number float64

// String formats n with the smallest number of digits that round-trips
// back to n, matching fmt's shortest %g representation.
func (n Number) String() string { return fmt.Sprintf("%g", float64(n)) }
func (Number) Type() string     { return "number" }

// Truthy reports whether v is truthy: everything except nil and false is
// truthy, including 0 and the empty string.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Nil:
		return false
	case Bool:
		return bool(v)
	default:
		return true
	}
}

// Equal implements the language's == operator: tags and payloads must match;
// interned strings compare by identity, as do all other heap objects.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bb, ok := b.(Bool)
		return ok && a == bb
	case Number:
		bb, ok := b.(Number)
		return ok && a == bb
	default:
		return a == b
	}
}
