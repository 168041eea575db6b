package compiler

// FuncType distinguishes the kind of function being compiled, since instance
// methods bind `self` differently than static methods, plain functions and
// the top-level script.
type FuncType uint8

const (
	FuncScript FuncType = iota
	FuncFunction
	FuncMethod
	FuncStaticMethod
)

// UpvalueDesc describes how a Closure should populate one of its upvalue
// slots at the CLOSURE instruction: captured directly from a local slot of
// the enclosing frame, or forwarded from one of the enclosing closure's own
// upvalues.
type UpvalueDesc struct {
	Index   uint8
	IsLocal bool
}

// A Funcode is the compiled code of one function (or the top-level script):
// its bytecode, per-byte source line map, and its own constant pool. Elements
// of Constants are float64, string, or *Funcode (a nested function
// prototype, wrapped into a runtime closure by the CLOSURE instruction).
type Funcode struct {
	Name         string
	Arity        int
	UpvalueCount int
	Type         FuncType

	Code      []byte
	Lines     []int
	Constants []interface{}
	Upvalues  []UpvalueDesc
}

func (fn *Funcode) String() string {
	if fn.Name == "" {
		return "<script>"
	}
	return "<func " + fn.Name + ">"
}
