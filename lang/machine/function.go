package machine

import (
	"fmt"

	"github.com/mna/ember/lang/compiler"
)

// BcFunction is the runtime counterpart of a compiler.Funcode: its bytecode,
// its per-byte source-line map, and its own resolved constant pool (string
// and number constants interned/boxed into Values, nested function prototype
// constants translated into their own *BcFunction).
type BcFunction struct {
	objHeader
	name         string
	arity        int
	upvalueCount int
	typ          compiler.FuncType

	code      []byte
	lines     []int
	constants []Value
	upvalues  []compiler.UpvalueDesc
}

var _ heapObject = (*BcFunction)(nil)

func (f *BcFunction) String() string {
	if f.name == "" {
		return "<script>"
	}
	return fmt.Sprintf("<func %s>", f.name)
}
func (f *BcFunction) Type() string { return "function" }

// Closure pairs a BcFunction with the upvalues it captured from its
// enclosing scopes at the point the CLOSURE instruction ran.
type Closure struct {
	objHeader
	fn       *BcFunction
	upvalues []*Upvalue
}

var _ heapObject = (*Closure)(nil)

func newClosure(vm *VM, fn *BcFunction) *Closure {
	c := &Closure{fn: fn, upvalues: make([]*Upvalue, fn.upvalueCount)}
	vm.track(c, 16+fn.upvalueCount*8)
	return c
}

func (c *Closure) String() string { return c.fn.String() }
func (c *Closure) Type() string   { return "function" }

// Upvalue references a captured local variable: open while the stack slot it
// was captured from is still live (location points into the VM's operand
// stack), closed after the frame that owned the slot returns (location
// points at the upvalue's own copy). Go permits no ordering comparison on
// raw pointers, so slot additionally records the stack index location was
// captured from, which keeps the open-upvalue list sorted by descending
// stack index.
type Upvalue struct {
	objHeader
	location *Value
	closed   Value
	slot     int
	next     *Upvalue // open-upvalue list, sorted by descending stack index
}

var _ heapObject = (*Upvalue)(nil)

func newUpvalue(vm *VM, slot *Value, index int) *Upvalue {
	u := &Upvalue{location: slot, slot: index}
	vm.track(u, 32)
	return u
}

func (u *Upvalue) String() string { return "upvalue" }
func (u *Upvalue) Type() string   { return "upvalue" }

func (u *Upvalue) close() {
	u.closed = *u.location
	u.location = &u.closed
}

// CFunc is the signature of a native function exposed to the language. recv
// is slot 0 of the call (the callee value itself for a plain global
// function, or the receiver for an array/instance method); args holds the
// remaining call arguments. A CFunc reports failure through its error
// return rather than by long-jumping out of the VM.
type CFunc func(vm *VM, recv Value, args []Value) (Value, error)

// CFunction is a native function exposed to the language, implemented in Go.
// A negative arity means variadic (any argument count is accepted).
type CFunction struct {
	objHeader
	name  string
	arity int
	fn    CFunc
}

var _ heapObject = (*CFunction)(nil)

func (f *CFunction) String() string { return fmt.Sprintf("<native %s>", f.name) }
func (f *CFunction) Type() string   { return "function" }
