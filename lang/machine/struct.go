package machine

import "fmt"

// Struct is a user-defined type: a name, its declared fields with their
// default values, its instance methods, and its static methods. Instances
// are created from a Struct with a `Name { field = expr, ... }` literal and
// can never grow new fields at runtime.
type Struct struct {
	objHeader
	name          string
	defaultFields *table
	methods       *table
	staticMethods *table
}

var _ heapObject = (*Struct)(nil)

func newStruct(vm *VM, name string) *Struct {
	s := &Struct{
		name:          name,
		defaultFields: newTable(),
		methods:       newTable(),
		staticMethods: newTable(),
	}
	vm.track(s, 64)
	return s
}

func (s *Struct) String() string { return fmt.Sprintf("<struct %s>", s.name) }
func (s *Struct) Type() string   { return "struct" }

// Instance is a live value of a Struct: its own fields table, seeded from
// the struct's defaultFields when the instance was allocated.
type Instance struct {
	objHeader
	strct  *Struct
	fields *table
}

var _ heapObject = (*Instance)(nil)

func newInstance(vm *VM, strct *Struct) *Instance {
	inst := &Instance{strct: strct, fields: newTable()}
	inst.fields.copyFrom(strct.defaultFields)
	vm.track(inst, 32)
	return inst
}

func (inst *Instance) String() string { return fmt.Sprintf("<struct %s>", inst.strct.name) }
func (inst *Instance) Type() string   { return "instance" }

// BoundMethod pairs a receiver with one of its struct's method closures. It
// is created on demand at property access (p.sum without a call still yields
// a BoundMethod); calling it substitutes receiver into the closure's slot 0.
type BoundMethod struct {
	objHeader
	receiver Value
	method   Value // *Closure or *CFunction
}

var _ heapObject = (*BoundMethod)(nil)

func newBoundMethod(vm *VM, receiver, method Value) *BoundMethod {
	bm := &BoundMethod{receiver: receiver, method: method}
	vm.track(bm, 24)
	return bm
}

func (bm *BoundMethod) String() string { return bm.method.String() }
func (bm *BoundMethod) Type() string   { return "function" }

// Enum is a user-defined enumeration: a name and a table mapping each
// value's name to its ordinal Number.
type Enum struct {
	objHeader
	name   string
	values *table
}

var _ heapObject = (*Enum)(nil)

func newEnum(vm *VM, name string) *Enum {
	e := &Enum{name: name, values: newTable()}
	vm.track(e, 32)
	return e
}

func (e *Enum) String() string { return fmt.Sprintf("<enum %s>", e.name) }
func (e *Enum) Type() string   { return "enum" }
