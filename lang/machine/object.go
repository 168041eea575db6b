package machine

// objHeader is embedded in every heap-allocated value. It links the object
// into the VM's intrusive allocation list and carries the mark bit used by
// the collector; heapObject.header gives the collector uniform access to
// both regardless of the object's concrete kind.
type objHeader struct {
	marked bool
	next   heapObject
}

func (h *objHeader) header() *objHeader { return h }

// heapObject is implemented by every value kind managed by the collector:
// String, Array, BcFunction, Closure, Upvalue, CFunction, Struct, Instance,
// BoundMethod, Enum.
type heapObject interface {
	Value
	header() *objHeader
}

// track links obj at the head of the VM's allocation list and accounts its
// size toward bytesAllocated. If the new total would cross nextGC, a
// collection runs first, before obj is linked in, so obj is never swept by
// the very collection its own allocation triggered.
func (vm *VM) track(obj heapObject, size int) {
	if vm.bytesAllocated+size > vm.nextGC {
		vm.collectGarbage()
	}
	vm.bytesAllocated += size
	obj.header().next = vm.objects
	vm.objects = obj
}
