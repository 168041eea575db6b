package machine

// gcGrowFactor is the default multiplier applied to bytesAllocated, right
// after a collection, to compute the next collection threshold.
const gcGrowFactor = 2

// collectGarbage runs one full tracing mark-sweep pass: mark every object
// reachable from a VM root, blacken the gray worklist until it is empty,
// purge the (weak) string interner of now-dead strings, then sweep the
// intrusive heap list, freeing everything left unmarked.
func (vm *VM) collectGarbage() {
	vm.markRoots()
	vm.traceReferences()
	vm.removeDeadStrings()
	vm.sweep()
	vm.nextGC = vm.bytesAllocated * vm.gcGrowFactor
}

func (vm *VM) markRoots() {
	for i := 0; i < vm.sp; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for u := vm.openUpvalues; u != nil; u = u.next {
		vm.markObject(u)
	}
	vm.markTable(vm.globals)
	vm.markTable(vm.arrayMethods)
	for _, v := range vm.tempRoots {
		vm.markValue(v)
	}
}

func (vm *VM) markValue(v Value) {
	if obj, ok := v.(heapObject); ok {
		vm.markObject(obj)
	}
}

func (vm *VM) markObject(obj heapObject) {
	if obj == nil {
		return
	}
	h := obj.header()
	if h.marked {
		return
	}
	h.marked = true
	vm.grayStack = append(vm.grayStack, obj)
}

func (vm *VM) markTable(t *table) {
	if t == nil {
		return
	}
	t.each(func(k *String, v Value) bool {
		vm.markObject(k)
		vm.markValue(v)
		return true
	})
}

// traceReferences drains the gray worklist, blackening each object by
// marking every value it directly references.
func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		n := len(vm.grayStack) - 1
		obj := vm.grayStack[n]
		vm.grayStack = vm.grayStack[:n]
		vm.blacken(obj)
	}
}

func (vm *VM) blacken(obj heapObject) {
	switch o := obj.(type) {
	case *String:
		// leaf
	case *Array:
		for _, e := range o.elems {
			vm.markValue(e)
		}
	case *BcFunction:
		for _, c := range o.constants {
			vm.markValue(c)
		}
	case *Closure:
		vm.markObject(o.fn)
		// A closure is reachable mid-CLOSURE instruction, before every upvalue
		// slot is populated.
		for _, u := range o.upvalues {
			if u != nil {
				vm.markObject(u)
			}
		}
	case *Upvalue:
		vm.markValue(*o.location)
	case *CFunction:
		// leaf
	case *Struct:
		vm.markTable(o.defaultFields)
		vm.markTable(o.methods)
		vm.markTable(o.staticMethods)
	case *Instance:
		vm.markObject(o.strct)
		vm.markTable(o.fields)
	case *BoundMethod:
		vm.markValue(o.receiver)
		vm.markValue(o.method)
	case *Enum:
		vm.markTable(o.values)
	}
}

// sweep walks the intrusive allocation list, unlinking and discarding every
// object left unmarked, and clears the mark bit on every survivor so the
// next collection starts from a clean slate.
func (vm *VM) sweep() {
	var prev heapObject
	obj := vm.objects
	for obj != nil {
		h := obj.header()
		if h.marked {
			h.marked = false
			prev = obj
			obj = h.next
			continue
		}
		unreached := obj
		obj = h.next
		if prev != nil {
			prev.header().next = obj
		} else {
			vm.objects = obj
		}
		vm.bytesAllocated -= sizeOf(unreached)
	}
}

// sizeOf returns the same accounting size used when the object was tracked
// (for an Array, including any growth accounted by its push method), so sweep
// can decrement bytesAllocated symmetrically with track.
func sizeOf(obj heapObject) int {
	switch o := obj.(type) {
	case *String:
		return len(o.s) + 24
	case *Array:
		return 24 + cap(o.elems)*16
	case *BcFunction:
		return 64
	case *Closure:
		return 16 + len(o.upvalues)*8
	case *Upvalue:
		return 32
	case *CFunction:
		return 32
	case *Struct:
		return 64
	case *Instance:
		return 32
	case *BoundMethod:
		return 24
	case *Enum:
		return 32
	default:
		return 0
	}
}
