package machine

import "fmt"

// registerArrayMethods populates the VM's array-methods table, the table
// INVOKE consults when its receiver is an *Array.
func (vm *VM) registerArrayMethods() {
	register := func(name string, arity int, fn CFunc) {
		key := vm.intern(name)
		cfn := &CFunction{name: name, arity: arity, fn: fn}
		vm.track(cfn, 32)
		vm.arrayMethods.set(key, cfn)
	}

	register("len", 0, func(vm *VM, recv Value, args []Value) (Value, error) {
		arr := recv.(*Array)
		return Number(len(arr.elems)), nil
	})

	register("push", 1, func(vm *VM, recv Value, args []Value) (Value, error) {
		arr := recv.(*Array)
		oldCap := cap(arr.elems)
		arr.elems = append(arr.elems, args[0])
		// account any capacity growth, since sizeOf reads the current capacity
		vm.bytesAllocated += (cap(arr.elems) - oldCap) * 16
		return recv, nil
	})

	register("pop", 0, func(vm *VM, recv Value, args []Value) (Value, error) {
		arr := recv.(*Array)
		if len(arr.elems) == 0 {
			return nil, fmt.Errorf("Cannot pop from an empty array.")
		}
		last := arr.elems[len(arr.elems)-1]
		arr.elems = arr.elems[:len(arr.elems)-1]
		return last, nil
	})

	register("contains", 1, func(vm *VM, recv Value, args []Value) (Value, error) {
		arr := recv.(*Array)
		for _, e := range arr.elems {
			if Equal(e, args[0]) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	})
}
