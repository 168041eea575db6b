package machine

import "fmt"

// captureUpvalue returns the open Upvalue for the stack slot at slotIndex,
// reusing an existing one if the slot was already captured by an earlier
// closure, inserting a new one into the sorted open-upvalue list otherwise.
func (vm *VM) captureUpvalue(slotIndex int) *Upvalue {
	var prev *Upvalue
	cur := vm.openUpvalues
	for cur != nil && cur.slot > slotIndex {
		prev = cur
		cur = cur.next
	}
	if cur != nil && cur.slot == slotIndex {
		return cur
	}

	created := newUpvalue(vm, &vm.stack[slotIndex], slotIndex)
	created.next = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above fromSlot, copying each
// one's stack value into its own storage before the frame that owns that
// slot is popped.
func (vm *VM) closeUpvalues(fromSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.slot >= fromSlot {
		uv := vm.openUpvalues
		uv.close()
		vm.openUpvalues = uv.next
	}
}

// callValue dispatches a CALL or INVOKE target by its heap kind: a Closure
// pushes a new frame, a BoundMethod substitutes its stored receiver into
// slot 0 before doing the same, and a CFunction is invoked directly. Any
// other kind is not callable.
func (vm *VM) callValue(callee Value, argc int) error {
	switch c := callee.(type) {
	case *BoundMethod:
		vm.stack[vm.sp-argc-1] = c.receiver
		switch m := c.method.(type) {
		case *Closure:
			return vm.call(m, argc)
		case *CFunction:
			return vm.callCFunction(m, argc)
		}
	case *Closure:
		return vm.call(c, argc)
	case *CFunction:
		return vm.callCFunction(c, argc)
	}
	return fmt.Errorf("Can only call functions.")
}

// call pushes a new frame for closure, checking arity and frame-stack depth.
func (vm *VM) call(closure *Closure, argc int) error {
	if argc != closure.fn.arity {
		return fmt.Errorf("Expected %d arguments, but got %d.", closure.fn.arity, argc)
	}
	if vm.frameCount == framesMax {
		return fmt.Errorf("Stack overflow.")
	}
	vm.frames[vm.frameCount] = callFrame{closure: closure, ip: 0, slotsBase: vm.sp - argc - 1}
	vm.frameCount++
	return nil
}

// callCFunction runs a native function in place: it reads the receiver and
// arguments straight off the operand stack, collapses the call's slots down
// to the single return value fn produces, exactly as a Closure call
// collapses to its RETURN value.
func (vm *VM) callCFunction(fn *CFunction, argc int) error {
	if fn.arity >= 0 && argc != fn.arity {
		return fmt.Errorf("Expected %d arguments, but got %d.", fn.arity, argc)
	}
	recv := vm.stack[vm.sp-argc-1]
	args := make([]Value, argc)
	copy(args, vm.stack[vm.sp-argc:vm.sp])

	result, err := fn.fn(vm, recv, args)
	if err != nil {
		return err
	}
	vm.sp -= argc + 1
	return vm.push(result)
}

// invoke fuses property lookup with call for INVOKE call sites: on an
// instance it prefers a field holding a callable value, falling back to the
// struct's methods; on an array it looks in the VM's array-methods table.
func (vm *VM) invoke(name *String, argc int) error {
	receiver := vm.peek(argc)
	switch r := receiver.(type) {
	case *Instance:
		if v, ok := r.fields.get(name); ok {
			vm.stack[vm.sp-argc-1] = v
			return vm.callValue(v, argc)
		}
		return vm.invokeFromStruct(r.strct, name, argc)
	case *Array:
		if v, ok := vm.arrayMethods.get(name); ok {
			vm.stack[vm.sp-argc-1] = receiver
			return vm.callValue(v, argc)
		}
		return fmt.Errorf("Array does not contain method '%s'.", name.s)
	default:
		return fmt.Errorf("Invalid target to call.")
	}
}

func (vm *VM) invokeFromStruct(strct *Struct, name *String, argc int) error {
	method, ok := strct.methods.get(name)
	if !ok {
		return fmt.Errorf("Undefined property '%s'.", name.s)
	}
	cl, ok := method.(*Closure)
	if !ok {
		return fmt.Errorf("Undefined property '%s'.", name.s)
	}
	return vm.call(cl, argc)
}

// bindMethod builds a BoundMethod pairing the current receiver (top of
// stack) with one of its struct's methods, replacing the receiver on the
// stack with the bound method.
func (vm *VM) bindMethod(strct *Struct, name *String) error {
	method, ok := strct.methods.get(name)
	if !ok {
		return fmt.Errorf("Undefined property '%s'.", name.s)
	}
	bound := newBoundMethod(vm, vm.peek(0), method)
	vm.pop()
	return vm.push(bound)
}

// getProperty implements GET_PROPERTY/PUSH_PROPERTY: a field access replaces
// (or, for PUSH_PROPERTY, sits above) the receiver; a method access binds a
// BoundMethod instead.
func (vm *VM) getProperty(obj Value, name *String, popReceiver bool) error {
	inst, ok := obj.(*Instance)
	if !ok {
		return fmt.Errorf("Invalid target for the dot operator.")
	}
	if v, ok := inst.fields.get(name); ok {
		if popReceiver {
			vm.pop()
		}
		return vm.push(v)
	}
	// bindMethod always pops the receiver, so PUSH_PROPERTY (popReceiver ==
	// false), which promises to leave the receiver on the stack underneath the
	// loaded value, can't resolve to a method: that shape is only reachable
	// through compound assignment on a dot target (rules.go's dot()), which is
	// nonsensical against a method anyway.
	if !popReceiver {
		return fmt.Errorf("Cannot use compound assignment on method '%s'.", name.s)
	}
	return vm.bindMethod(inst.strct, name)
}

// setProperty backs both SET_PROPERTY and INIT_PROPERTY: it may only
// overwrite a field that already exists on the instance (seeded at
// construction from the struct's declared defaults); it can never create a
// new property at runtime.
func (vm *VM) setProperty(obj Value, name *String, value Value) error {
	inst, ok := obj.(*Instance)
	if !ok {
		return fmt.Errorf("Can only use dot operator on instances.")
	}
	if _, exists := inst.fields.get(name); !exists {
		return fmt.Errorf("Cannot create new properties on instances at runtime.")
	}
	inst.fields.set(name, value)
	return nil
}

// getStatic implements GET_STATIC (the `::` operator): valid on a Struct
// (static methods) or an Enum (value lookup). It always consumes the target
// from the stack and pushes the resolved value.
func (vm *VM) getStatic(obj Value, name *String) error {
	switch o := obj.(type) {
	case *Struct:
		v, ok := o.staticMethods.get(name)
		if !ok {
			return fmt.Errorf("Static method '%s' does not exist.", name.s)
		}
		vm.pop()
		return vm.push(v)
	case *Enum:
		v, ok := o.values.get(name)
		if !ok {
			return fmt.Errorf("Enum value '%s' does not exist.", name.s)
		}
		vm.pop()
		return vm.push(v)
	}
	return fmt.Errorf("Invalid target for the static operator.")
}
