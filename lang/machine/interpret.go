package machine

import (
	"fmt"
	"math"
	"strings"

	"github.com/mna/ember/lang/compiler"
)

// Status is the outcome of an Interpret call, following the embedding API's
// three-way result.
type Status int

const (
	StatusOK Status = iota
	StatusCompileErr
	StatusRuntimeErr
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusCompileErr:
		return "COMPILE_ERR"
	case StatusRuntimeErr:
		return "RUNTIME_ERR"
	}
	return "unknown status"
}

// Interpret compiles source and runs it to completion on this VM. A failed
// compile or a runtime error both preserve the VM's integrity: a later call
// to Interpret on valid input is guaranteed to succeed.
func (vm *VM) Interpret(source string) Status {
	fn, err := compiler.Compile(source)
	if err != nil {
		fmt.Fprintln(vm.stderr(), err)
		return StatusCompileErr
	}

	bc := vm.load(fn)
	// Root bc on the stack before allocating its Closure, so a GC triggered by
	// that allocation can't sweep it out from under us.
	if err := vm.push(bc); err != nil {
		vm.runtimeError(err)
		return StatusRuntimeErr
	}
	cl := newClosure(vm, bc)
	vm.pop()
	if err := vm.push(cl); err != nil {
		vm.runtimeError(err)
		return StatusRuntimeErr
	}

	if err := vm.call(cl, 0); err != nil {
		vm.runtimeError(err)
		return StatusRuntimeErr
	}
	if err := vm.run(); err != nil {
		vm.runtimeError(err)
		return StatusRuntimeErr
	}
	return StatusOK
}

func (vm *VM) readByte(frame *callFrame) byte {
	b := frame.closure.fn.code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *callFrame) uint16 {
	hi := vm.readByte(frame)
	lo := vm.readByte(frame)
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readString(frame *callFrame) *String {
	idx := vm.readByte(frame)
	return frame.closure.fn.constants[idx].(*String)
}

// run is the frame-stack interpreter's main loop: it reads one opcode from
// the top frame, advances its ip, and dispatches. A call or invoke that
// pushes or pops a frame refreshes the local frame variable; RETURN pops it.
func (vm *VM) run() error {
	frame := &vm.frames[vm.frameCount-1]
	steps := 0

	for {
		if vm.env.MaxSteps > 0 {
			steps++
			if steps > vm.env.MaxSteps {
				return fmt.Errorf("Exceeded maximum step count (%d).", vm.env.MaxSteps)
			}
		}

		op := compiler.Opcode(vm.readByte(frame))

		switch op {
		case compiler.NOP:

		case compiler.CONSTANT:
			idx := vm.readByte(frame)
			if err := vm.push(frame.closure.fn.constants[idx]); err != nil {
				return err
			}

		case compiler.NIL:
			if err := vm.push(NilValue); err != nil {
				return err
			}
		case compiler.TRUE:
			if err := vm.push(Bool(true)); err != nil {
				return err
			}
		case compiler.FALSE:
			if err := vm.push(Bool(false)); err != nil {
				return err
			}
		case compiler.POP:
			vm.pop()

		case compiler.ARRAY:
			// Allocate the (still empty) array and push it before the elements
			// are removed from the stack, so a GC triggered by the array's own
			// allocation still finds every element rooted on the operand stack.
			// Only once the array owns copies of every element does the stack
			// collapse down to just it.
			n := int(vm.readByte(frame))
			start := vm.sp - n
			arr := newArray(vm, make([]Value, 0, n))
			if err := vm.push(arr); err != nil {
				return err
			}
			arr.elems = append(arr.elems, vm.stack[start:start+n]...)
			vm.stack[start] = arr
			vm.sp = start + 1

		case compiler.GET_SUBSCRIPT:
			idxVal, ok := vm.peek(0).(Number)
			if !ok {
				return fmt.Errorf("Can only use subscript operator with numbers.")
			}
			arr, ok := vm.peek(1).(*Array)
			if !ok {
				return fmt.Errorf("Invalid target for subscript operator.")
			}
			idx := int(idxVal)
			if idx < 0 || idx >= len(arr.elems) {
				return fmt.Errorf("Index out of bounds. Array size is %d, but tried accessing %d", len(arr.elems), idx)
			}
			vm.pop() // index
			vm.pop() // array
			if err := vm.push(arr.elems[idx]); err != nil {
				return err
			}

		case compiler.SET_SUBSCRIPT:
			idxVal, ok := vm.peek(1).(Number)
			if !ok {
				return fmt.Errorf("Can only use subscript operator with numbers.")
			}
			arr, ok := vm.peek(2).(*Array)
			if !ok {
				return fmt.Errorf("Invalid target for subscript operator.")
			}
			idx := int(idxVal)
			if idx < 0 || idx >= len(arr.elems) {
				return fmt.Errorf("Index out of bounds. Array size is %d, but tried accessing %d", len(arr.elems), idx)
			}
			v := vm.pop()
			arr.elems[idx] = v
			vm.pop() // index
			vm.pop() // array
			if err := vm.push(v); err != nil {
				return err
			}

		case compiler.GET_GLOBAL:
			name := vm.readString(frame)
			v, ok := vm.globals.get(name)
			if !ok {
				return fmt.Errorf("Undefined variable '%s'.", name.s)
			}
			if err := vm.push(v); err != nil {
				return err
			}

		case compiler.SET_GLOBAL:
			name := vm.readString(frame)
			if _, ok := vm.globals.get(name); !ok {
				return fmt.Errorf("Undefined variable '%s'.", name.s)
			}
			vm.globals.set(name, vm.peek(0))

		case compiler.DEFINE_GLOBAL:
			name := vm.readString(frame)
			if _, ok := vm.globals.get(name); ok {
				return fmt.Errorf("Redefinition of '%s'.", name.s)
			}
			vm.globals.set(name, vm.peek(0))
			vm.pop()

		case compiler.GET_UPVALUE:
			slot := vm.readByte(frame)
			if err := vm.push(*frame.closure.upvalues[slot].location); err != nil {
				return err
			}
		case compiler.SET_UPVALUE:
			slot := vm.readByte(frame)
			*frame.closure.upvalues[slot].location = vm.peek(0)

		case compiler.GET_LOCAL:
			slot := vm.readByte(frame)
			if err := vm.push(vm.stack[frame.slotsBase+int(slot)]); err != nil {
				return err
			}
		case compiler.SET_LOCAL:
			slot := vm.readByte(frame)
			vm.stack[frame.slotsBase+int(slot)] = vm.peek(0)

		case compiler.INIT_PROPERTY:
			name := vm.readString(frame)
			if err := vm.setProperty(vm.peek(1), name, vm.peek(0)); err != nil {
				return err
			}
			vm.pop() // value, instance stays

		case compiler.GET_STATIC:
			name := vm.readString(frame)
			if err := vm.getStatic(vm.peek(0), name); err != nil {
				return err
			}

		case compiler.GET_PROPERTY, compiler.PUSH_PROPERTY:
			name := vm.readString(frame)
			if err := vm.getProperty(vm.peek(0), name, op == compiler.GET_PROPERTY); err != nil {
				return err
			}

		case compiler.SET_PROPERTY:
			name := vm.readString(frame)
			if err := vm.setProperty(vm.peek(1), name, vm.peek(0)); err != nil {
				return err
			}
			v := vm.pop()
			vm.pop() // instance
			if err := vm.push(v); err != nil {
				return err
			}

		case compiler.DESTRUCT_ARRAY:
			idx := int(vm.readByte(frame))
			arr, ok := vm.peek(0).(*Array)
			if !ok {
				return fmt.Errorf("Can only destruct arrays")
			}
			if idx < 0 || idx >= len(arr.elems) {
				return fmt.Errorf("Index out of bounds. Array size is %d, but tried accessing %d", len(arr.elems), idx)
			}
			if err := vm.push(arr.elems[idx]); err != nil {
				return err
			}

		case compiler.EQUAL:
			b, a := vm.pop(), vm.pop()
			if err := vm.push(Bool(Equal(a, b))); err != nil {
				return err
			}
		case compiler.NOT_EQUAL:
			b, a := vm.pop(), vm.pop()
			if err := vm.push(Bool(!Equal(a, b))); err != nil {
				return err
			}

		case compiler.CONCAT:
			b, bok := vm.peek(0).(*String)
			a, aok := vm.peek(1).(*String)
			if !aok || !bok {
				return fmt.Errorf("Operands must be strings.")
			}
			vm.pop()
			vm.pop()
			if err := vm.push(vm.intern(a.s + b.s)); err != nil {
				return err
			}

		case compiler.GREATER, compiler.GREATER_EQUAL, compiler.LESSER, compiler.LESSER_EQUAL,
			compiler.ADD, compiler.SUBTRACT, compiler.MULTIPLY, compiler.DIVIDE,
			compiler.MODULO, compiler.POW:
			if err := vm.binaryOp(op); err != nil {
				return err
			}

		case compiler.NEGATE:
			n, ok := vm.peek(0).(Number)
			if !ok {
				return fmt.Errorf("Operand must be a number.")
			}
			vm.pop()
			if err := vm.push(-n); err != nil {
				return err
			}

		case compiler.NOT:
			v := vm.pop()
			if err := vm.push(Bool(!Truthy(v))); err != nil {
				return err
			}

		case compiler.JUMP:
			offset := vm.readShort(frame)
			frame.ip += int(offset)

		case compiler.JUMP_IF_FALSE:
			offset := vm.readShort(frame)
			if !Truthy(vm.peek(0)) {
				frame.ip += int(offset)
			}

		case compiler.INEQUALITY_JUMP:
			offset := vm.readShort(frame)
			b := vm.pop()
			a := vm.peek(0)
			if !Equal(a, b) {
				frame.ip += int(offset)
			}

		case compiler.LOOP:
			offset := vm.readShort(frame)
			frame.ip -= int(offset)

		case compiler.CALL:
			argc := int(vm.readByte(frame))
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case compiler.INSTANCE:
			strct, ok := vm.peek(0).(*Struct)
			if !ok {
				return fmt.Errorf("Can only use struct initialization on structs.")
			}
			inst := newInstance(vm, strct)
			vm.pop()
			if err := vm.push(inst); err != nil {
				return err
			}

		case compiler.CLOSURE:
			idx := vm.readByte(frame)
			fn := frame.closure.fn.constants[idx].(*BcFunction)
			cl := newClosure(vm, fn)
			if err := vm.push(cl); err != nil {
				return err
			}
			for i := 0; i < fn.upvalueCount; i++ {
				isLocal := vm.readByte(frame)
				index := int(vm.readByte(frame))
				if isLocal == 1 {
					cl.upvalues[i] = vm.captureUpvalue(frame.slotsBase + index)
				} else {
					cl.upvalues[i] = frame.closure.upvalues[index]
				}
			}

		case compiler.CLOSE_UPVALUE:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case compiler.RETURN:
			result := vm.pop()
			vm.closeUpvalues(frame.slotsBase)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop() // the script/function value itself, slot 0
				return nil
			}
			vm.sp = frame.slotsBase
			if err := vm.push(result); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case compiler.ENUM:
			name := vm.readString(frame)
			if err := vm.push(newEnum(vm, name.s)); err != nil {
				return err
			}

		case compiler.ENUM_VALUE:
			enum := vm.peek(0).(*Enum)
			name := vm.readString(frame)
			ordinal := vm.readByte(frame)
			enum.values.set(name, Number(ordinal))

		case compiler.STRUCT:
			name := vm.readString(frame)
			if err := vm.push(newStruct(vm, name.s)); err != nil {
				return err
			}

		case compiler.METHOD, compiler.STATIC_METHOD:
			strct := vm.peek(1).(*Struct)
			name := vm.readString(frame)
			method := vm.pop()
			if op == compiler.METHOD {
				strct.methods.set(name, method)
			} else {
				strct.staticMethods.set(name, method)
			}

		case compiler.INVOKE:
			name := vm.readString(frame)
			argc := int(vm.readByte(frame))
			if err := vm.invoke(name, argc); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case compiler.STRUCT_FIELD:
			name := vm.readString(frame)
			value := vm.pop()
			strct := vm.peek(0).(*Struct)
			strct.defaultFields.set(name, value)

		case compiler.BREAK:
			return fmt.Errorf("invalid opcode: BREAK must never execute")

		default:
			return fmt.Errorf("invalid opcode: %s", op)
		}
	}
}

// binaryOp implements the numeric operators. Both operands must be numbers,
// and every operator computes in float64.
func (vm *VM) binaryOp(op compiler.Opcode) error {
	bv, bok := vm.peek(0).(Number)
	av, aok := vm.peek(1).(Number)
	if !aok || !bok {
		return fmt.Errorf("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	a, b := float64(av), float64(bv)

	switch op {
	case compiler.ADD:
		return vm.push(Number(a + b))
	case compiler.SUBTRACT:
		return vm.push(Number(a - b))
	case compiler.MULTIPLY:
		return vm.push(Number(a * b))
	case compiler.DIVIDE:
		return vm.push(Number(a / b))
	case compiler.MODULO:
		return vm.push(Number(math.Mod(a, b)))
	case compiler.POW:
		return vm.push(Number(math.Pow(a, b)))
	case compiler.GREATER:
		return vm.push(Bool(a > b))
	case compiler.GREATER_EQUAL:
		return vm.push(Bool(a >= b))
	case compiler.LESSER:
		return vm.push(Bool(a < b))
	case compiler.LESSER_EQUAL:
		return vm.push(Bool(a <= b))
	}
	return fmt.Errorf("unreachable binary opcode %s", op)
}

// runtimeError prints a traceback from the oldest frame to the newest,
// followed by cause's message, then resets the VM's stack so a subsequent
// Interpret call is unaffected.
func (vm *VM) runtimeError(cause error) {
	var sb strings.Builder
	for i := 0; i < vm.frameCount; i++ {
		fr := vm.frames[i]
		fn := fr.closure.fn
		line := 0
		if fr.ip-1 >= 0 && fr.ip-1 < len(fn.lines) {
			line = fn.lines[fr.ip-1]
		}
		name := "script"
		if fn.name != "" {
			name = fn.name
		}
		fmt.Fprintf(&sb, "[line #%d] in %s\n", line, name)
	}
	sb.WriteString(cause.Error())
	fmt.Fprintln(vm.stderr(), sb.String())
	vm.resetStack()
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}
