package machine

import (
	"fmt"
	"io"
	"os"

	"github.com/mna/ember/lang/compiler"
)

const (
	stackMax  = 1 << 16
	framesMax = 64
)

// VM is one instance of the managed heap and the frame/operand-stack
// interpreter that executes bytecode on it. A VM is single-threaded and
// non-reentrant: exactly one bytecode instruction executes at a time, and no
// object is ever shared between two VMs.
type VM struct {
	// Stdout, Stderr and Stdin are the standard I/O abstractions used by the
	// print/input builtins. If nil, os.Stdout, os.Stderr and os.Stdin are used.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	stack      [stackMax]Value
	sp         int
	frames     [framesMax]callFrame
	frameCount int

	openUpvalues *Upvalue

	globals      *table
	strings      *stringInterner
	arrayMethods *table

	objects        heapObject
	bytesAllocated int
	nextGC         int
	gcGrowFactor   int
	grayStack      []heapObject

	// tempRoots pins objects that are reachable only from in-progress native
	// code (e.g. a BcFunction whose constant pool is still being resolved by
	// load), so a collection can never sweep them mid-construction.
	tempRoots []Value

	env envConfig
}

// New creates a VM ready to interpret programs. Environment variables
// EMBER_MAX_STEPS and EMBER_GC_GROW_FACTOR, if set, override their
// respective defaults; see env.go.
func New() *VM {
	vm := &VM{
		globals:      newTable(),
		strings:      newStringInterner(),
		arrayMethods: newTable(),
		nextGC:       1 << 20,
		gcGrowFactor: gcGrowFactor,
	}
	vm.env = loadEnvConfig()
	if vm.env.GCGrowFactor > 0 {
		vm.gcGrowFactor = vm.env.GCGrowFactor
	}
	vm.registerArrayMethods()
	return vm
}

func (vm *VM) stdout() io.Writer {
	if vm.Stdout != nil {
		return vm.Stdout
	}
	return os.Stdout
}

func (vm *VM) stderr() io.Writer {
	if vm.Stderr != nil {
		return vm.Stderr
	}
	return os.Stderr
}

func (vm *VM) stdin() io.Reader {
	if vm.Stdin != nil {
		return vm.Stdin
	}
	return os.Stdin
}

// push and pop manipulate the operand stack. An overflow on push is reported
// as a runtime error through the usual error-return path rather than going
// undetected.
func (vm *VM) push(v Value) error {
	if vm.sp >= stackMax {
		return fmt.Errorf("Stack overflow.")
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value { return vm.stack[vm.sp-1-distance] }

// load translates a compiled Funcode (and, recursively, every nested Funcode
// reachable through its constant pool) into a heap-resident BcFunction,
// interning string constants and boxing number constants as it goes.
func (vm *VM) load(fn *compiler.Funcode) *BcFunction {
	bc := &BcFunction{
		name:         fn.Name,
		arity:        fn.Arity,
		upvalueCount: fn.UpvalueCount,
		typ:          fn.Type,
		code:         fn.Code,
		lines:        fn.Lines,
		upvalues:     fn.Upvalues,
		constants:    make([]Value, len(fn.Constants)),
	}
	// Track bc before resolving its constants and pin it for the duration:
	// interning a string constant (or loading a nested function) can trigger a
	// collection, and until bc is reachable from the stack nothing else roots
	// the constants resolved so far.
	vm.track(bc, 64)
	vm.tempRoots = append(vm.tempRoots, bc)
	for i, c := range fn.Constants {
		switch c := c.(type) {
		case float64:
			bc.constants[i] = Number(c)
		case string:
			bc.constants[i] = vm.intern(c)
		case *compiler.Funcode:
			bc.constants[i] = vm.load(c)
		default:
			panic(fmt.Sprintf("unexpected constant %T", c))
		}
	}
	vm.tempRoots = vm.tempRoots[:len(vm.tempRoots)-1]
	return bc
}
