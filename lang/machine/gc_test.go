package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringInterningIdentity(t *testing.T) {
	vm := New()
	a := vm.intern("hello")
	b := vm.intern("hello")
	assert.True(t, a == b, "two interns of the same content must be the same object")

	c := vm.intern("world")
	assert.False(t, a == c)
}

func TestGCDoesNotCollectReachableObjects(t *testing.T) {
	vm := New()
	vm.nextGC = 0       // force a collection on every allocation
	vm.gcGrowFactor = 0 // keeps nextGC at 0 after each collection

	if err := vm.push(vm.intern("kept")); err != nil {
		t.Fatal(err)
	}
	arr := newArray(vm, []Value{Number(1), Number(2)})
	if err := vm.push(arr); err != nil {
		t.Fatal(err)
	}

	vm.collectGarbage()

	require.Equal(t, 2, vm.sp)
	s, ok := vm.stack[0].(*String)
	require.True(t, ok)
	assert.Equal(t, "kept", s.s)
	assert.False(t, s.marked, "sweep must clear the mark bit on survivors")

	a, ok := vm.stack[1].(*Array)
	require.True(t, ok)
	assert.Equal(t, 2, len(a.elems))
}

func TestGCRemovesDeadStringsFromInterner(t *testing.T) {
	vm := New()
	vm.intern("orphan")
	_, ok := vm.strings.m.Get("orphan")
	require.True(t, ok)

	vm.collectGarbage() // nothing roots "orphan": the stack and globals are empty

	_, ok = vm.strings.m.Get("orphan")
	assert.False(t, ok, "weak interner entries for unreachable strings must be purged")
}

func TestArrayLiteralElementSurvivesGCDuringOwnAllocation(t *testing.T) {
	// Regression test: the ARRAY opcode must root its elements on the operand
	// stack for the whole span of its own allocation, so a GC triggered by
	// allocating the array itself can't sweep an element that isn't yet
	// referenced from anywhere else.
	vm := New()
	vm.RegisterGlobalFunctions([]FuncInfo{
		{Name: "mk", Arity: 0, Fn: func(vm *VM, recv Value, args []Value) (Value, error) {
			return vm.InternString("fresh"), nil
		}},
	})
	vm.nextGC = 0       // force a collection on every allocation, including the array's own
	vm.gcGrowFactor = 0 // keeps nextGC at 0 after each collection

	status := vm.Interpret(`var a = [mk()];`)
	require.Equal(t, StatusOK, status)

	v, ok := vm.globals.get(vm.intern("a"))
	require.True(t, ok)
	arr, ok := v.(*Array)
	require.True(t, ok)
	require.Len(t, arr.elems, 1)

	elem, ok := arr.elems[0].(*String)
	require.True(t, ok)
	assert.Same(t, elem, vm.intern("fresh"),
		"the array's element must stay the unique interned String, not be swept mid-allocation and re-allocated on a later intern")
}

func TestBytesAllocatedTracksLiveSize(t *testing.T) {
	vm := New()
	before := vm.bytesAllocated
	vm.intern("abcdefgh")
	assert.Equal(t, before+8+24, vm.bytesAllocated)

	vm.collectGarbage() // nothing rooted, the string is swept
	assert.Equal(t, before, vm.bytesAllocated)
}
