package machine

import (
	"hash/fnv"

	"github.com/dolthub/swiss"
)

// String is an interned string value: two Strings with identical bytes are
// always the same object, so equality of strings reduces to pointer
// equality.
type String struct {
	objHeader
	s    string
	hash uint64
}

var _ heapObject = (*String)(nil)

func (s *String) String() string { return s.s }
func (s *String) Type() string   { return "string" }

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// stringInterner deduplicates String objects by content. It is a weak table:
// it does not, by itself, keep its Strings alive. The collector sweeps dead
// entries out of it after marking but before sweeping the heap, so that a
// String with no other reference is free to be collected.
type stringInterner struct {
	m *swiss.Map[string, *String]
}

func newStringInterner() *stringInterner {
	return &stringInterner{m: swiss.NewMap[string, *String](64)}
}

// intern returns the unique String for s, allocating and tracking a new one
// on the VM heap if this is the first time s has been seen.
func (vm *VM) intern(s string) *String {
	if existing, ok := vm.strings.m.Get(s); ok {
		return existing
	}
	str := &String{s: s, hash: hashString(s)}
	vm.track(str, len(s)+24)
	vm.strings.m.Put(s, str)
	return str
}

// removeDeadStrings purges interner entries whose String was not marked by
// the current collection, the weak-table step of the GC.
func (vm *VM) removeDeadStrings() {
	var dead []string
	vm.strings.m.Iter(func(k string, v *String) bool {
		if !v.marked {
			dead = append(dead, k)
		}
		return false
	})
	for _, k := range dead {
		vm.strings.m.Delete(k)
	}
}
