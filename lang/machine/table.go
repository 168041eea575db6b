package machine

import "github.com/dolthub/swiss"

// table is a hash map from interned strings to values, used for globals,
// struct fields and methods, instance fields, and enum values. It is backed
// by an open-addressed swiss table.
type table struct {
	m *swiss.Map[*String, Value]
}

func newTable() *table {
	return &table{m: swiss.NewMap[*String, Value](8)}
}

func (t *table) get(k *String) (Value, bool) { return t.m.Get(k) }

func (t *table) set(k *String, v Value) { t.m.Put(k, v) }

func (t *table) delete(k *String) bool { return t.m.Delete(k) }

func (t *table) count() int { return int(t.m.Count()) }

// each calls fn for every entry. fn returning false stops the iteration.
func (t *table) each(fn func(k *String, v Value) bool) {
	t.m.Iter(func(k *String, v Value) bool { return !fn(k, v) })
}

// copyFrom overwrites t's entries with a copy of every entry in src, used to
// seed an Instance's fields from its Struct's defaultFields.
func (t *table) copyFrom(src *table) {
	src.each(func(k *String, v Value) bool {
		t.set(k, v)
		return true
	})
}
