package machine

import "github.com/dolthub/swiss"

// Table is the one hash-table shape the language needs: keyed by an
// interned string's bytes, holding a Value. It backs the globals table,
// every instance's field table, and every class's method table; the
// Heap's string intern set uses the same swiss map type directly, keyed
// by bytes to *String, rather than a Table. The original's hand-rolled
// open-addressed table with tombstones and a 0.75 load factor is itself an
// open-addressing scheme; github.com/dolthub/swiss is a production
// open-addressed (SIMD swiss-table) map, so it stands in directly rather
// than reimplementing probing and tombstone bookkeeping by hand.
type Table struct {
	m *swiss.Map[string, Value]
}

// NewTable returns an empty Table with initial room for size entries.
func NewTable(size int) *Table {
	if size < 1 {
		size = 1
	}
	return &Table{m: swiss.NewMap[string, Value](uint32(size))}
}

// Get returns the value stored under key, and whether it was present.
func (t *Table) Get(key string) (Value, bool) {
	if t == nil {
		return nil, false
	}
	return t.m.Get(key)
}

// Set stores value under key, returning true if key is new to the table.
func (t *Table) Set(key string, value Value) bool {
	_, existed := t.m.Get(key)
	t.m.Put(key, value)
	return !existed
}

// Delete removes key. The swiss map handles its own tombstoning/compaction
// internally, so callers never need to reason about reuse of deleted slots.
func (t *Table) Delete(key string) bool {
	return t.m.Delete(key)
}

// Count returns the number of entries currently stored.
func (t *Table) Count() int { return t.m.Count() }

// AddAll copies every entry of src into t, implementing OP_INHERIT's
// method-table copy (subclass inherits every method the superclass has at
// the time INHERIT runs; methods the subclass defines afterward overwrite
// these entries).
func (t *Table) AddAll(src *Table) {
	src.m.Iter(func(k string, v Value) (stop bool) {
		t.m.Put(k, v)
		return false
	})
}

// Keys returns every key currently in the table, in unspecified order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, t.m.Count())
	t.m.Iter(func(k string, _ Value) (stop bool) {
		keys = append(keys, k)
		return false
	})
	return keys
}
