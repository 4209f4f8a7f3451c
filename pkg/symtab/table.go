// Package symtab implements the fixed-size, separately chained symbol table
// that backs every scope frame.
package symtab

import "sort"

// DefaultBuckets is the bucket count used when none is configured.
const DefaultBuckets = 101

type entry struct {
	key   string
	value int
	next  *entry
}

// Table maps variable names to integer values. Each bucket owns a singly
// linked chain of entries; a key lives in exactly one chain, exactly once.
type Table struct {
	buckets []*entry
	hash    HashFunc
	size    int
}

// Option configures a Table.
type Option func(*Table)

// WithBuckets sets the bucket count. Non-positive values keep the default.
func WithBuckets(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.buckets = make([]*entry, n)
		}
	}
}

// WithHash sets the bucket distribution function.
func WithHash(h HashFunc) Option {
	return func(t *Table) {
		if h != nil {
			t.hash = h
		}
	}
}

// New creates an empty table.
func New(opts ...Option) *Table {
	t := &Table{
		buckets: make([]*entry, DefaultBuckets),
		hash:    Polynomial,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Table) index(key string) int {
	return t.hash(key, len(t.buckets))
}

// Insert binds key to value, overwriting an existing binding in place.
func (t *Table) Insert(key string, value int) {
	i := t.index(key)
	var prev *entry
	for cur := t.buckets[i]; cur != nil; cur = cur.next {
		if cur.key == key {
			cur.value = value
			return
		}
		prev = cur
	}
	e := &entry{key: key, value: value}
	if prev == nil {
		t.buckets[i] = e
	} else {
		prev.next = e
	}
	t.size++
}

// Find returns the value bound to key and whether it was present.
func (t *Table) Find(key string) (int, bool) {
	for cur := t.buckets[t.index(key)]; cur != nil; cur = cur.next {
		if cur.key == key {
			return cur.value, true
		}
	}
	return 0, false
}

// Remove unlinks key from its chain. It reports whether anything was removed.
func (t *Table) Remove(key string) bool {
	for link := &t.buckets[t.index(key)]; *link != nil; link = &(*link).next {
		if (*link).key == key {
			victim := *link
			*link = victim.next
			victim.next = nil
			t.size--
			return true
		}
	}
	return false
}

// Len returns the number of bound keys.
func (t *Table) Len() int {
	return t.size
}

// Keys returns every bound key in sorted order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, t.size)
	for _, head := range t.buckets {
		for cur := head; cur != nil; cur = cur.next {
			keys = append(keys, cur.key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Clear releases every entry. The table stays usable afterwards.
func (t *Table) Clear() {
	for i, head := range t.buckets {
		for cur := head; cur != nil; {
			next := cur.next
			cur.next = nil
			cur = next
		}
		t.buckets[i] = nil
	}
	t.size = 0
}

// Stats describes how entries are spread across buckets.
type Stats struct {
	Buckets      int
	UsedBuckets  int
	Entries      int
	LongestChain int
}

// Stats reports bucket occupancy.
func (t *Table) Stats() Stats {
	s := Stats{Buckets: len(t.buckets), Entries: t.size}
	for _, head := range t.buckets {
		n := 0
		for cur := head; cur != nil; cur = cur.next {
			n++
		}
		if n > 0 {
			s.UsedBuckets++
		}
		if n > s.LongestChain {
			s.LongestChain = n
		}
	}
	return s
}
