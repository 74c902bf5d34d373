// Package keymap contains a string-keyed map whose key equivalence is given by
// an explicit normalizer function instead of byte equality. The default
// normalizer folds case, so "Name", "NAME" and "name" are the same key.
//
// Original keys are kept, so iteration returns the spelling used on the first
// insertion, in insertion order.
package keymap

import (
	"iter"
	"slices"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// Normalizer maps a key to its canonical form. Two keys are equivalent when
// their canonical forms are equal.
type Normalizer func(string) string

// Map represents a map[string]T with normalized keys. It is not safe for
// concurrent use.
type Map[T any] struct {
	normalize Normalizer
	index     map[string]int
	entries   []kv[T]
}

// New returns a new instance of [Map] normalizing keys with [domain.Fold].
func New[T any]() *Map[T] {
	return NewWithNormalizer[T](domain.Fold)
}

// NewWithNormalizer returns a new instance of [Map] using the given
// [Normalizer]. A nil normalizer compares keys byte by byte.
func NewWithNormalizer[T any](n Normalizer) *Map[T] {
	if n == nil {
		n = func(s string) string { return s }
	}
	return &Map[T]{
		normalize: n,
		index:     make(map[string]int),
	}
}

// Set adds or replaces the given key. When replacing, the original key
// spelling is kept.
func (m *Map[T]) Set(key string, value T) {
	k := m.normalize(key)
	if n, ok := m.index[k]; ok {
		m.entries[n].value = value
		return
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, kv[T]{key: key, value: value})
}

// Get returns the value for the given key with a bool to indicate whether it
// exists in the map or not.
func (m *Map[T]) Get(key string) (T, bool) {
	n, ok := m.index[m.normalize(key)]
	if !ok {
		return *new(T), false
	}
	return m.entries[n].value, true
}

// Has reports whether an equivalent key exists.
func (m *Map[T]) Has(key string) bool {
	_, ok := m.index[m.normalize(key)]
	return ok
}

// Delete removes a given key from the map, if it exists.
func (m *Map[T]) Delete(key string) {
	k := m.normalize(key)
	n, ok := m.index[k]
	if !ok {
		return
	}
	delete(m.index, k)
	m.entries = slices.Delete(m.entries, n, n+1)
	for i := n; i < len(m.entries); i++ {
		m.index[m.normalize(m.entries[i].key)] = i
	}
}

// Len returns the amount of stored values.
func (m *Map[T]) Len() int {
	return len(m.entries)
}

// Keys returns the stored keys, as first inserted, in insertion order.
func (m *Map[T]) Keys() []string {
	keys := make([]string, len(m.entries))
	for n, e := range m.entries {
		keys[n] = e.key
	}
	return keys
}

// Iter returns an [iter.Seq2] over the key+value pairs in insertion order.
func (m *Map[T]) Iter() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		for _, e := range m.entries {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// Clone returns a shallow copy of the map. Values are copied by assignment.
func (m *Map[T]) Clone() *Map[T] {
	c := &Map[T]{
		normalize: m.normalize,
		index:     make(map[string]int, len(m.index)),
		entries:   slices.Clone(m.entries),
	}
	for k, v := range m.index {
		c.index[k] = v
	}
	return c
}

type kv[T any] struct {
	key   string
	value T
}
