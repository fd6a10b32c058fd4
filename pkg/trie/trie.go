// Package trie implements an ordered associative container keyed by sequences
// of elements, with efficient prefix enumeration.
//
// The container is a ternary search tree: a binary search tree of tries. Each
// node holds one key element and three children. The lo and hi children hold
// siblings that compare less or greater than the node's element; the eq child
// holds the continuation of keys that share the node's element.
//
// Removal never restructures the tree. It only clears the payload of the
// terminal node, so the node stays reachable for traversals that are already
// under way.
//
// A Trie is not safe for concurrent use. Callers that share one must provide
// their own locking.
package trie

import (
	"cmp"
	"errors"
	"iter"
	"slices"
	"unicode"
)

// Errors returned by Trie methods.
var (
	ErrEmptyKey     = errors.New("empty key")
	ErrDuplicateKey = errors.New("an element with the same key already exists")
)

// Trie is an ordered map from []E to V.
type Trie[E, V any] struct {
	compare func(a, b E) int
	root    *node[E, V]
	n       int
}

type node[E, V any] struct {
	elem       E
	lo, eq, hi *node[E, V]

	hasValue bool
	key      []E
	value    V
}

// New returns an empty Trie ordering elements by their natural order.
func New[E cmp.Ordered, V any]() *Trie[E, V] {
	return NewFunc[E, V](cmp.Compare[E])
}

// NewFunc returns an empty Trie ordering elements with the given comparison
// function, which must return a negative number when a < b, a positive number
// when a > b and zero when a and b are equivalent.
func NewFunc[E, V any](compare func(a, b E) int) *Trie[E, V] {
	return &Trie[E, V]{compare: compare}
}

// CompareFold compares two runes ignoring case.
func CompareFold(a, b rune) int {
	return cmp.Compare(unicode.ToLower(a), unicode.ToLower(b))
}

// Len returns the number of keys in the Trie.
func (t *Trie[E, V]) Len() int { return t.n }

// Add inserts a new key. It fails with ErrDuplicateKey if the key is already
// present and ErrEmptyKey if the key is empty.
func (t *Trie[E, V]) Add(key []E, value V) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	n := t.insert(key)
	if n.hasValue {
		return ErrDuplicateKey
	}
	n.fill(key, value)
	t.n++
	return nil
}

// Set inserts or replaces the value stored under key.
func (t *Trie[E, V]) Set(key []E, value V) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	n := t.insert(key)
	if !n.hasValue {
		t.n++
	}
	n.fill(key, value)
	return nil
}

// Get returns the value stored under key and whether it exists.
func (t *Trie[E, V]) Get(key []E) (V, bool) {
	n := t.find(key)
	if n == nil || !n.hasValue {
		var zero V
		return zero, false
	}
	return n.value, true
}

// Contains returns whether key is present.
func (t *Trie[E, V]) Contains(key []E) bool {
	n := t.find(key)
	return n != nil && n.hasValue
}

// Remove deletes key and returns whether it was present.
func (t *Trie[E, V]) Remove(key []E) bool {
	n := t.find(key)
	if n == nil || !n.hasValue {
		return false
	}
	var zero V
	n.hasValue, n.key, n.value = false, nil, zero
	t.n--
	return true
}

// All enumerates all entries in key order. A key always comes before the
// longer keys it is a prefix of. The yielded key slices must not be modified.
func (t *Trie[E, V]) All() iter.Seq2[[]E, V] {
	return func(yield func([]E, V) bool) {
		t.root.walk(yield)
	}
}

// WithPrefix enumerates, in key order, all entries whose key starts with
// prefix. It visits only the subtree under prefix, so it runs in time
// proportional to the length of prefix plus the size of the result. An empty
// prefix enumerates everything.
func (t *Trie[E, V]) WithPrefix(prefix []E) iter.Seq2[[]E, V] {
	return func(yield func([]E, V) bool) {
		if len(prefix) == 0 {
			t.root.walk(yield)
			return
		}
		n := t.find(prefix)
		if n == nil {
			return
		}
		if n.hasValue && !yield(n.key, n.value) {
			return
		}
		n.eq.walk(yield)
	}
}

func (n *node[E, V]) fill(key []E, value V) {
	n.hasValue = true
	n.key = slices.Clone(key)
	n.value = value
}

// Walks the subtree rooted at n: lo, n itself, eq, then hi.
func (n *node[E, V]) walk(yield func([]E, V) bool) bool {
	for n != nil {
		if !n.lo.walk(yield) {
			return false
		}
		if n.hasValue && !yield(n.key, n.value) {
			return false
		}
		if !n.eq.walk(yield) {
			return false
		}
		n = n.hi
	}
	return true
}

// Returns the node reached by consuming key, or nil if there is none.
func (t *Trie[E, V]) find(key []E) *node[E, V] {
	if len(key) == 0 {
		return nil
	}
	n, i := t.root, 0
	for n != nil {
		switch c := t.compare(key[i], n.elem); {
		case c < 0:
			n = n.lo
		case c > 0:
			n = n.hi
		default:
			i++
			if i == len(key) {
				return n
			}
			n = n.eq
		}
	}
	return nil
}

// Returns the node reached by consuming key, creating nodes along the way.
func (t *Trie[E, V]) insert(key []E) *node[E, V] {
	p, i := &t.root, 0
	for {
		if *p == nil {
			*p = &node[E, V]{elem: key[i]}
		}
		n := *p
		switch c := t.compare(key[i], n.elem); {
		case c < 0:
			p = &n.lo
		case c > 0:
			p = &n.hi
		default:
			i++
			if i == len(key) {
				return n
			}
			p = &n.eq
		}
	}
}
