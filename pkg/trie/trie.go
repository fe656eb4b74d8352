// Package trie implements an associative trie keyed by route path segments.
//
// Keys are slices of path segments as produced by Segments. The root path "/"
// is the single empty segment, so every absolute path shares it as a prefix:
//
//	Segments("/")           → [""]
//	Segments("/teams")      → ["", "teams"]
//	Segments("/teams/new/") → ["", "teams", "new"]
//
// Besides exact lookup the trie answers two prefix questions that layout
// resolution needs: the deepest occupied node along a key (Find) and the
// deepest occupied strict ancestor of a key (FindAncestor).
package trie

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateKey is returned by Insert when the key already holds a value.
var ErrDuplicateKey = errors.New("trie: duplicate key")

type node[V any] struct {
	children map[string]*node[V]
	value    V
	occupied bool
}

func newNode[V any]() *node[V] {
	return &node[V]{children: make(map[string]*node[V])}
}

// Trie maps segment keys to values. The zero value is not usable; call New.
type Trie[V any] struct {
	root *node[V]
	size int
}

// New creates an empty trie.
func New[V any]() *Trie[V] {
	return &Trie[V]{root: newNode[V]()}
}

// Len returns the number of stored values.
func (t *Trie[V]) Len() int {
	return t.size
}

// Insert stores value under key. It never overwrites: if the terminal node is
// already occupied the error wraps ErrDuplicateKey.
func (t *Trie[V]) Insert(key []string, value V) error {
	n := t.root
	for _, seg := range key {
		child, ok := n.children[seg]
		if !ok {
			child = newNode[V]()
			n.children[seg] = child
		}
		n = child
	}
	if n.occupied {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, Join(key))
	}
	n.value = value
	n.occupied = true
	t.size++
	return nil
}

// Find looks key up. When the key is fully matched and occupied that value is
// returned. Otherwise the walk stops where children run out (or at the end of
// the key) and the deepest occupied node seen on the way is returned, which
// makes Find a longest-prefix match. ok is false on a true miss.
func (t *Trie[V]) Find(key []string) (value V, ok bool) {
	n := t.root
	if n.occupied {
		value, ok = n.value, true
	}
	for _, seg := range key {
		child, found := n.children[seg]
		if !found {
			break
		}
		n = child
		if n.occupied {
			value, ok = n.value, true
		}
	}
	return value, ok
}

// FindAncestor returns the value of the deepest occupied strict ancestor of
// key. The node addressed by the full key is never considered, so a value
// looked up by its own key does not resolve to itself.
func (t *Trie[V]) FindAncestor(key []string) (value V, ok bool) {
	n := t.root
	for _, seg := range key {
		if n.occupied {
			value, ok = n.value, true
		}
		child, found := n.children[seg]
		if !found {
			break
		}
		n = child
	}
	return value, ok
}

// Get returns the value stored exactly at key.
func (t *Trie[V]) Get(key []string) (value V, ok bool) {
	n := t.root
	for _, seg := range key {
		child, found := n.children[seg]
		if !found {
			return value, false
		}
		n = child
	}
	return n.value, n.occupied
}

// Segments splits a route path into trie key segments. A trailing slash is
// ignored and "/" becomes the single empty segment.
func Segments(path string) []string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "/" {
		return []string{""}
	}
	return strings.Split(path, "/")
}

// Join is the inverse of Segments for absolute paths.
func Join(key []string) string {
	if len(key) == 1 && key[0] == "" {
		return "/"
	}
	return strings.Join(key, "/")
}
