// Package tree builds recursive parent/child trees from flat collections.
package tree

// Node is a tree node carrying a mapped value.
type Node[V any] struct {
	Value    V
	Children []Node[V]
}

// GroupBy groups items by key. Items keep their input order within a group.
func GroupBy[T any, K comparable](items []T, key func(T) K) map[K][]T {
	result := make(map[K][]T)
	for _, item := range items {
		k := key(item)
		result[k] = append(result[k], item)
	}
	return result
}

// Build groups items by parent id and returns the forest rooted at items
// whose parentID reports no parent. Children appear in input order.
//
// mapValue receives each item together with its parent (nil for roots).
// Every item is emitted at most once; items that are not reachable from a
// root (for example members of a parent cycle) are left out.
func Build[T, V any](
	items []T,
	id func(T) string,
	parentID func(T) (string, bool),
	mapValue func(item T, parent *T) V,
) []Node[V] {
	type key struct {
		id   string
		root bool
	}

	grouped := GroupBy(items, func(item T) key {
		pid, ok := parentID(item)
		if !ok {
			return key{root: true}
		}
		return key{id: pid}
	})

	visited := make(map[string]bool, len(items))

	var childrenOf func(parent *T) []Node[V]
	childrenOf = func(parent *T) []Node[V] {
		k := key{root: true}
		if parent != nil {
			k = key{id: id(*parent)}
		}
		group := grouped[k]
		if len(group) == 0 {
			return nil
		}
		nodes := make([]Node[V], 0, len(group))
		for i := range group {
			item := &group[i]
			itemID := id(*item)
			if visited[itemID] {
				continue
			}
			visited[itemID] = true
			nodes = append(nodes, Node[V]{
				Value:    mapValue(*item, parent),
				Children: childrenOf(item),
			})
		}
		return nodes
	}

	return childrenOf(nil)
}

// Walk visits nodes depth-first in pre-order. depth is 0 for roots.
func Walk[V any](nodes []Node[V], fn func(n *Node[V], depth int)) {
	var walk func(nodes []Node[V], depth int)
	walk = func(nodes []Node[V], depth int) {
		for i := range nodes {
			fn(&nodes[i], depth)
			walk(nodes[i].Children, depth+1)
		}
	}
	walk(nodes, 0)
}
