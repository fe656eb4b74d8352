package router

import (
	"sort"

	"github.com/vango-dev/pagefiles/pkg/pagefile"
	"github.com/vango-dev/pagefiles/pkg/tree"
	"github.com/vango-dev/pagefiles/pkg/trie"
)

// RouteNode is one route in the generated tree.
type RouteNode struct {
	// Pagefile is the file rendered by this route.
	Pagefile *pagefile.Pagefile

	// Path is the route path. Empty when HasPath is false.
	Path    string
	HasPath bool

	// Index marks a page folded into its parent layout as the index route.
	// Index routes never carry a path.
	Index bool

	// Children are the routes nested in this layout.
	Children []RouteNode
}

// BuildRouteTree nests assignments under their layouts and orders every level
// deterministically.
//
// A layout contributes its own path. A page whose path equals its parent
// layout's path becomes that layout's index route; any other page
// contributes its own path.
//
// Siblings are sorted by ascending child count, so terminal routes come
// before broader branches, then by path, then by file path.
func BuildRouteTree(assignments []Assignment) []RouteNode {
	built := tree.Build(assignments,
		func(a Assignment) string { return a.File.FilePath },
		func(a Assignment) (string, bool) {
			if a.Layout == nil {
				return "", false
			}
			return a.Layout.FilePath, true
		},
		classify,
	)

	nodes := convert(built)
	sortRoutes(nodes)
	return nodes
}

func classify(a Assignment, parent *Assignment) RouteNode {
	f := a.File
	node := RouteNode{Pagefile: f}

	if !f.IsLayout && parent != nil && samePath(f.Meta, parent.File.Meta) {
		node.Index = true
		return node
	}

	node.Path = f.Meta.Path
	node.HasPath = f.Meta.HasPath
	return node
}

func samePath(a, b pagefile.Meta) bool {
	if a.HasPath != b.HasPath {
		return false
	}
	if !a.HasPath {
		return true
	}
	return trie.Join(trie.Segments(a.Path)) == trie.Join(trie.Segments(b.Path))
}

func convert(nodes []tree.Node[RouteNode]) []RouteNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]RouteNode, len(nodes))
	for i, n := range nodes {
		out[i] = n.Value
		out[i].Children = convert(n.Children)
	}
	return out
}

func sortRoutes(nodes []RouteNode) {
	for i := range nodes {
		sortRoutes(nodes[i].Children)
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if len(a.Children) != len(b.Children) {
			return len(a.Children) < len(b.Children)
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Pagefile.FilePath < b.Pagefile.FilePath
	})
}

// Walk visits routes depth-first in pre-order.
func Walk(nodes []RouteNode, fn func(n *RouteNode, parent *RouteNode)) {
	var walk func(nodes []RouteNode, parent *RouteNode)
	walk = func(nodes []RouteNode, parent *RouteNode) {
		for i := range nodes {
			fn(&nodes[i], parent)
			walk(nodes[i].Children, &nodes[i])
		}
	}
	walk(nodes, nil)
}
