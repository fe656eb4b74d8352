package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id     string
	parent string
}

func ids(items ...item) []item { return items }

func buildItems(items []item) []Node[string] {
	return Build(items,
		func(i item) string { return i.id },
		func(i item) (string, bool) { return i.parent, i.parent != "" },
		func(i item, parent *item) string {
			if parent == nil {
				return i.id
			}
			return parent.id + ">" + i.id
		},
	)
}

func TestGroupBy(t *testing.T) {
	got := GroupBy([]int{1, 2, 3, 4, 5}, func(i int) bool { return i%2 == 0 })
	assert.Equal(t, []int{1, 3, 5}, got[false])
	assert.Equal(t, []int{2, 4}, got[true])
}

func TestBuild(t *testing.T) {
	nodes := buildItems(ids(
		item{id: "a"},
		item{id: "b", parent: "a"},
		item{id: "c", parent: "b"},
		item{id: "d", parent: "a"},
		item{id: "e"},
	))

	require.Len(t, nodes, 2)
	assert.Equal(t, "a", nodes[0].Value)
	assert.Equal(t, "e", nodes[1].Value)

	require.Len(t, nodes[0].Children, 2)
	assert.Equal(t, "a>b", nodes[0].Children[0].Value)
	assert.Equal(t, "a>d", nodes[0].Children[1].Value)

	require.Len(t, nodes[0].Children[0].Children, 1)
	assert.Equal(t, "b>c", nodes[0].Children[0].Children[0].Value)
	assert.Empty(t, nodes[1].Children)
}

func TestBuildSkipsUnreachable(t *testing.T) {
	nodes := buildItems(ids(
		item{id: "root"},
		item{id: "x", parent: "y"},
		item{id: "y", parent: "x"},
		item{id: "orphan", parent: "missing"},
	))

	require.Len(t, nodes, 1)
	assert.Equal(t, "root", nodes[0].Value)
	assert.Empty(t, nodes[0].Children)
}

func TestBuildEmpty(t *testing.T) {
	assert.Empty(t, buildItems(nil))
}

func TestWalk(t *testing.T) {
	nodes := buildItems(ids(
		item{id: "a"},
		item{id: "b", parent: "a"},
		item{id: "c"},
	))

	var visited []string
	var depths []int
	Walk(nodes, func(n *Node[string], depth int) {
		visited = append(visited, n.Value)
		depths = append(depths, depth)
	})

	assert.Equal(t, []string{"a", "a>b", "c"}, visited)
	assert.Equal(t, []int{0, 1, 0}, depths)
}
