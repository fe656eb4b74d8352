package trie

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/", []string{""}},
		{"", []string{""}},
		{"/teams", []string{"", "teams"}},
		{"/teams/", []string{"", "teams"}},
		{"/teams/new", []string{"", "teams", "new"}},
		{"*", []string{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Segments(tt.path))
		})
	}
}

func TestJoinRoundTrip(t *testing.T) {
	for _, p := range []string{"/", "/teams", "/teams/:id"} {
		assert.Equal(t, p, Join(Segments(p)))
	}
}

func TestInsertDuplicate(t *testing.T) {
	tr := New[string]()
	require.NoError(t, tr.Insert(Segments("/teams"), "a"))

	err := tr.Insert(Segments("/teams/"), "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))

	got, ok := tr.Get(Segments("/teams"))
	require.True(t, ok)
	assert.Equal(t, "a", got, "duplicate insert must not overwrite")
	assert.Equal(t, 1, tr.Len())
}

func TestFind(t *testing.T) {
	tr := New[string]()
	require.NoError(t, tr.Insert(Segments("/"), "root"))
	require.NoError(t, tr.Insert(Segments("/teams"), "teams"))
	require.NoError(t, tr.Insert(Segments("/a/b/c"), "deep"))

	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"/", "root", true},
		{"/teams", "teams", true},
		{"/teams/new", "teams", true},
		{"/teams/new/more", "teams", true},
		{"/contact", "root", true},
		// empty intermediate nodes do not hide the outer value
		{"/a/b", "root", true},
		{"/a/b/x", "root", true},
		{"/a/b/c/d", "deep", true},
		{"*", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := tr.Find(Segments(tt.path))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindAncestorNeverReturnsSelf(t *testing.T) {
	tr := New[string]()
	paths := []string{"/", "/teams", "/teams/:id", "/docs/api"}
	for _, p := range paths {
		require.NoError(t, tr.Insert(Segments(p), p))
	}

	for _, p := range paths {
		got, ok := tr.FindAncestor(Segments(p))
		if ok {
			assert.NotEqual(t, p, got)
		}
	}

	got, ok := tr.FindAncestor(Segments("/"))
	assert.False(t, ok)
	assert.Empty(t, got)

	got, ok = tr.FindAncestor(Segments("/teams/:id"))
	require.True(t, ok)
	assert.Equal(t, "/teams", got)

	got, ok = tr.FindAncestor(Segments("/docs/api"))
	require.True(t, ok)
	assert.Equal(t, "/", got)

	got, ok = tr.FindAncestor(Segments("/teams/:id/edit"))
	require.True(t, ok)
	assert.Equal(t, "/teams/:id", got)
}

func TestEmptyTrie(t *testing.T) {
	tr := New[int]()
	_, ok := tr.Find(Segments("/x"))
	assert.False(t, ok)
	_, ok = tr.FindAncestor(Segments("/x"))
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())
}
