package router

import (
	"errors"
	"sort"

	pferrors "github.com/vango-dev/pagefiles/internal/errors"
	"github.com/vango-dev/pagefiles/pkg/pagefile"
	"github.com/vango-dev/pagefiles/pkg/trie"
)

// Assignment pairs a pagefile with its parent layout. Layout is nil for
// root-level pagefiles.
type Assignment struct {
	File   *pagefile.Pagefile
	Layout *pagefile.Pagefile
}

// ResolveLayouts assigns every pagefile its parent layout.
//
// Layouts with a path are indexed in a path trie and layouts with a resolved
// name in a name index. Each pagefile's parent is then chosen by fixed
// priority:
//
//  1. layout: null       → no parent
//  2. layout: "Name"     → the layout with that resolved name
//  3. path is set        → nearest layout by path (a layout never resolves
//     to itself, only to a strict ancestor)
//  4. otherwise          → no parent
//
// Structural problems (duplicate layout paths or names, dangling references,
// reference cycles) fail the whole resolution.
func ResolveLayouts(files []*pagefile.Pagefile) ([]Assignment, error) {
	sorted := make([]*pagefile.Pagefile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FilePath < sorted[j].FilePath })

	byPath := trie.New[*pagefile.Pagefile]()
	byName := make(map[string]*pagefile.Pagefile)

	for _, f := range sorted {
		if !f.IsLayout {
			continue
		}
		if f.Meta.HasPath {
			if err := byPath.Insert(trie.Segments(f.Meta.Path), f); err != nil {
				if errors.Is(err, trie.ErrDuplicateKey) {
					return nil, pferrors.DuplicateLayoutAtPath(f.Meta.Path, f.FilePath)
				}
				return nil, pferrors.Unknown(err).WithFile(f.FilePath)
			}
		}
		if f.ResolvedName != "" {
			if _, exists := byName[f.ResolvedName]; exists {
				return nil, pferrors.DuplicateLayoutWithName(f.ResolvedName, f.FilePath)
			}
			byName[f.ResolvedName] = f
		}
	}

	assignments := make([]Assignment, 0, len(sorted))
	for _, f := range sorted {
		layout, err := resolveParent(f, byPath, byName)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, Assignment{File: f, Layout: layout})
	}

	if err := checkCycles(assignments); err != nil {
		return nil, err
	}

	return assignments, nil
}

func resolveParent(f *pagefile.Pagefile, byPath *trie.Trie[*pagefile.Pagefile], byName map[string]*pagefile.Pagefile) (*pagefile.Pagefile, error) {
	switch f.Meta.Layout {
	case pagefile.LayoutNone:
		return nil, nil
	case pagefile.LayoutNamed:
		layout, ok := byName[f.Meta.LayoutName]
		if !ok {
			return nil, pferrors.MissingLayout(f.Meta.LayoutName, f.FilePath)
		}
		return layout, nil
	}

	if !f.Meta.HasPath {
		return nil, nil
	}

	key := trie.Segments(f.Meta.Path)
	var (
		layout *pagefile.Pagefile
		ok     bool
	)
	if f.IsLayout {
		layout, ok = byPath.FindAncestor(key)
	} else {
		layout, ok = byPath.Find(key)
	}
	if !ok {
		return nil, nil
	}
	return layout, nil
}

// checkCycles rejects parent chains that loop back on themselves.
func checkCycles(assignments []Assignment) error {
	parent := make(map[string]*pagefile.Pagefile, len(assignments))
	for _, a := range assignments {
		if a.Layout != nil {
			parent[a.File.FilePath] = a.Layout
		}
	}

	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(assignments))

	for _, a := range assignments {
		if state[a.File.FilePath] != unvisited {
			continue
		}

		var chain []*pagefile.Pagefile
		cur := a.File
		for cur != nil && state[cur.FilePath] == unvisited {
			state[cur.FilePath] = inProgress
			chain = append(chain, cur)
			cur = parent[cur.FilePath]
		}

		if cur != nil && state[cur.FilePath] == inProgress {
			start := 0
			for i, f := range chain {
				if f.FilePath == cur.FilePath {
					start = i
					break
				}
			}
			names := make([]string, 0, len(chain)-start+1)
			for _, f := range chain[start:] {
				names = append(names, displayName(f))
			}
			names = append(names, displayName(cur))
			return pferrors.LayoutCycle(cur.FilePath, names)
		}

		for _, f := range chain {
			state[f.FilePath] = done
		}
	}

	return nil
}

func displayName(f *pagefile.Pagefile) string {
	if f.ResolvedName != "" {
		return f.ResolvedName
	}
	return f.FilePath
}
