package pagefile

import (
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher classifies files as pages or layouts by glob.
type Matcher struct {
	pages   []string
	layouts []string
}

// NewMatcher resolves page and layout globs against root. Globs are matched
// against absolute slash-separated paths.
func NewMatcher(root string, pages, layouts []string) (*Matcher, error) {
	m := &Matcher{}
	var err error
	if m.pages, err = resolveGlobs(root, pages); err != nil {
		return nil, err
	}
	if m.layouts, err = resolveGlobs(root, layouts); err != nil {
		return nil, err
	}
	return m, nil
}

func resolveGlobs(root string, globs []string) ([]string, error) {
	root = Slash(root)
	out := make([]string, 0, len(globs))
	for _, g := range globs {
		g = filepath.ToSlash(g)
		if !path.IsAbs(g) {
			g = path.Join(root, g)
		}
		if !doublestar.ValidatePattern(g) {
			return nil, doublestar.ErrBadPattern
		}
		out = append(out, g)
	}
	return out, nil
}

// IsPage reports whether file matches a page glob.
func (m *Matcher) IsPage(file string) bool {
	return matchAny(m.pages, Slash(file))
}

// IsLayout reports whether file matches a layout glob.
func (m *Matcher) IsLayout(file string) bool {
	return matchAny(m.layouts, Slash(file))
}

// Matches reports whether file is a page or a layout.
func (m *Matcher) Matches(file string) bool {
	return m.IsPage(file) || m.IsLayout(file)
}

// Patterns returns all resolved globs, pages first.
func (m *Matcher) Patterns() []string {
	out := make([]string, 0, len(m.pages)+len(m.layouts))
	out = append(out, m.pages...)
	return append(out, m.layouts...)
}

func matchAny(patterns []string, file string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, file); ok {
			return true
		}
	}
	return false
}

// Slash returns the cleaned absolute form of p with forward slashes.
func Slash(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.ToSlash(filepath.Clean(p))
}
