// Package pagefile defines pagefile records and their validation.
//
// A pagefile is a source module that exports a Meta function describing its
// route and a default component:
//
//	export const Meta = () => ({ path: "/teams", layout: "AppLayout" });
//	export default function Teams() { ... }
//
// The extraction sandbox turns a pagefile into a Record holding the raw,
// untyped Meta value. Narrow validates a Record and produces the typed
// Pagefile that layout resolution works on.
package pagefile

import (
	"maps"
	"slices"
)

// Record is what the extraction sandbox reports for one file.
type Record struct {
	// FilePath is the absolute, slash-normalized path of the file. It is the
	// record's unique key.
	FilePath string `json:"filePath"`

	// Meta is the decoded value returned by the file's Meta export. nil means
	// the file has no Meta export.
	Meta any `json:"meta,omitempty"`

	// HasDefaultExport reports whether the file has a default export.
	HasDefaultExport bool `json:"hasDefaultExport"`

	// DefaultExportName is the default export's function or class name.
	DefaultExportName string `json:"defaultExportName,omitempty"`

	// DefaultExportDisplayName is the default export's displayName property.
	DefaultExportDisplayName string `json:"defaultExportDisplayName,omitempty"`

	// Exports lists the file's export names, sorted.
	Exports []string `json:"exports,omitempty"`
}

// LayoutMode says how a pagefile's parent layout is chosen.
type LayoutMode int

const (
	// LayoutInfer resolves the parent layout from path ancestry.
	LayoutInfer LayoutMode = iota

	// LayoutNone opts out of any parent layout (layout: null).
	LayoutNone

	// LayoutNamed references a parent layout by resolved name.
	LayoutNamed
)

// String returns the mode name.
func (m LayoutMode) String() string {
	switch m {
	case LayoutNone:
		return "none"
	case LayoutNamed:
		return "named"
	default:
		return "infer"
	}
}

// Meta is the typed form of a pagefile's metadata.
type Meta struct {
	// Path is the route path. Empty when HasPath is false.
	Path    string
	HasPath bool

	// Name is the explicit name other pagefiles may reference.
	Name string

	// Layout and LayoutName describe the parent layout reference.
	Layout     LayoutMode
	LayoutName string

	// Extra holds any other keys returned by Meta, passed through untouched.
	Extra map[string]any
}

// Pagefile is a validated record ready for layout resolution.
type Pagefile struct {
	FilePath string
	Meta     Meta

	// IsLayout reports membership in the layout globs.
	IsLayout bool

	// ResolvedName is the name the pagefile can be referenced by, if any.
	ResolvedName string

	DefaultExportName        string
	DefaultExportDisplayName string
}

// Kind returns "layout" or "page".
func (p *Pagefile) Kind() string {
	if p.IsLayout {
		return "layout"
	}
	return "page"
}

// ResolvedName returns meta.name, else the default export's displayName, else
// its function name. The result may be empty.
func ResolvedName(r Record) string {
	if m, ok := r.Meta.(map[string]any); ok {
		if name, ok := m["name"].(string); ok && name != "" {
			return name
		}
	}
	if r.DefaultExportDisplayName != "" {
		return r.DefaultExportDisplayName
	}
	return r.DefaultExportName
}

// Narrow validates r and returns its typed form. On failure the Pagefile is
// nil and reasons explains why.
func Narrow(r Record, isLayout bool) (*Pagefile, []string) {
	if reasons := Validate(r); len(reasons) > 0 {
		return nil, reasons
	}

	raw := r.Meta.(map[string]any)
	meta := Meta{Extra: make(map[string]any)}
	for k, v := range raw {
		switch k {
		case keyPath:
			meta.Path, meta.HasPath = v.(string)
		case keyName:
			meta.Name, _ = v.(string)
		case keyLayout:
			switch ref := v.(type) {
			case nil:
				meta.Layout = LayoutNone
			case string:
				if ref != "" {
					meta.Layout = LayoutNamed
					meta.LayoutName = ref
				}
			}
		default:
			meta.Extra[k] = v
		}
	}
	if len(meta.Extra) == 0 {
		meta.Extra = nil
	}

	return &Pagefile{
		FilePath:                 r.FilePath,
		Meta:                     meta,
		IsLayout:                 isLayout,
		ResolvedName:             ResolvedName(r),
		DefaultExportName:        r.DefaultExportName,
		DefaultExportDisplayName: r.DefaultExportDisplayName,
	}, nil
}

// Clone returns a deep copy of r so snapshots never share Meta maps with the
// registry.
func (r Record) Clone() Record {
	r.Meta = cloneValue(r.Meta)
	r.Exports = slices.Clone(r.Exports)
	return r
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := maps.Clone(t)
		for k, val := range out {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
