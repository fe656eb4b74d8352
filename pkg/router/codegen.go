package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/vango-dev/pagefiles/pkg/pagefile"
)

// ImportMode selects how the generated module loads a pagefile.
type ImportMode string

const (
	// ImportSync emits a static import.
	ImportSync ImportMode = "sync"

	// ImportAsync emits React.lazy(() => import(...)).
	ImportAsync ImportMode = "async"
)

// ImportModeFunc chooses the import mode per pagefile.
type ImportModeFunc func(p *pagefile.Pagefile) ImportMode

// DefaultImportMode loads the root route synchronously and everything else
// lazily.
func DefaultImportMode(p *pagefile.Pagefile) ImportMode {
	if p.Meta.HasPath && p.Meta.Path == "/" {
		return ImportSync
	}
	return ImportAsync
}

// FixedImportMode uses mode for every pagefile.
func FixedImportMode(mode ImportMode) ImportModeFunc {
	return func(*pagefile.Pagefile) ImportMode { return mode }
}

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	// ModuleID is the virtual module id recorded in the manifest.
	ModuleID string

	// ImportMode chooses sync or async imports. Defaults to DefaultImportMode.
	ImportMode ImportModeFunc

	// BaseDir, when set, makes import specifiers relative to it. Otherwise
	// absolute file paths are emitted.
	BaseDir string
}

// Generator serializes a route tree. Output is deterministic: the same tree
// always produces byte-identical output.
type Generator struct {
	opts GeneratorOptions
}

// NewGenerator creates a route module generator.
func NewGenerator(opts GeneratorOptions) *Generator {
	if opts.ImportMode == nil {
		opts.ImportMode = DefaultImportMode
	}
	return &Generator{opts: opts}
}

// ImportMode returns the import mode for p.
func (g *Generator) ImportMode(p *pagefile.Pagefile) ImportMode {
	if mode := g.opts.ImportMode(p); mode == ImportSync {
		return ImportSync
	}
	return ImportAsync
}

// Generate returns the JavaScript routes module for nodes.
func (g *Generator) Generate(nodes []RouteNode) ([]byte, error) {
	imports := make(map[string]string)
	var order []*pagefile.Pagefile
	Walk(nodes, func(n *RouteNode, _ *RouteNode) {
		if _, ok := imports[n.Pagefile.FilePath]; ok {
			return
		}
		imports[n.Pagefile.FilePath] = fmt.Sprintf("PagefilesImport%d", len(order))
		order = append(order, n.Pagefile)
	})

	var b bytes.Buffer
	b.WriteString("// Code generated by pagefiles. DO NOT EDIT.\n\n")
	b.WriteString("import React from \"react\";\n")

	for _, p := range order {
		name := imports[p.FilePath]
		src, err := jsString(g.specifier(p.FilePath))
		if err != nil {
			return nil, err
		}
		if g.ImportMode(p) == ImportSync {
			fmt.Fprintf(&b, "import %s from %s;\n", name, src)
		} else {
			fmt.Fprintf(&b, "const %s = React.lazy(() => import(%s));\n", name, src)
		}
	}

	b.WriteString("\nconst routes = [\n")
	if err := g.writeRoutes(&b, nodes, imports, 1); err != nil {
		return nil, err
	}
	b.WriteString("];\n\nexport default routes;\n")

	return b.Bytes(), nil
}

func (g *Generator) writeRoutes(b *bytes.Buffer, nodes []RouteNode, imports map[string]string, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		b.WriteString(indent + "{\n")
		switch {
		case n.Index:
			b.WriteString(indent + "  index: true,\n")
		case n.HasPath:
			p, err := jsString(n.Path)
			if err != nil {
				return err
			}
			fmt.Fprintf(b, "%s  path: %s,\n", indent, p)
		}
		fmt.Fprintf(b, "%s  element: React.createElement(%s),\n", indent, imports[n.Pagefile.FilePath])
		if len(n.Children) > 0 {
			b.WriteString(indent + "  children: [\n")
			if err := g.writeRoutes(b, n.Children, imports, depth+2); err != nil {
				return err
			}
			b.WriteString(indent + "  ],\n")
		}
		b.WriteString(indent + "},\n")
	}
	return nil
}

func (g *Generator) specifier(file string) string {
	if g.opts.BaseDir == "" {
		return file
	}
	rel, err := relSlash(pagefile.Slash(g.opts.BaseDir), file)
	if err != nil {
		return file
	}
	return rel
}

// relSlash returns target relative to base as an import specifier. Both are
// absolute slash paths.
func relSlash(base, target string) (string, error) {
	if !path.IsAbs(base) || !path.IsAbs(target) {
		return "", fmt.Errorf("relSlash: paths must be absolute: %q, %q", base, target)
	}
	bp := strings.Split(strings.Trim(base, "/"), "/")
	tp := strings.Split(strings.Trim(target, "/"), "/")
	if base == "/" {
		bp = nil
	}

	i := 0
	for i < len(bp) && i < len(tp)-1 && bp[i] == tp[i] {
		i++
	}

	parts := make([]string, 0, len(bp)-i+len(tp)-i)
	for range bp[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, tp[i:]...)

	rel := strings.Join(parts, "/")
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel, nil
}

func jsString(s string) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ManifestRoute is the JSON form of a RouteNode.
type ManifestRoute struct {
	File       string          `json:"file"`
	Kind       string          `json:"kind"`
	Name       string          `json:"name,omitempty"`
	Path       *string         `json:"path,omitempty"`
	Index      bool            `json:"index,omitempty"`
	ImportMode ImportMode      `json:"importMode"`
	Meta       map[string]any  `json:"meta,omitempty"`
	Children   []ManifestRoute `json:"children,omitempty"`
}

// Manifest is the JSON description of a generated route tree.
type Manifest struct {
	ModuleID string          `json:"moduleId,omitempty"`
	Routes   []ManifestRoute `json:"routes"`
}

// Manifest builds the manifest for nodes.
func (g *Generator) Manifest(nodes []RouteNode) Manifest {
	return Manifest{
		ModuleID: g.opts.ModuleID,
		Routes:   g.manifestRoutes(nodes),
	}
}

func (g *Generator) manifestRoutes(nodes []RouteNode) []ManifestRoute {
	routes := make([]ManifestRoute, 0, len(nodes))
	for _, n := range nodes {
		r := ManifestRoute{
			File:       n.Pagefile.FilePath,
			Kind:       n.Pagefile.Kind(),
			Name:       n.Pagefile.ResolvedName,
			Index:      n.Index,
			ImportMode: g.ImportMode(n.Pagefile),
			Meta:       n.Pagefile.Meta.Extra,
		}
		if n.HasPath {
			p := n.Path
			r.Path = &p
		}
		if len(n.Children) > 0 {
			r.Children = g.manifestRoutes(n.Children)
		}
		routes = append(routes, r)
	}
	return routes
}

// GenerateManifest returns the indented JSON manifest for nodes.
func (g *Generator) GenerateManifest(nodes []RouteNode) ([]byte, error) {
	data, err := json.MarshalIndent(g.Manifest(nodes), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
