package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/vango-dev/pagefiles/internal/errors"
)

// Config contains template configuration.
type Config struct {
	// ProjectName is the name of the project.
	ProjectName string

	// ModuleID is the virtual module id of the routes.
	ModuleID string

	// Output is the routes module path, relative to the project root.
	Output string
}

// Template represents a project template.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files is a map of relative paths to file contents.
	Files map[string]string
}

// Available templates.
var templates = map[string]*Template{
	"minimal": minimalTemplate(),
	"nested":  nestedTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New(errors.CodeInvalidConfig).
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: minimal, nested")
	}
	return tmpl, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Paths returns the template's relative file paths, sorted.
func (t *Template) Paths() []string {
	paths := make([]string, 0, len(t.Files))
	for p := range t.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Create writes the template into dir. Existing files are never
// overwritten; their paths are returned as skipped.
func (t *Template) Create(dir string, cfg Config) (skipped []string, err error) {
	if cfg.ModuleID == "" {
		cfg.ModuleID = "virtual:pagefiles"
	}
	if cfg.Output == "" {
		cfg.Output = "src/pagefiles.gen.js"
	}

	for _, relPath := range t.Paths() {
		content := t.Files[relPath]

		tmpl, err := template.New(relPath).Delims("[[", "]]").Parse(content)
		if err != nil {
			return skipped, errors.Newf(errors.CodeInvalidConfig, errors.CategoryConfig, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return skipped, errors.Newf(errors.CodeInvalidConfig, errors.CategoryConfig, "template execute error %s: %v", relPath, err)
		}

		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if _, err := os.Stat(fullPath); err == nil {
			skipped = append(skipped, relPath)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return skipped, err
		}
		if err := os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			return skipped, err
		}
	}

	return skipped, nil
}

const configFile = `{
  "pages": ["src/**/*.page.tsx"],
  "layouts": ["src/**/*.layout.tsx"],
  "moduleId": "[[.ModuleID]]",
  "output": "[[.Output]]"
}
`

// minimalTemplate returns the minimal template.
func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "A root layout and a home page",
		Files: map[string]string{
			"pagefiles.json": configFile,
			"src/App.layout.tsx": `import { Outlet } from "react-router-dom";

export const Meta = () => ({ path: "/" });

export default function App() {
  return (
    <main>
      <h1>[[.ProjectName]]</h1>
      <Outlet />
    </main>
  );
}
`,
			"src/Home.page.tsx": `export const Meta = () => ({ path: "/", title: "Home" });

export default function Home() {
  return <p>Edit src/Home.page.tsx and save.</p>;
}
`,
		},
	}
}

// nestedTemplate returns a template with a nested layout, an index route
// and a page that opts out of layouts.
func nestedTemplate() *Template {
	return &Template{
		Name:        "nested",
		Description: "Nested layouts, index routes and a standalone page",
		Files: map[string]string{
			"pagefiles.json": configFile,
			"src/App.layout.tsx": `import { Outlet } from "react-router-dom";

export const Meta = () => ({ path: "/" });

export default function App() {
  return (
    <main>
      <h1>[[.ProjectName]]</h1>
      <Outlet />
    </main>
  );
}
`,
			"src/Home.page.tsx": `export const Meta = () => ({ path: "/" });

export default function Home() {
  return <p>Welcome.</p>;
}
`,
			"src/teams/Teams.layout.tsx": `import { Outlet } from "react-router-dom";

export const Meta = () => ({ path: "/teams", layout: "App" });

export default function Teams() {
  return (
    <section>
      <h2>Teams</h2>
      <Outlet />
    </section>
  );
}
`,
			"src/teams/TeamList.page.tsx": `export const Meta = () => ({ path: "/teams" });

export default function TeamList() {
  return <ul />;
}
`,
			"src/teams/NewTeam.page.tsx": `export const Meta = () => ({ path: "/teams/new" });

export default function NewTeam() {
  return <form />;
}
`,
			"src/Login.page.tsx": `export const Meta = () => ({ path: "/login", layout: null });

export default function Login() {
  return <form />;
}
`,
		},
	}
}
