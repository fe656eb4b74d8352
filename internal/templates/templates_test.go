package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/pagefiles/internal/config"
)

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"minimal", false},
		{"nested", false},
		{"nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Get(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tmpl.Name != tt.name {
				t.Errorf("Name = %q, want %q", tmpl.Name, tt.name)
			}
		})
	}
}

func TestList(t *testing.T) {
	names := List()
	if strings.Join(names, ",") != "minimal,nested" {
		t.Errorf("List() = %v, want [minimal nested]", names)
	}
}

func TestCreate(t *testing.T) {
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			tmpDir := t.TempDir()
			tmpl, _ := Get(name)

			skipped, err := tmpl.Create(tmpDir, Config{ProjectName: "acme", Output: "src/routes.gen.js"})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if len(skipped) != 0 {
				t.Errorf("skipped = %v, want none", skipped)
			}

			for _, rel := range tmpl.Paths() {
				if _, err := os.Stat(filepath.Join(tmpDir, filepath.FromSlash(rel))); err != nil {
					t.Errorf("%s not created: %v", rel, err)
				}
			}

			layout, err := os.ReadFile(filepath.Join(tmpDir, "src", "App.layout.tsx"))
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(layout), "<h1>acme</h1>") {
				t.Errorf("ProjectName not substituted:\n%s", layout)
			}
			if !strings.Contains(string(layout), `({ path: "/" })`) {
				t.Errorf("JSX braces were not kept:\n%s", layout)
			}

			cfg, err := config.Load(tmpDir)
			if err != nil {
				t.Fatalf("generated config does not load: %v", err)
			}
			if cfg.Output != "src/routes.gen.js" {
				t.Errorf("Output = %q, want src/routes.gen.js", cfg.Output)
			}
			if cfg.ModuleID != "virtual:pagefiles" {
				t.Errorf("ModuleID = %q, want virtual:pagefiles", cfg.ModuleID)
			}
		})
	}
}

func TestCreateKeepsExistingFiles(t *testing.T) {
	tmpDir := t.TempDir()
	existing := filepath.Join(tmpDir, "src", "Home.page.tsx")
	if err := os.MkdirAll(filepath.Dir(existing), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(existing, []byte("// mine"), 0644); err != nil {
		t.Fatal(err)
	}

	tmpl, _ := Get("minimal")
	skipped, err := tmpl.Create(tmpDir, Config{ProjectName: "acme"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(skipped) != 1 || skipped[0] != "src/Home.page.tsx" {
		t.Errorf("skipped = %v, want [src/Home.page.tsx]", skipped)
	}

	data, _ := os.ReadFile(existing)
	if string(data) != "// mine" {
		t.Errorf("existing file overwritten: %q", data)
	}
}
