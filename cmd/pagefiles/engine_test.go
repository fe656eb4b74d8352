package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vango-dev/pagefiles/internal/config"
	"github.com/vango-dev/pagefiles/pkg/pagefile"
	"github.com/vango-dev/pagefiles/pkg/router"
)

func TestImportModeFunc(t *testing.T) {
	home := &pagefile.Pagefile{Meta: pagefile.Meta{Path: "/", HasPath: true}}
	teams := &pagefile.Pagefile{Meta: pagefile.Meta{Path: "/teams", HasPath: true}}

	tests := []struct {
		mode  string
		home  router.ImportMode
		teams router.ImportMode
	}{
		{config.ImportModeAuto, router.ImportSync, router.ImportAsync},
		{"", router.ImportSync, router.ImportAsync},
		{config.ImportModeSync, router.ImportSync, router.ImportSync},
		{config.ImportModeAsync, router.ImportAsync, router.ImportAsync},
	}

	for _, tt := range tests {
		fn := importModeFunc(tt.mode)
		if got := fn(home); got != tt.home {
			t.Errorf("importModeFunc(%q)(/) = %q, want %q", tt.mode, got, tt.home)
		}
		if got := fn(teams); got != tt.teams {
			t.Errorf("importModeFunc(%q)(/teams) = %q, want %q", tt.mode, got, tt.teams)
		}
	}
}

func TestNewEngine(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOrDefault(dir)
	if err != nil {
		t.Fatal(err)
	}

	e, err := newEngine(cfg, true, nil)
	if err != nil {
		t.Fatalf("newEngine() error = %v", err)
	}
	if !e.matcher.IsPage(filepath.Join(dir, "src", "Home.page.tsx")) {
		t.Error("default page glob did not match src/Home.page.tsx")
	}
	if !e.matcher.IsLayout(filepath.Join(dir, "src", "App.layout.tsx")) {
		t.Error("default layout glob did not match src/App.layout.tsx")
	}
	if e.controller == nil {
		t.Error("controller is nil")
	}
}

func TestRunInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "web")

	if err := runInit(dir, "nested"); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, config.ConfigFileName)); err != nil {
		t.Errorf("config not created: %v", err)
	}

	if err := runInit(dir, "missing"); err == nil {
		t.Error("expected error for unknown template")
	}
}
