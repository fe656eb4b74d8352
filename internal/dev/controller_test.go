package dev

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pferrors "github.com/vango-dev/pagefiles/internal/errors"
	"github.com/vango-dev/pagefiles/internal/registry"
	"github.com/vango-dev/pagefiles/internal/sandbox"
	"github.com/vango-dev/pagefiles/pkg/pagefile"
	"github.com/vango-dev/pagefiles/pkg/router"
)

// fakeExtractor serves records by path without running a sandbox.
type fakeExtractor struct {
	mu      sync.Mutex
	records map[string]pagefile.Record
	errs    map[string]error
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		records: make(map[string]pagefile.Record),
		errs:    make(map[string]error),
	}
}

func (f *fakeExtractor) set(path, name string, meta map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.errs, path)
	f.records[path] = pagefile.Record{
		FilePath:          path,
		Meta:              meta,
		HasDefaultExport:  true,
		DefaultExportName: name,
	}
}

func (f *fakeExtractor) fail(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[path] = pferrors.UnableToExtractMeta(path, "", errors.New("SyntaxError: Unexpected token"))
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (pagefile.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[path]; err != nil {
		return pagefile.Record{}, err
	}
	rec, ok := f.records[path]
	if !ok {
		return pagefile.Record{}, pferrors.UnableToExtractMeta(path, "", errors.New("no such file"))
	}
	return rec, nil
}

func (f *fakeExtractor) ExtractAll(ctx context.Context, paths []string) []sandbox.Result {
	out := make([]sandbox.Result, len(paths))
	for i, p := range paths {
		rec, err := f.Extract(ctx, p)
		out[i] = sandbox.Result{Path: p, Record: rec, Err: err}
	}
	return out
}

type fixture struct {
	root  string
	ex    *fakeExtractor
	ctrl  *Controller
	gens  []Generation
	diags [][]*pferrors.Error
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()

	root := t.TempDir()
	matcher, err := pagefile.NewMatcher(root, []string{"**/*.page.tsx"}, []string{"**/*.layout.tsx"})
	require.NoError(t, err)

	f := &fixture{root: root, ex: newFakeExtractor()}
	f.ctrl = NewController(ControllerOptions{
		Root:      root,
		Registry:  registry.New(registry.Options{Extractor: f.ex, CacheSize: -1}),
		Matcher:   matcher,
		Generator: router.NewGenerator(router.GeneratorOptions{ModuleID: "virtual:pagefiles"}),
		Strict:    strict,
	})
	f.ctrl.OnRoutesGenerated(func(gen Generation) { f.gens = append(f.gens, gen) })
	f.ctrl.OnDiagnostics(func(errs []*pferrors.Error) { f.diags = append(f.diags, errs) })
	return f
}

// file creates a pagefile on disk and registers its extraction result.
func (f *fixture) file(t *testing.T, rel, name string, meta map[string]any) string {
	t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("// "+name), 0o644))
	slash := pagefile.Slash(path)
	f.ex.set(slash, name, meta)
	return slash
}

func (f *fixture) lastDiagnostics() []*pferrors.Error {
	if len(f.diags) == 0 {
		return nil
	}
	return f.diags[len(f.diags)-1]
}

func TestControllerLoad(t *testing.T) {
	f := newFixture(t, true)
	f.file(t, "src/A.layout.tsx", "A", map[string]any{"path": "/"})
	f.file(t, "src/Home.page.tsx", "Home", map[string]any{"path": "/"})
	f.file(t, "src/Teams.page.tsx", "Teams", map[string]any{"path": "/teams"})
	f.file(t, "node_modules/pkg/Bad.page.tsx", "Bad", map[string]any{"path": "/bad"})
	f.file(t, ".cache/Hidden.page.tsx", "Hidden", map[string]any{"path": "/hidden"})

	require.NoError(t, f.ctrl.Load(context.Background()))

	gen, ok := f.ctrl.Current()
	require.True(t, ok)
	assert.Equal(t, 1, gen.Seq)
	assert.Len(t, gen.Pagefiles, 3, "ignored directories are not scanned")
	require.Len(t, gen.Routes, 1)
	assert.Equal(t, "A", gen.Routes[0].Pagefile.ResolvedName)
	assert.Len(t, gen.Routes[0].Children, 2)
	assert.Contains(t, string(gen.Output), "export default routes;")
	assert.Contains(t, string(gen.Manifest), `"moduleId": "virtual:pagefiles"`)

	require.Len(t, f.gens, 1)
	assert.Empty(t, f.lastDiagnostics())
}

func TestControllerNotifiesOnlyOnChange(t *testing.T) {
	f := newFixture(t, false)
	home := f.file(t, "src/Home.page.tsx", "Home", map[string]any{"path": "/"})
	ctx := context.Background()

	require.NoError(t, f.ctrl.Load(ctx))
	require.Len(t, f.gens, 1)

	// Same metadata: identical output, no notification.
	require.NoError(t, f.ctrl.Apply(ctx, Event{Op: OpChange, Path: home}))
	changed, err := f.ctrl.Regenerate(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, f.gens, 1)

	about := f.file(t, "src/About.page.tsx", "About", map[string]any{"path": "/about"})
	require.NoError(t, f.ctrl.Apply(ctx, Event{Op: OpAdd, Path: about}))
	require.Len(t, f.gens, 2)
	assert.Equal(t, 2, f.gens[1].Seq)
	assert.Contains(t, string(f.gens[1].Output), about)

	require.NoError(t, f.ctrl.Apply(ctx, Event{Op: OpRemove, Path: about}))
	require.Len(t, f.gens, 3)
	assert.NotContains(t, string(f.gens[2].Output), about)
	assert.Equal(t, f.gens[0].Output, f.gens[2].Output, "removing the file restores the original output")
}

func TestControllerLenientExcludesBrokenFile(t *testing.T) {
	f := newFixture(t, false)
	home := f.file(t, "src/Home.page.tsx", "Home", map[string]any{"path": "/"})
	broken := f.file(t, "src/Broken.page.tsx", "Broken", map[string]any{"path": "/broken"})
	ctx := context.Background()

	require.NoError(t, f.ctrl.Load(ctx))

	f.ex.fail(broken)
	require.NoError(t, f.ctrl.Apply(ctx, Event{Op: OpChange, Path: broken}))

	gen, _ := f.ctrl.Current()
	assert.NotContains(t, string(gen.Output), broken)
	assert.Contains(t, string(gen.Output), home)

	diags := f.ctrl.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, pferrors.CodeUnableToExtractMeta, diags[0].Code)
	assert.Equal(t, broken, diags[0].SourceFile())

	// Fixing the file clears the diagnostic.
	f.ex.set(broken, "Broken", map[string]any{"path": "/broken"})
	require.NoError(t, f.ctrl.Apply(ctx, Event{Op: OpChange, Path: broken}))
	assert.Empty(t, f.ctrl.Diagnostics())
	assert.Empty(t, f.lastDiagnostics())
}

func TestControllerLenientExcludesInvalidFile(t *testing.T) {
	f := newFixture(t, false)
	f.file(t, "src/Home.page.tsx", "Home", map[string]any{"path": "/"})
	x := f.file(t, "src/X.page.tsx", "X", nil)

	require.NoError(t, f.ctrl.Load(context.Background()))

	gen, ok := f.ctrl.Current()
	require.True(t, ok)
	assert.Len(t, gen.Pagefiles, 1)

	diags := f.ctrl.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, pferrors.CodeInvalidPagefile, diags[0].Code)
	assert.Equal(t, x, diags[0].SourceFile())
	assert.Equal(t, []string{"Missing meta export"}, diags[0].Reasons)
}

func TestControllerStrictFailsOnInvalidFile(t *testing.T) {
	f := newFixture(t, true)
	f.file(t, "src/Home.page.tsx", "Home", map[string]any{"path": "/"})
	f.file(t, "src/X.page.tsx", "X", nil)

	err := f.ctrl.Load(context.Background())
	require.Error(t, err)
	assert.True(t, pferrors.Is(err, pferrors.CodeInvalidPagefile))

	_, ok := f.ctrl.Current()
	assert.False(t, ok)
	assert.Empty(t, f.gens)
}

func TestControllerStrictFailsOnExtraction(t *testing.T) {
	f := newFixture(t, true)
	f.file(t, "src/Home.page.tsx", "Home", map[string]any{"path": "/"})
	broken := f.file(t, "src/Broken.page.tsx", "Broken", nil)
	f.ex.fail(broken)

	err := f.ctrl.Load(context.Background())
	require.Error(t, err)
	assert.True(t, pferrors.Is(err, pferrors.CodeUnableToExtractMeta))
	assert.Empty(t, f.gens)
}

func TestControllerStructuralErrorKeepsLastGoodOutput(t *testing.T) {
	f := newFixture(t, false)
	f.file(t, "src/Home.page.tsx", "Home", map[string]any{"path": "/"})
	ctx := context.Background()

	require.NoError(t, f.ctrl.Load(ctx))
	before, _ := f.ctrl.Current()

	orphan := f.file(t, "src/Orphan.page.tsx", "Orphan", map[string]any{"path": "/orphan", "layout": "Nope"})
	require.NoError(t, f.ctrl.Apply(ctx, Event{Op: OpAdd, Path: orphan}))

	after, _ := f.ctrl.Current()
	assert.Equal(t, before.Output, after.Output)
	assert.Len(t, f.gens, 1)

	diags := f.ctrl.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, pferrors.CodeMissingLayout, diags[0].Code)

	// The pass resumes once the reference is fixed.
	f.ex.set(orphan, "Orphan", map[string]any{"path": "/orphan"})
	require.NoError(t, f.ctrl.Apply(ctx, Event{Op: OpChange, Path: orphan}))
	assert.Len(t, f.gens, 2)
	assert.Empty(t, f.ctrl.Diagnostics())
}

func TestControllerStrictStructuralError(t *testing.T) {
	f := newFixture(t, true)
	f.file(t, "src/A.layout.tsx", "A", map[string]any{"path": "/"})
	f.file(t, "src/B.layout.tsx", "B", map[string]any{"path": "/"})

	err := f.ctrl.Load(context.Background())
	require.Error(t, err)
	assert.True(t, pferrors.Is(err, pferrors.CodeDuplicateLayoutAtPath))
}

func TestControllerRunAppliesQueuedEvents(t *testing.T) {
	f := newFixture(t, false)
	f.file(t, "src/Home.page.tsx", "Home", map[string]any{"path": "/"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.ctrl.Load(ctx))

	done := make(chan Generation, 1)
	f.ctrl.OnRoutesGenerated(func(gen Generation) {
		if strings.Contains(string(gen.Output), "Contact") {
			done <- gen
		}
	})

	errCh := make(chan error, 1)
	go func() { errCh <- f.ctrl.Run(ctx) }()

	about := f.file(t, "src/About.page.tsx", "About", map[string]any{"path": "/about"})
	contact := f.file(t, "src/Contact.page.tsx", "Contact", map[string]any{"path": "/contact"})
	f.ctrl.Enqueue(Event{Op: OpAdd, Path: about})
	f.ctrl.Enqueue(Event{Op: OpAdd, Path: contact})

	gen := <-done
	assert.Contains(t, string(gen.Output), about)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}
