package dev

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	pferrors "github.com/vango-dev/pagefiles/internal/errors"
	"github.com/vango-dev/pagefiles/internal/metrics"
	"github.com/vango-dev/pagefiles/pkg/pagefile"
	"github.com/vango-dev/pagefiles/pkg/router"
)

const tracerName = "github.com/vango-dev/pagefiles/internal/dev"

// Op is the kind of a file event.
type Op string

const (
	OpAdd    Op = "add"
	OpChange Op = "change"
	OpRemove Op = "remove"
)

// Event is a pagefile being added, changed or removed.
type Event struct {
	Op   Op
	Path string
}

// Registry is the record store the controller mutates.
type Registry interface {
	AddOrUpdate(ctx context.Context, path string) error
	AddAll(ctx context.Context, paths []string) []error
	Remove(path string)
	Snapshot() []pagefile.Record
}

// Generation is one successfully generated route table.
type Generation struct {
	// Seq increases by one for every generation that changed the output.
	Seq int

	// Pagefiles are the valid pagefiles the routes were built from.
	Pagefiles []*pagefile.Pagefile

	// Routes is the route tree.
	Routes []router.RouteNode

	// Output is the generated routes module.
	Output []byte

	// Manifest is the JSON manifest of Routes.
	Manifest []byte

	// Sum is the xxhash of Output.
	Sum uint64
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	// Root is the directory scanned by Load.
	Root string

	// Registry stores extracted records. Required.
	Registry Registry

	// Matcher classifies files as pages or layouts. Required.
	Matcher *pagefile.Matcher

	// Generator serializes the route tree. Required.
	Generator *router.Generator

	// Strict aborts on any extraction, validation or resolution error.
	// Otherwise per-file errors exclude the file and structural errors
	// skip the pass.
	Strict bool

	// Ignore lists directory names Load does not descend into.
	Ignore []string

	// Logger (default: slog.Default()).
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *metrics.Metrics

	// Tracer (default: the global provider).
	Tracer trace.Tracer
}

// Controller owns the registry and decides when the route table changed.
// Events are applied one at a time, in arrival order.
type Controller struct {
	opts ControllerOptions

	// turn serializes event application and regeneration.
	turn   sync.Mutex
	events chan Event

	mu          sync.RWMutex
	current     Generation
	hasCurrent  bool
	extractErrs map[string]*pferrors.Error
	diagnostics []*pferrors.Error
	diagSum     uint64
	onRoutes    []func(Generation)
	onDiag      []func([]*pferrors.Error)
}

// NewController creates a Controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.Ignore == nil {
		opts.Ignore = DefaultIgnore
	}
	return &Controller{
		opts:        opts,
		events:      make(chan Event, 256),
		extractErrs: make(map[string]*pferrors.Error),
	}
}

// OnRoutesGenerated registers fn to be called with every generation whose
// output differs from the previous one.
func (c *Controller) OnRoutesGenerated(fn func(Generation)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRoutes = append(c.onRoutes, fn)
}

// OnDiagnostics registers fn to be called whenever the set of current
// errors changes. An empty slice means everything is fine again.
func (c *Controller) OnDiagnostics(fn func([]*pferrors.Error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDiag = append(c.onDiag, fn)
}

// Current returns the last generation, if any.
func (c *Controller) Current() (Generation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.hasCurrent
}

// Diagnostics returns the errors of the last pass, sorted by file.
func (c *Controller) Diagnostics() []*pferrors.Error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*pferrors.Error(nil), c.diagnostics...)
}

// Load scans Root for pagefiles, extracts them all and generates the first
// route table.
func (c *Controller) Load(ctx context.Context) error {
	c.turn.Lock()
	defer c.turn.Unlock()

	paths, err := c.scan()
	if err != nil {
		return pferrors.FromError(err)
	}
	c.opts.Logger.Debug("scanned pagefiles", "root", c.opts.Root, "count", len(paths))

	var firstErr error
	for _, err := range c.opts.Registry.AddAll(ctx, paths) {
		if err := c.extractionFailed(err); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		c.publishDiagnostics(nil)
		c.opts.Metrics.ObserveRegeneration(metrics.OutcomeFailed)
		return firstErr
	}

	_, err = c.regenerate(ctx)
	return err
}

// scan walks Root and returns every file the matcher accepts.
func (c *Controller) scan() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(c.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != c.opts.Root && ignoredDir(d.Name(), c.opts.Ignore) {
				return filepath.SkipDir
			}
			return nil
		}
		if c.opts.Matcher.Matches(path) {
			paths = append(paths, pagefile.Slash(path))
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

// Enqueue schedules ev for Run. It blocks while the queue is full.
func (c *Controller) Enqueue(ev Event) {
	c.events <- ev
}

// Run applies queued events until ctx is done. Bursts are applied in order
// and followed by a single regeneration.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			batch := []Event{ev}
			draining := true
			for draining {
				select {
				case next := <-c.events:
					batch = append(batch, next)
				default:
					draining = false
				}
			}
			if err := c.ApplyBatch(ctx, batch); err != nil {
				c.opts.Logger.Error("regeneration failed", "error", err)
			}
		}
	}
}

// Apply applies one event and regenerates. It waits for any event being
// applied concurrently.
func (c *Controller) Apply(ctx context.Context, ev Event) error {
	return c.ApplyBatch(ctx, []Event{ev})
}

// ApplyBatch applies events in order and regenerates once.
func (c *Controller) ApplyBatch(ctx context.Context, events []Event) error {
	c.turn.Lock()
	defer c.turn.Unlock()

	var firstErr error
	for _, ev := range events {
		if err := c.mutate(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		c.publishDiagnostics(nil)
		c.opts.Metrics.ObserveRegeneration(metrics.OutcomeFailed)
		return firstErr
	}
	_, err := c.regenerate(ctx)
	return err
}

// Regenerate recomputes the route table from the current registry. It
// reports whether the output changed.
func (c *Controller) Regenerate(ctx context.Context) (bool, error) {
	c.turn.Lock()
	defer c.turn.Unlock()
	return c.regenerate(ctx)
}

func (c *Controller) mutate(ctx context.Context, ev Event) error {
	path := pagefile.Slash(ev.Path)
	c.opts.Logger.Debug("pagefile event", "op", string(ev.Op), "file", path)

	switch ev.Op {
	case OpRemove:
		c.opts.Registry.Remove(path)
		c.clearExtractionError(path)
		return nil
	default:
		err := c.opts.Registry.AddOrUpdate(ctx, path)
		if err == nil {
			c.clearExtractionError(path)
			return nil
		}
		return c.extractionFailed(err)
	}
}

// extractionFailed records a per-file failure. It returns the error in
// strict mode and nil in lenient mode.
func (c *Controller) extractionFailed(err error) error {
	pe := pferrors.FromError(err)

	c.mu.Lock()
	c.extractErrs[pe.File] = pe
	c.mu.Unlock()

	if c.opts.Strict {
		return pe
	}
	c.opts.Logger.Warn("pagefile excluded", "file", pe.File, "error", pe.Error())
	return nil
}

func (c *Controller) clearExtractionError(path string) {
	c.mu.Lock()
	delete(c.extractErrs, path)
	c.mu.Unlock()
}

func (c *Controller) regenerate(ctx context.Context) (bool, error) {
	_, span := c.opts.Tracer.Start(ctx, "pagefiles.regenerate")
	defer span.End()

	changed, outcome, err := c.generate()
	span.SetAttributes(attribute.String("pagefiles.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	c.opts.Metrics.ObserveRegeneration(outcome)
	return changed, err
}

func (c *Controller) generate() (bool, string, error) {
	records := c.opts.Registry.Snapshot()
	c.opts.Metrics.SetPagefiles(len(records))

	res, err := router.Build(records, c.opts.Matcher.IsLayout)
	if err != nil {
		pe := pferrors.FromError(err)
		c.publishDiagnostics([]*pferrors.Error{pe})
		if c.opts.Strict {
			return false, metrics.OutcomeFailed, pe
		}
		c.opts.Logger.Error("route tree not updated", "file", pe.File, "error", pe.Error())
		return false, metrics.OutcomeSkipped, nil
	}

	c.opts.Metrics.SetInvalid(len(res.Invalid))
	c.publishDiagnostics(res.Invalid)
	if len(res.Invalid) > 0 {
		if c.opts.Strict {
			return false, metrics.OutcomeFailed, res.Invalid[0]
		}
		for _, inv := range res.Invalid {
			c.opts.Logger.Warn("pagefile excluded", "file", inv.File, "error", inv.Error())
		}
	}

	output, err := c.opts.Generator.Generate(res.Routes)
	if err != nil {
		return false, metrics.OutcomeFailed, pferrors.Unknown(err)
	}
	manifest, err := c.opts.Generator.GenerateManifest(res.Routes)
	if err != nil {
		return false, metrics.OutcomeFailed, pferrors.Unknown(err)
	}
	sum := xxhash.Sum64(output)

	c.mu.Lock()
	if c.hasCurrent && c.current.Sum == sum && bytes.Equal(c.current.Output, output) {
		c.mu.Unlock()
		c.opts.Logger.Debug("routes unchanged")
		return false, metrics.OutcomeUnchanged, nil
	}
	gen := Generation{
		Seq:       c.current.Seq + 1,
		Pagefiles: res.Pagefiles,
		Routes:    res.Routes,
		Output:    output,
		Manifest:  manifest,
		Sum:       sum,
	}
	c.current = gen
	c.hasCurrent = true
	listeners := slices.Clone(c.onRoutes)
	c.mu.Unlock()

	c.opts.Logger.Info("routes generated", "pagefiles", len(res.Pagefiles), "seq", gen.Seq)
	for _, fn := range listeners {
		fn(gen)
	}
	return true, metrics.OutcomeChanged, nil
}

// publishDiagnostics replaces the pass diagnostics with errs, merges in the
// outstanding extraction failures, and notifies listeners when the set
// changed.
func (c *Controller) publishDiagnostics(errs []*pferrors.Error) {
	c.mu.Lock()
	all := make([]*pferrors.Error, 0, len(errs)+len(c.extractErrs))
	for _, e := range c.extractErrs {
		all = append(all, e)
	}
	all = append(all, errs...)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].File != all[j].File {
			return all[i].File < all[j].File
		}
		return all[i].Code < all[j].Code
	})

	h := xxhash.New()
	for _, e := range all {
		h.WriteString(e.FormatJSON())
		h.WriteString("\n")
	}
	sum := h.Sum64()

	if sum == c.diagSum && len(all) == len(c.diagnostics) {
		c.mu.Unlock()
		return
	}
	c.diagnostics = all
	c.diagSum = sum
	listeners := slices.Clone(c.onDiag)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(append([]*pferrors.Error(nil), all...))
	}
}
