package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	pferrors "github.com/vango-dev/pagefiles/internal/errors"
	"github.com/vango-dev/pagefiles/internal/metrics"
	"github.com/vango-dev/pagefiles/pkg/pagefile"
)

// DefaultTimeout bounds a single extraction.
const DefaultTimeout = 10 * time.Second

const tracerName = "github.com/vango-dev/pagefiles/internal/sandbox"

// Options configures an Extractor.
type Options struct {
	// Runtime executes bundled scripts (default: &NodeRuntime{}).
	Runtime Runtime

	// Timeout bounds each extraction (default: DefaultTimeout).
	Timeout time.Duration

	// Concurrency bounds ExtractAll (default: 4).
	Concurrency int

	// Logger receives debug output (default: slog.Default()).
	Logger *slog.Logger

	// Metrics records extraction counts and durations. May be nil.
	Metrics *metrics.Metrics

	// Tracer is used for extraction spans (default: the global provider).
	Tracer trace.Tracer

	// bundle and exports are replaced in tests.
	bundle  func(file string) ([]byte, error)
	exports func(file string) ([]string, error)
}

// Extractor reads pagefile metadata by executing each file in an isolated,
// killable process.
type Extractor struct {
	opts Options
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	if opts.Runtime == nil {
		opts.Runtime = &NodeRuntime{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.bundle == nil {
		opts.bundle = Bundle
	}
	if opts.exports == nil {
		opts.exports = Exports
	}
	return &Extractor{opts: opts}
}

// Extract returns the record for file. Every failure is reported as an
// UnableToExtractMeta error.
func (e *Extractor) Extract(ctx context.Context, file string) (pagefile.Record, error) {
	file = pagefile.Slash(file)
	native := filepath.FromSlash(file)

	ctx, span := e.opts.Tracer.Start(ctx, "pagefiles.extract",
		trace.WithAttributes(attribute.String("pagefiles.file", file)))
	defer span.End()

	start := time.Now()
	rec, err := e.extract(ctx, file, native)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.opts.Metrics.ObserveExtraction(metrics.ResultError, duration)
		e.opts.Logger.Debug("extraction failed", "file", file, "duration", duration, "error", err)
		return pagefile.Record{}, err
	}

	span.SetStatus(codes.Ok, "")
	e.opts.Metrics.ObserveExtraction(metrics.ResultOK, duration)
	e.opts.Logger.Debug("extracted", "file", file, "duration", duration, "hasMeta", rec.Meta != nil)
	return rec, nil
}

func (e *Extractor) extract(ctx context.Context, file, native string) (pagefile.Record, error) {
	script, err := e.opts.bundle(native)
	if err != nil {
		return pagefile.Record{}, extractionError(file, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	out, err := e.opts.Runtime.Run(runCtx, script)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s", e.opts.Timeout)
		}
		return pagefile.Record{}, extractionError(file, err)
	}

	rec, err := decode(file, out)
	if err != nil {
		return pagefile.Record{}, extractionError(file, err)
	}

	exports, err := e.opts.exports(native)
	if err != nil {
		return pagefile.Record{}, extractionError(file, err)
	}
	rec.Exports = exports

	return rec, nil
}

func extractionError(file string, err error) error {
	var pe *pferrors.Error
	if errors.As(err, &pe) && pe.Code == pferrors.CodeUnableToExtractMeta {
		return pe
	}
	return pferrors.UnableToExtractMeta(file, "", err)
}

// Result is the outcome of one file in a batch.
type Result struct {
	Path   string
	Record pagefile.Record
	Err    error
}

// ExtractAll extracts paths concurrently, each in its own process. One
// file's failure never affects the others. Results are in input order.
func (e *Extractor) ExtractAll(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i, p := range paths {
		g.Go(func() error {
			rec, err := e.Extract(gctx, p)
			results[i] = Result{Path: pagefile.Slash(p), Record: rec, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
