package registry

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vango-dev/pagefiles/internal/metrics"
	"github.com/vango-dev/pagefiles/internal/sandbox"
	"github.com/vango-dev/pagefiles/pkg/pagefile"
)

// DefaultCacheSize is the number of extraction results kept by content hash.
const DefaultCacheSize = 512

// Extractor produces records for files.
type Extractor interface {
	Extract(ctx context.Context, path string) (pagefile.Record, error)
	ExtractAll(ctx context.Context, paths []string) []sandbox.Result
}

// Options configures a Registry.
type Options struct {
	// Extractor runs the sandbox. Required.
	Extractor Extractor

	// CacheSize bounds the content-addressed cache. Zero means
	// DefaultCacheSize; negative disables caching.
	CacheSize int

	// Logger receives debug output (default: slog.Default()).
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *metrics.Metrics

	// ReadFile reads file contents for hashing (default: os.ReadFile).
	ReadFile func(path string) ([]byte, error)
}

type cacheKey struct {
	path string
	sum  uint64
}

// Registry maps file paths to their last successfully extracted record.
type Registry struct {
	mu      sync.Mutex
	records map[string]pagefile.Record

	extractor Extractor
	cache     *lru.Cache[cacheKey, pagefile.Record]
	readFile  func(string) ([]byte, error)
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates an empty Registry.
func New(opts Options) *Registry {
	r := &Registry{
		records:   make(map[string]pagefile.Record),
		extractor: opts.Extractor,
		readFile:  opts.ReadFile,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if r.readFile == nil {
		r.readFile = os.ReadFile
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	size := opts.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		// lru.New only fails for a non-positive size.
		r.cache, _ = lru.New[cacheKey, pagefile.Record](size)
	}
	return r
}

// AddOrUpdate extracts path and stores the result. On failure any previous
// record for path is dropped and the extraction error is returned, so the
// registry never holds a record whose latest extraction failed.
func (r *Registry) AddOrUpdate(ctx context.Context, path string) error {
	path = pagefile.Slash(path)

	key, ok := r.key(path)
	if ok {
		if rec, hit := r.cache.Get(key); hit {
			r.logger.Debug("extraction cache hit", "file", path)
			r.metrics.ObserveExtraction(metrics.ResultCached, 0)
			r.merge(path, key, ok, rec, nil)
			return nil
		}
	}

	rec, err := r.extractor.Extract(ctx, path)
	return r.merge(path, key, ok, rec, err)
}

// AddAll extracts paths concurrently and merges the results one at a time
// in input order. It returns the failures, also in input order.
func (r *Registry) AddAll(ctx context.Context, paths []string) []error {
	type pending struct {
		path  string
		key   cacheKey
		keyed bool
	}

	var (
		misses  []pending
		toFetch []string
		errs    []error
	)

	for _, p := range paths {
		p = pagefile.Slash(p)
		key, ok := r.key(p)
		if ok {
			if rec, hit := r.cache.Get(key); hit {
				r.metrics.ObserveExtraction(metrics.ResultCached, 0)
				r.merge(p, key, ok, rec, nil)
				continue
			}
		}
		misses = append(misses, pending{path: p, key: key, keyed: ok})
		toFetch = append(toFetch, p)
	}

	if len(toFetch) == 0 {
		return nil
	}

	results := r.extractor.ExtractAll(ctx, toFetch)
	for i, res := range results {
		m := misses[i]
		if err := r.merge(m.path, m.key, m.keyed, res.Record, res.Err); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Remove deletes the record for path. Removing an unknown path is a no-op.
func (r *Registry) Remove(path string) {
	path = pagefile.Slash(path)

	r.mu.Lock()
	delete(r.records, path)
	n := len(r.records)
	r.mu.Unlock()

	r.metrics.SetPagefiles(n)
}

// Get returns a copy of the record for path.
func (r *Registry) Get(path string) (pagefile.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[pagefile.Slash(path)]
	if !ok {
		return pagefile.Record{}, false
	}
	return rec.Clone(), true
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Snapshot returns deep copies of all records sorted by path. Callers may
// modify the result freely.
func (r *Registry) Snapshot() []pagefile.Record {
	r.mu.Lock()
	out := make([]pagefile.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out
}

func (r *Registry) merge(path string, key cacheKey, keyed bool, rec pagefile.Record, err error) error {
	r.mu.Lock()
	if err != nil {
		delete(r.records, path)
	} else {
		rec.FilePath = path
		r.records[path] = rec.Clone()
	}
	n := len(r.records)
	r.mu.Unlock()

	r.metrics.SetPagefiles(n)

	if err != nil {
		return err
	}
	if keyed {
		r.cache.Add(key, rec.Clone())
	}
	return nil
}

// key hashes the current contents of path. ok is false when caching is off
// or the file cannot be read.
func (r *Registry) key(path string) (cacheKey, bool) {
	if r.cache == nil {
		return cacheKey{}, false
	}
	data, err := r.readFile(path)
	if err != nil {
		return cacheKey{}, false
	}
	return cacheKey{path: path, sum: xxhash.Sum64(data)}, true
}
