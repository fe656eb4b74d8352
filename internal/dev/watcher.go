package dev

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/pagefiles/internal/metrics"
	"github.com/vango-dev/pagefiles/pkg/pagefile"
)

// DefaultIgnore contains directory names that are never watched.
var DefaultIgnore = []string{
	"node_modules",
	".git",
	"dist",
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Root is the directory to watch recursively.
	Root string

	// Matcher selects the files that produce events.
	Matcher *pagefile.Matcher

	// Ignore lists directory names to skip. Dot-directories are always
	// skipped.
	Ignore []string

	// Debounce is the quiet period before pending events are delivered.
	Debounce time.Duration

	// Logger (default: slog.Default()).
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Watcher turns file system notifications into pagefile events.
type Watcher struct {
	config  WatcherConfig
	mu      sync.Mutex
	onEvent func(Event)
	running bool

	// pending events, in order of first occurrence.
	pending map[string]Op
	order   []string

	// known holds the matched files currently on disk, so removing a
	// directory can remove the files inside it.
	known map[string]struct{}
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = 50 * time.Millisecond
	}
	if config.Ignore == nil {
		config.Ignore = DefaultIgnore
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if abs, err := filepath.Abs(config.Root); err == nil {
		config.Root = abs
	}

	return &Watcher{
		config:  config,
		pending: make(map[string]Op),
		known:   make(map[string]struct{}),
	}
}

// OnEvent sets the callback for pagefile events.
func (w *Watcher) OnEvent(fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onEvent = fn
}

// Start watches Root until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.config.Root); err != nil {
		return err
	}
	w.config.Logger.Debug("watcher started", "root", w.config.Root)

	timer := time.NewTimer(w.config.Debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case <-timer.C:
			w.flush()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handle(fw, ev) {
				timer.Reset(w.config.Debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.config.Logger.Error("watcher error", "error", err)
		}
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// handle queues the events for one notification and reports whether any
// were queued.
func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	name := ev.Name

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if w.ignored(name) {
				return false
			}
			if err := w.addRecursive(fw, name); err != nil {
				w.config.Logger.Warn("watcher: add dir failed", "path", name, "error", err)
			}
			// Files may have landed before the directory was watched.
			queued := false
			_ = filepath.WalkDir(name, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if d.IsDir() {
					if path != name && w.ignored(path) {
						return filepath.SkipDir
					}
					return nil
				}
				if w.config.Matcher.Matches(path) {
					w.queue(path, OpAdd)
					queued = true
				}
				return nil
			})
			return queued
		}
	}

	if !w.config.Matcher.Matches(name) {
		if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
			return w.removeTree(fw, name)
		}
		return false
	}
	if w.ignored(filepath.Dir(name)) {
		return false
	}

	switch {
	case ev.Has(fsnotify.Create):
		w.queue(name, OpAdd)
	case ev.Has(fsnotify.Write):
		w.queue(name, OpChange)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// The new name of a rename arrives as its own Create.
		w.queue(name, OpRemove)
	default:
		return false
	}
	return true
}

// queue records op for path, folding it into any pending op.
func (w *Watcher) queue(path string, op Op) {
	path = pagefile.Slash(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if op == OpRemove {
		delete(w.known, path)
	} else {
		w.known[path] = struct{}{}
	}

	prev, ok := w.pending[path]
	if !ok {
		w.pending[path] = op
		w.order = append(w.order, path)
		return
	}
	w.pending[path] = coalesce(prev, op)
}

// removeTree queues a remove for every known file under dir and drops the
// watches below it. A renamed directory keeps its inotify watches, which
// would otherwise report events under the old path.
func (w *Watcher) removeTree(fw *fsnotify.Watcher, dir string) bool {
	prefix := pagefile.Slash(dir) + "/"

	w.mu.Lock()
	var files []string
	for path := range w.known {
		if strings.HasPrefix(path, prefix) {
			files = append(files, path)
		}
	}
	w.mu.Unlock()

	if fw != nil {
		for _, watched := range fw.WatchList() {
			if watched == dir || strings.HasPrefix(pagefile.Slash(watched), prefix) {
				_ = fw.Remove(watched)
			}
		}
	}

	slices.Sort(files)
	for _, path := range files {
		w.queue(path, OpRemove)
	}
	return len(files) > 0
}

// coalesce folds next into a pending prev for the same path.
func coalesce(prev, next Op) Op {
	switch {
	case prev == OpAdd && next == OpChange:
		return OpAdd
	case prev == OpRemove && next != OpRemove:
		// Atomic saves replace the file.
		return OpChange
	default:
		return next
	}
}

// flush delivers pending events in order.
func (w *Watcher) flush() {
	w.mu.Lock()
	callback := w.onEvent
	events := make([]Event, 0, len(w.order))
	for _, path := range w.order {
		events = append(events, Event{Op: w.pending[path], Path: path})
	}
	w.pending = make(map[string]Op)
	w.order = nil
	w.mu.Unlock()

	for _, ev := range events {
		w.config.Metrics.ObserveWatchEvent(string(ev.Op))
		w.config.Logger.Debug("watcher event", "op", string(ev.Op), "file", ev.Path)
		if callback != nil {
			callback(ev)
		}
	}
}

// addRecursive adds root and all its subdirectories to the watcher and
// records the matched files found there.
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if w.config.Matcher.Matches(path) {
				w.mu.Lock()
				w.known[pagefile.Slash(path)] = struct{}{}
				w.mu.Unlock()
			}
			return nil
		}
		if path != w.config.Root && ignoredDir(d.Name(), w.config.Ignore) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

// ignored reports whether dir, or any directory between Root and dir, is
// skipped.
func (w *Watcher) ignored(dir string) bool {
	rel, err := filepath.Rel(w.config.Root, dir)
	if err != nil || rel == "." {
		return false
	}
	for _, segment := range splitPathSegments(filepath.ToSlash(rel)) {
		if segment == ".." || ignoredDir(segment, w.config.Ignore) {
			return true
		}
	}
	return false
}

// ignoredDir reports whether a directory named name is skipped.
func ignoredDir(name string, ignore []string) bool {
	if strings.HasPrefix(name, ".") && name != "." && name != ".." {
		return true
	}
	for _, pattern := range ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if name == pattern {
			return true
		}
		if strings.ContainsAny(pattern, "*?[") {
			if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
		}
	}
	return false
}

func splitPathSegments(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
