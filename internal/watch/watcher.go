package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/studydocs/internal/logging"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// eventBuffer is the capacity of the Events channel. Changes arriving while
// it is full are dropped.
const eventBuffer = 64

// Op is the kind of change observed for a document.
type Op int

const (
	// Created indicates a new document or directory appeared.
	Created Op = iota

	// Modified indicates a document's contents were written.
	Modified

	// Removed indicates a document or directory was deleted or renamed away.
	Removed
)

// String returns the lowercase name used in logs and metric labels.
func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a change to a path under the watched root.
type Event struct {
	// Op is the kind of change.
	Op Op

	// Path is slash-separated and relative to the root.
	Path string

	// Dir is true when the path is a directory.
	Dir bool

	// Time is when the change was observed.
	Time time.Time
}

// Filter decides which paths are ignored. *corpus.Corpus satisfies it.
type Filter interface {
	Skipped(rel string, isDir bool) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(rel string, isDir bool) bool

// Skipped calls f.
func (f FilterFunc) Skipped(rel string, isDir bool) bool {
	return f(rel, isDir)
}

// Watcher reports document changes under a root directory. Every directory
// the filter does not skip is watched, including ones created later.
type Watcher struct {
	root    string
	filter  Filter
	logger  *logging.Logger
	metrics *Metrics

	watcher *fsnotify.Watcher
	events  chan Event
	stop    chan struct{}

	mu   sync.Mutex
	dirs map[string]struct{}
}

// New creates a watcher for root. A nil filter skips nothing.
func New(root string, filter Filter, logger *logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	if filter == nil {
		filter = FilterFunc(func(string, bool) bool { return false })
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		root:    abs,
		filter:  filter,
		logger:  logger.Named("watch"),
		metrics: NewMetrics(),
		watcher: watcher,
		events:  make(chan Event, eventBuffer),
		stop:    make(chan struct{}),
		dirs:    make(map[string]struct{}),
	}, nil
}

// Root returns the absolute directory being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Start adds the directory tree to the watcher and begins delivering events
// in a background goroutine. The Events channel is closed once ctx is done
// or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("watching root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watching root: %s is not a directory", w.root)
	}

	if err := w.addTree(ctx, w.root); err != nil {
		return err
	}
	w.logger.Info(ctx, "watching documents",
		zap.String("root", w.root),
		zap.Int("directories", w.watchedCount()),
	)

	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and releases its resources. It is safe to call more
// than once.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

// Events returns the channel of observed changes.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Watching reports whether the directory at rel is currently watched.
func (w *Watcher) Watching(rel string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.dirs[filepath.Join(w.root, filepath.FromSlash(rel))]
	return ok
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.metrics.ErrorsTotal.Inc()
			w.logger.Warn(ctx, "watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	rel, ok := w.relative(ev.Name)
	if !ok {
		return
	}

	switch {
	case ev.Op&fsnotify.Create == fsnotify.Create:
		info, err := os.Lstat(ev.Name)
		if err != nil {
			// Already gone again.
			return
		}
		if w.filter.Skipped(rel, info.IsDir()) {
			return
		}
		if info.IsDir() {
			if err := w.addTree(ctx, ev.Name); err != nil {
				w.logger.Warn(ctx, "watching new directory", zap.String("path", rel), zap.Error(err))
			}
		}
		w.emit(ctx, Event{Op: Created, Path: rel, Dir: info.IsDir(), Time: time.Now()})

	case ev.Op&fsnotify.Write == fsnotify.Write:
		if w.filter.Skipped(rel, false) {
			return
		}
		w.emit(ctx, Event{Op: Modified, Path: rel, Time: time.Now()})

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		isDir := w.forget(ev.Name)
		if w.filter.Skipped(rel, isDir) {
			return
		}
		w.emit(ctx, Event{Op: Removed, Path: rel, Dir: isDir, Time: time.Now()})
	}
}

// emit never blocks; a full channel drops the event.
func (w *Watcher) emit(ctx context.Context, ev Event) {
	select {
	case w.events <- ev:
		w.metrics.EventsTotal.WithLabelValues(ev.Op.String()).Inc()
		w.logger.Debug(ctx, "document changed",
			zap.String("op", ev.Op.String()),
			zap.String("path", ev.Path),
		)
	default:
		w.metrics.DroppedTotal.Inc()
		w.logger.Warn(ctx, "dropping change event, consumer is busy",
			zap.String("op", ev.Op.String()),
			zap.String("path", ev.Path),
		)
	}
}

// addTree watches dir and every non-skipped directory below it.
func (w *Watcher) addTree(ctx context.Context, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == dir {
				return fmt.Errorf("walking %s: %w", path, err)
			}
			w.logger.Warn(ctx, "skipping unreadable directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root {
			rel, ok := w.relative(path)
			if !ok || w.filter.Skipped(rel, true) {
				return filepath.SkipDir
			}
		}

		if err := w.watcher.Add(path); err != nil {
			if path == dir {
				return fmt.Errorf("watching %s: %w", path, err)
			}
			w.logger.Warn(ctx, "skipping directory", zap.String("path", path), zap.Error(err))
			return filepath.SkipDir
		}
		w.mu.Lock()
		w.dirs[path] = struct{}{}
		w.metrics.WatchedDirs.Set(float64(len(w.dirs)))
		w.mu.Unlock()
		return nil
	})
}

// forget drops path and anything below it from the watched set. It reports
// whether path itself was a watched directory.
func (w *Watcher) forget(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, wasDir := w.dirs[path]
	prefix := path + string(filepath.Separator)
	for dir := range w.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			// Watches on a renamed tree outlive the old path.
			_ = w.watcher.Remove(dir)
			delete(w.dirs, dir)
		}
	}
	w.metrics.WatchedDirs.Set(float64(len(w.dirs)))
	return wasDir
}

func (w *Watcher) watchedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

// relative converts an absolute event path to a root-relative slash path.
func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}
