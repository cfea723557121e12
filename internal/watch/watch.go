// Package watch reports batches of changed Python files under a directory
// tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/routable/routable-lint/internal/input"
)

const DefaultDebounce = 300 * time.Millisecond

// Watcher watches root recursively. Events for matching files are collected
// until no new event arrives for the debounce interval, then delivered as one
// batch.
type Watcher struct {
	root     string
	debounce time.Duration
	skip     func(rel string) bool
	ready    func()
	logger   *slog.Logger
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithSkip excludes paths, given relative to root, from watching and from
// batches.
func WithSkip(skip func(rel string) bool) Option {
	return func(w *Watcher) { w.skip = skip }
}

// WithReady registers a callback invoked once the initial watches are in
// place.
func WithReady(ready func()) Option {
	return func(w *Watcher) { w.ready = ready }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

func New(root string, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		debounce: DefaultDebounce,
		skip:     func(string) bool { return false },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return rel
}

func (w *Watcher) skipDir(path string) bool {
	if path == w.root {
		return false
	}
	return strings.HasPrefix(filepath.Base(path), ".") || w.skip(w.rel(path))
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipDir(path) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

// Run blocks until ctx is done, calling onChange with each batch of changed
// paths in sorted order. Paths may name files that were since removed.
// onChange runs on the watch goroutine; events arriving meanwhile are queued.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init failed: %w", err)
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.root); err != nil {
		return fmt.Errorf("watching %s: %w", w.root, err)
	}
	w.logger.Info("watching for changes", "root", w.root, "debounce", w.debounce)
	if w.ready != nil {
		w.ready()
	}

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.handle(fw, ev, pending) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			onChange(ctx, paths)
		}
	}
}

// handle records ev and reports whether it should (re)start the debounce
// timer.
func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event, pending map[string]bool) bool {
	if ev.Has(fsnotify.Create) && !w.skipDir(ev.Name) {
		if err := w.addRecursive(fw, ev.Name); err != nil {
			w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
		}
	}
	if !input.IsPython(ev.Name) || w.skip(w.rel(ev.Name)) {
		return false
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	w.logger.Debug("file changed", "path", ev.Name, "op", ev.Op.String())
	pending[ev.Name] = true
	return true
}
