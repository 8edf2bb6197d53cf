package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goliatone/go-lessons/internal/logging"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

// DefaultDebounce is the quiet period after the last event before a rebuild.
const DefaultDebounce = 250 * time.Millisecond

// Trigger is invoked once per quiet period with the slash separated paths,
// relative to the watched root, that changed since the previous call.
type Trigger func(ctx context.Context, paths []string) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher observes a content tree and batches changes into Trigger calls.
// Hidden files and directories are ignored.
type Watcher struct {
	root     string
	trigger  Trigger
	debounce time.Duration
	logger   interfaces.Logger
	started  chan struct{}
}

// New constructs a Watcher for root.
func New(root string, trigger Trigger, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		trigger:  trigger,
		debounce: DefaultDebounce,
		logger:   logging.NoOp(),
		started:  make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Started is closed once every directory is being watched.
func (w *Watcher) Started() <-chan struct{} {
	return w.started
}

// Run watches until ctx is cancelled. Trigger failures are logged and do not
// stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if w.trigger == nil {
		return errors.New("watch: trigger is required")
	}
	root, err := filepath.Abs(w.root)
	if err != nil {
		return fmt.Errorf("watch: resolve root: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer fw.Close()

	if err := addTree(fw, root); err != nil {
		return err
	}
	close(w.started)

	logger := w.logger.WithContext(ctx)
	logger.Info("watch.started", "root", root, "debounce_ms", w.debounce.Milliseconds())

	pending := map[string]struct{}{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("watch.stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			rel, ok := relativePath(root, event.Name)
			if !ok {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(fw, event.Name); err != nil {
						logger.Warn("watch.add_failed", "path", rel, "error", err)
					}
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			pending[rel] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch.error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)

			if err := w.trigger(ctx, paths); err != nil {
				logger.Error("watch.rebuild_failed", "paths", len(paths), "error", err)
				continue
			}
			logger.Debug("watch.rebuilt", "paths", len(paths))
		}
	}
}

func addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.Add(p); err != nil {
			return fmt.Errorf("watch: add %s: %w", p, err)
		}
		return nil
	})
}

// relativePath reports the slash separated path of name below root, refusing
// anything outside root or inside a hidden entry.
func relativePath(root, name string) (string, bool) {
	rel, err := filepath.Rel(root, name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, segment := range strings.Split(rel, "/") {
		if strings.HasPrefix(segment, ".") {
			return "", false
		}
	}
	return rel, true
}
