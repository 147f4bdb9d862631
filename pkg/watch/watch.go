// Package watch reports batches of changed source files below a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period that closes a batch of changes.
const DefaultDebounce = 200 * time.Millisecond

// ErrClosed indicates the watcher was closed while running.
var ErrClosed = errors.New("watcher closed")

// Handler receives a batch of changed paths, sorted and deduplicated.
// A returned error is logged; watching continues.
type Handler func(ctx context.Context, changed []string) error

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period that closes a batch. Zero uses DefaultDebounce.
	Debounce time.Duration
	// Extensions limits events to files with these extensions. Empty accepts all.
	Extensions []string
	// Ignore lists directory base names that are never watched.
	Ignore []string
	Logger *slog.Logger
}

// DefaultIgnore lists directories skipped by default.
func DefaultIgnore() []string {
	return []string{".git", "node_modules", "cache", "artifacts", "out"}
}

// Watcher watches a directory tree.
type Watcher struct {
	root    string
	opts    Options
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// New creates a watcher over every directory below root.
func New(root string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	if opts.Ignore == nil {
		opts.Ignore = DefaultIgnore()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{root: root, opts: opts, watcher: fsw, logger: logger}

	err = w.addRecursive(root)
	if err != nil {
		_ = fsw.Close()

		return nil, err
	}

	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	if err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}

	return nil
}

// Run delivers debounced batches to handler until ctx is done. It returns
// nil on cancellation and ErrClosed if the watcher is closed underneath it.
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	pending := make(map[string]struct{})

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return ErrClosed
			}

			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if !w.ignored(event.Name) {
					addErr := w.addRecursive(event.Name)
					if addErr != nil {
						w.logger.WarnContext(ctx, "watch new directory", "path", event.Name, "error", addErr)
					}
				}

				continue
			}

			if !w.Relevant(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}

			pending[event.Name] = struct{}{}

			timer.Reset(w.opts.Debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return ErrClosed
			}

			w.logger.WarnContext(ctx, "watch error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}

			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}

			slices.Sort(changed)
			clear(pending)

			handlerErr := handler(ctx, changed)
			if handlerErr != nil {
				w.logger.ErrorContext(ctx, "handle changes", "files", len(changed), "error", handlerErr)
			}
		}
	}
}

// Relevant reports whether a change to path should trigger the handler.
func (w *Watcher) Relevant(path string) bool {
	if rel, err := filepath.Rel(w.root, path); err == nil {
		for _, segment := range strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/") {
			if slices.Contains(w.opts.Ignore, segment) {
				return false
			}
		}
	}

	if len(w.opts.Extensions) == 0 {
		return true
	}

	ext := filepath.Ext(path)

	return slices.ContainsFunc(w.opts.Extensions, func(want string) bool {
		return strings.EqualFold(want, ext)
	})
}

func (w *Watcher) ignored(path string) bool {
	return slices.Contains(w.opts.Ignore, filepath.Base(path))
}

func (w *Watcher) addRecursive(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}

		return w.watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
