// Package watcher observes the document store directory and signals when
// its contents change. Consumers run a sync pass per signal; the watcher
// itself carries no per-file state, since the sync engine re-derives the
// change set from content digests anyway.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options configures a Watcher.
type Options struct {
	// DebounceWindow is how long to wait after the last relevant event
	// before signaling. Batches editor save-storms into one sync.
	DebounceWindow time.Duration
}

// WithDefaults fills unset options.
func (o Options) WithDefaults() Options {
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = 500 * time.Millisecond
	}
	return o
}

// Watcher watches a directory tree for markdown document changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	opts      Options
	rootPath  string

	triggers chan struct{}
	errs     chan error
	stopCh   chan struct{}

	mu      sync.Mutex
	stopped bool
}

// New creates a Watcher with the given options.
func New(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		opts:      opts.WithDefaults(),
		triggers:  make(chan struct{}, 1),
		errs:      make(chan error, 10),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start watches path and its subdirectories until ctx is cancelled or
// Stop is called. Blocks; run it in a goroutine.
func (w *Watcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve watch root: %w", err)
	}
	w.rootPath = absPath

	if err := w.addRecursive(absPath); err != nil {
		return fmt.Errorf("failed to watch directories: %w", err)
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-timerC:
			timerC = nil
			w.signal()
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.DebounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.opts.DebounceWindow)
			}
			timerC = timer.C
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// relevant filters raw fsnotify events down to ones worth a sync pass.
// New month directories are added to the watch set as they appear.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod != 0 {
		return false
	}

	relPath, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil || relPath == "." || strings.HasPrefix(relPath, ".") {
		return false
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsWatcher.Add(event.Name); err != nil {
				slog.Warn("failed to watch new directory",
					slog.String("path", event.Name),
					slog.String("error", err.Error()))
			}
			return false
		}
	}

	return strings.HasSuffix(event.Name, ".md")
}

// addRecursive adds root and every non-hidden subdirectory to the watch set.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we can't access
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// signal delivers a trigger without blocking. A pending trigger already
// covers any changes seen since, so coalescing is safe. The mutex is held
// across the send so Stop cannot close the channel mid-delivery.
func (w *Watcher) signal() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	select {
	case w.triggers <- struct{}{}:
	default:
	}
}

// emitError sends an error without blocking. Same locking discipline as
// signal: the send happens under the mutex that guards Stop's close.
func (w *Watcher) emitError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	select {
	case w.errs <- err:
	default:
	}
}

// Stop stops the watcher and releases resources. Safe to call twice.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)

	_ = w.fsWatcher.Close()

	close(w.triggers)
	close(w.errs)
	return nil
}

// Triggers returns the channel that fires once per debounced change burst.
func (w *Watcher) Triggers() <-chan struct{} {
	return w.triggers
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}
