// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-runs scoped documentation analysis when source files
// change. It maps file-system events to owning modules, accumulates them
// in a dirty set, and hands debounced batches to a re-analysis callback.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ModuleResolver maps a source file path to its owning module.
type ModuleResolver interface {
	ModuleForSourceFile(path string) (string, bool)
}

// ReanalyzeFunc is called with a debounced batch of dirty module names.
type ReanalyzeFunc func(ctx context.Context, modules []string)

// Options configures the SourceWatcher.
type Options struct {
	// Debounce is how long to wait for more changes before triggering.
	// Default: 500ms
	Debounce time.Duration

	// IgnorePatterns are names for files/directories to skip.
	// Default: [".git", "build", ".lake", "*.swp", "*.tmp"]
	IgnorePatterns []string

	// BufferSize is the size of the internal event channel.
	// Default: 1000
	BufferSize int

	// Logger receives watcher diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Debounce:       500 * time.Millisecond,
		IgnorePatterns: []string{".git", "build", ".lake", "*.swp", "*.tmp"},
		BufferSize:     1000,
	}
}

// SourceWatcher watches source roots and triggers scoped re-analysis.
//
// # Description
//
// File events are resolved to owning modules through the ModuleResolver;
// files that resolve to no module are ignored. Dirty modules accumulate in
// a DirtyTracker, and once the debounce window closes without further
// events, the whole batch is drained and passed to the re-analysis
// callback.
//
// # Thread Safety
//
// Safe for concurrent use. The callback runs on a single goroutine.
type SourceWatcher struct {
	watcher   *fsnotify.Watcher
	resolver  ModuleResolver
	reanalyze ReanalyzeFunc
	tracker   *DirtyTracker
	options   Options
	marks     chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	mu        sync.RWMutex
	watching  bool
}

// NewSourceWatcher creates a watcher over the given source roots.
//
// # Inputs
//
//   - roots: Directories to watch recursively.
//   - resolver: Maps changed files to owning modules. Must not be nil.
//   - reanalyze: Called with each drained dirty batch. Must not be nil.
//   - opts: Optional configuration (nil uses defaults).
func NewSourceWatcher(roots []string, resolver ModuleResolver, reanalyze ReanalyzeFunc, opts *Options) (*SourceWatcher, error) {
	options := DefaultOptions()
	if opts != nil {
		if opts.Debounce > 0 {
			options.Debounce = opts.Debounce
		}
		if opts.IgnorePatterns != nil {
			options.IgnorePatterns = opts.IgnorePatterns
		}
		if opts.BufferSize > 0 {
			options.BufferSize = opts.BufferSize
		}
		if opts.Logger != nil {
			options.Logger = opts.Logger
		}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &SourceWatcher{
		watcher:   fsw,
		resolver:  resolver,
		reanalyze: reanalyze,
		tracker:   NewDirtyTracker(),
		options:   options,
		marks:     make(chan struct{}, options.BufferSize),
		done:      make(chan struct{}),
	}
	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Start begins watching. Spawns the event processor and the debounce loop;
// both exit when Stop is called or the context is cancelled.
func (w *SourceWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return
	}
	w.watching = true
	w.mu.Unlock()

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
}

// Stop stops the watcher.
func (w *SourceWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching returns true if the watcher is currently active.
func (w *SourceWatcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// Tracker exposes the dirty set, mainly for tests and status surfaces.
func (w *SourceWatcher) Tracker() *DirtyTracker { return w.tracker }

// addRecursive adds a directory and all subdirectories to the watch list.
func (w *SourceWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if !d.IsDir() {
			return nil
		}
		if w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// shouldIgnore checks if a path matches any ignore pattern.
func (w *SourceWatcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.options.IgnorePatterns {
		if base == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// processEvents resolves fsnotify events to modules and marks them dirty.
func (w *SourceWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.shouldIgnore(event.Name) {
				continue
			}

			// New directories need their own watch registration.
			if event.Has(fsnotify.Create) {
				if isDir(event.Name) {
					if err := w.watcher.Add(event.Name); err != nil {
						w.options.Logger.Warn("failed to watch new directory",
							slog.String("path", event.Name),
							slog.String("error", err.Error()),
						)
					}
					continue
				}
			}

			module, ok := w.resolver.ModuleForSourceFile(event.Name)
			if !ok {
				continue
			}
			w.tracker.MarkDirty(module, event.Name)

			select {
			case w.marks <- struct{}{}:
			default:
				// Debounce loop already has a pending wakeup.
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.options.Logger.Warn("file watcher error",
				slog.String("error", err.Error()),
			)
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// debounceLoop drains the dirty set after the debounce window closes and
// invokes the re-analysis callback with the batch.
func (w *SourceWatcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if modules := w.tracker.Drain(); len(modules) > 0 {
			w.options.Logger.Info("re-analyzing dirty modules",
				slog.Int("count", len(modules)),
			)
			w.reanalyze(ctx, modules)
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case <-w.marks:
			if timer == nil {
				timer = time.NewTimer(w.options.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.options.Debounce)
			}
		case <-timerC:
			flush()
		}
	}
}
