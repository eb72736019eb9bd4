// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// mapResolver maps exact file paths to module names.
type mapResolver struct {
	mu      sync.Mutex
	modules map[string]string
}

func (r *mapResolver) ModuleForSourceFile(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[path]
	return m, ok
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSourceWatcher_DebouncedBatchReachesCallback(t *testing.T) {
	dir := t.TempDir()
	fileA := filepath.Join(dir, "A.lean")
	fileB := filepath.Join(dir, "B.lean")
	resolver := &mapResolver{modules: map[string]string{
		fileA: "Core.A",
		fileB: "Core.B",
	}}

	batches := make(chan []string, 8)
	reanalyze := func(_ context.Context, modules []string) {
		batches <- modules
	}

	w, err := NewSourceWatcher([]string{dir}, resolver, reanalyze, &Options{
		Debounce: 50 * time.Millisecond,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSourceWatcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	if !w.IsWatching() {
		t.Fatal("watcher should be active after Start")
	}

	if err := os.WriteFile(fileA, []byte("def a := 1"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fileB, []byte("def b := 2"), 0644); err != nil {
		t.Fatal(err)
	}

	// The two writes may flush as one batch or two depending on event
	// timing; what matters is that both dirty modules come through.
	seen := make(map[string]bool)
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case batch := <-batches:
			for _, m := range batch {
				seen[m] = true
			}
		case <-deadline:
			t.Fatalf("timed out waiting for dirty batch, saw %v", seen)
		}
	}
	if !seen["Core.A"] || !seen["Core.B"] {
		t.Errorf("batches = %v, want Core.A and Core.B", seen)
	}
}

func TestSourceWatcher_UnresolvedFilesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	known := filepath.Join(dir, "Known.lean")
	resolver := &mapResolver{modules: map[string]string{known: "Known"}}

	batches := make(chan []string, 8)
	w, err := NewSourceWatcher([]string{dir}, resolver, func(_ context.Context, modules []string) {
		batches <- modules
	}, &Options{
		Debounce: 50 * time.Millisecond,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSourceWatcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	// The stray file resolves to no module; only Known should flush.
	if err := os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(known, []byte("def k := 1"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case batch := <-batches:
		if len(batch) != 1 || batch[0] != "Known" {
			t.Errorf("batch = %v, want [Known]", batch)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for dirty batch")
	}
}

func TestSourceWatcher_ShouldIgnore(t *testing.T) {
	w, err := NewSourceWatcher(nil, &mapResolver{}, func(context.Context, []string) {}, &Options{
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSourceWatcher: %v", err)
	}
	defer w.Stop()

	tests := []struct {
		path string
		want bool
	}{
		{"/src/.git", true},
		{"/src/build", true},
		{"/src/.lake", true},
		{"/src/editor.swp", true},
		{"/src/scratch.tmp", true},
		{"/src/Core/Data.lean", false},
		{"/src/building.lean", false},
	}
	for _, tt := range tests {
		if got := w.shouldIgnore(tt.path); got != tt.want {
			t.Errorf("shouldIgnore(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSourceWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewSourceWatcher(nil, &mapResolver{}, func(context.Context, []string) {}, &Options{
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSourceWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	w.Stop()
	w.Stop()
	if w.IsWatching() {
		t.Error("watcher should be inactive after Stop")
	}
}
