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
	"sort"
	"sync"
	"time"
)

// DirtyEntry contains metadata about a dirty module.
type DirtyEntry struct {
	// Module is the module name.
	Module string

	// MarkedAt is when the module was marked dirty.
	MarkedAt time.Time

	// Path is the source file whose change dirtied the module.
	Path string
}

// DirtyTracker accumulates modules whose source files changed since the
// last analysis run.
//
// Description:
//
//	The watcher marks modules dirty as file events arrive; the re-analysis
//	loop drains the set and feeds it to a scoped pipeline run. Marking is
//	idempotent: a module dirtied twice between drains appears once.
//
// Thread Safety:
//
//	All methods are safe for concurrent use.
type DirtyTracker struct {
	mu    sync.RWMutex
	dirty map[string]DirtyEntry
}

// NewDirtyTracker creates a new tracker.
func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{
		dirty: make(map[string]DirtyEntry),
	}
}

// MarkDirty marks a module as needing re-analysis.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (d *DirtyTracker) MarkDirty(module, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// First change wins the timestamp; later ones just confirm dirtiness.
	if _, ok := d.dirty[module]; ok {
		return
	}
	d.dirty[module] = DirtyEntry{
		Module:   module,
		MarkedAt: time.Now(),
		Path:     path,
	}
}

// IsDirty reports whether the module is currently marked.
func (d *DirtyTracker) IsDirty(module string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.dirty[module]
	return ok
}

// Count returns the number of dirty modules.
func (d *DirtyTracker) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.dirty)
}

// Drain returns the dirty module names sorted by name and clears the set.
//
// Thread Safety:
//
//	Safe for concurrent use. Modules marked during a Drain land in the
//	next batch.
func (d *DirtyTracker) Drain() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.dirty) == 0 {
		return nil
	}
	modules := make([]string, 0, len(d.dirty))
	for name := range d.dirty {
		modules = append(modules, name)
	}
	sort.Strings(modules)
	d.dirty = make(map[string]DirtyEntry)
	return modules
}
