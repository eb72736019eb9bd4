// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package env

import (
	"sync"

	"github.com/google/uuid"
)

// moduleEntry holds the per-module state of a snapshot.
type moduleEntry struct {
	imports    []string
	docs       []DocComment
	sourceFile string
}

// Snapshot is an immutable in-memory Environment.
//
// Snapshots are constructed through SnapshotBuilder and never mutated
// afterwards, with one deliberate exception: module indices are assigned
// lazily on first ModuleIndex lookup, under a mutex. This mirrors host
// compilers that intern module indices on demand, and it means index order
// can differ from LoadedModules order, so consumers must resolve indices
// through ModuleIndex at the point of use.
//
// Thread Safety: safe for concurrent use.
type Snapshot struct {
	id        string
	names     []string
	modules   map[string]*moduleEntry
	constants map[string]ConstantInfo
	owners    map[string]string

	idxMu   sync.Mutex
	indices map[string]int
}

// SnapshotID returns the snapshot's unique identifier.
func (s *Snapshot) SnapshotID() string { return s.id }

// LoadedModules returns every module name, in registration order.
func (s *Snapshot) LoadedModules() []string { return s.names }

// ModuleImports returns the direct imports of a module.
func (s *Snapshot) ModuleImports(module string) []string {
	if e, ok := s.modules[module]; ok {
		return e.imports
	}
	return nil
}

// ModuleDocComments returns the module-level doc blocks of a module.
func (s *Snapshot) ModuleDocComments(module string) []DocComment {
	if e, ok := s.modules[module]; ok {
		return e.docs
	}
	return nil
}

// ForEachConstant iterates the constant table in map order, which is
// unspecified by design.
func (s *Snapshot) ForEachConstant(fn func(name string, info ConstantInfo) bool) {
	for name, info := range s.constants {
		if !fn(name, info) {
			return
		}
	}
}

// OwningModule resolves a declaration to its owning module.
func (s *Snapshot) OwningModule(decl string) (string, bool) {
	m, ok := s.owners[decl]
	return m, ok
}

// ModuleIndex resolves a module to its dense index, assigning indices
// lazily in lookup order.
func (s *Snapshot) ModuleIndex(module string) (int, bool) {
	if _, known := s.modules[module]; !known {
		return 0, false
	}
	s.idxMu.Lock()
	defer s.idxMu.Unlock()
	if idx, ok := s.indices[module]; ok {
		return idx, true
	}
	idx := len(s.indices)
	s.indices[module] = idx
	return idx, true
}

// ModuleSourceFile returns the file a module was loaded from.
func (s *Snapshot) ModuleSourceFile(module string) (string, bool) {
	if e, ok := s.modules[module]; ok && e.sourceFile != "" {
		return e.sourceFile, true
	}
	return "", false
}

// ConstantCount returns the number of entries in the constant table.
func (s *Snapshot) ConstantCount() int { return len(s.constants) }

var _ Environment = (*Snapshot)(nil)

// SnapshotBuilder accumulates modules and constants and seals them into a
// Snapshot.
//
// Thread Safety: not safe for concurrent use; build from one goroutine.
type SnapshotBuilder struct {
	names     []string
	modules   map[string]*moduleEntry
	constants map[string]ConstantInfo
	owners    map[string]string
}

// NewSnapshotBuilder creates an empty builder.
func NewSnapshotBuilder() *SnapshotBuilder {
	return &SnapshotBuilder{
		modules:   make(map[string]*moduleEntry),
		constants: make(map[string]ConstantInfo),
		owners:    make(map[string]string),
	}
}

// AddModule registers a module. Re-adding an existing module replaces its
// metadata without changing its position in the load order.
func (b *SnapshotBuilder) AddModule(name string, imports []string, docs ...DocComment) *SnapshotBuilder {
	if _, exists := b.modules[name]; !exists {
		b.names = append(b.names, name)
	}
	b.modules[name] = &moduleEntry{imports: imports, docs: docs}
	return b
}

// SetSourceFile records the source file backing a module. The module must
// already be registered; unknown modules are ignored.
func (b *SnapshotBuilder) SetSourceFile(module, path string) *SnapshotBuilder {
	if e, ok := b.modules[module]; ok {
		e.sourceFile = path
	}
	return b
}

// AddConstant registers a declaration owned by the given module.
func (b *SnapshotBuilder) AddConstant(name, owner string, info ConstantInfo) *SnapshotBuilder {
	b.constants[name] = info
	b.owners[name] = owner
	return b
}

// Build seals the accumulated state into an immutable Snapshot with a
// fresh snapshot ID. The builder must not be reused afterwards.
func (b *SnapshotBuilder) Build() *Snapshot {
	return &Snapshot{
		id:        uuid.NewString(),
		names:     b.names,
		modules:   b.modules,
		constants: b.constants,
		owners:    b.owners,
		indices:   make(map[string]int),
	}
}
