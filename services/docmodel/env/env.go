// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package env defines the read-only environment facade the analysis
// pipeline runs against: the set of loaded modules, their import lists and
// doc-comment blocks, the full constant table with owning-module lookup,
// and per-module source files.
//
// The facade fronts a host compiler's elaborated state. This package also
// provides Snapshot, an immutable in-memory implementation built from
// exported compiler state (or by hand in tests).
package env

import "github.com/AleutianAI/AleutianDocs/services/docmodel/model"

// DocComment is a free-standing module-level documentation block.
type DocComment struct {
	// Text is the comment body.
	Text string

	// Range is the comment's source span.
	Range model.Range
}

// ConstantInfo describes one declaration in the environment's constant
// table. The pipeline treats it as an opaque payload for the declaration
// analyzer apart from Hash, which keys the doc-record cache.
type ConstantInfo struct {
	// Kind classifies the declaration as reported by the compiler.
	Kind string

	// Doc is the raw doc string attached to the declaration, if any.
	Doc string

	// Range is the declaration's source span.
	Range model.Range

	// Hash is a content digest of the declaration. Two declarations with
	// equal names and hashes are assumed to analyze identically.
	Hash string
}

// Environment is the read-only facade over a compiled project's state.
//
// Implementations must be safe for concurrent use: the pipeline shares one
// environment across all analysis workers.
//
// ModuleIndex must return indices that are stable within one run, but they
// are not required to agree with any index mapping a consumer caches from
// LoadedModules order; implementations may assign indices lazily.
type Environment interface {
	// SnapshotID identifies this environment state. Two calls against the
	// same unchanged state return the same ID.
	SnapshotID() string

	// LoadedModules returns the full ordered list of loaded module names.
	LoadedModules() []string

	// ModuleImports returns the direct imports of a module. Unknown
	// modules return nil.
	ModuleImports(module string) []string

	// ModuleDocComments returns the module-level doc-comment blocks of a
	// module, in source order. May be empty.
	ModuleDocComments(module string) []DocComment

	// ForEachConstant calls fn for every entry in the constant table, in
	// unspecified order, stopping early if fn returns false. Callers must
	// not rely on the traversal order.
	ForEachConstant(fn func(name string, info ConstantInfo) bool)

	// OwningModule resolves the module a declaration belongs to.
	OwningModule(decl string) (module string, ok bool)

	// ModuleIndex resolves a module name to its dense index, stable within
	// one run.
	ModuleIndex(module string) (idx int, ok bool)

	// ModuleSourceFile returns the source file backing a module, when the
	// environment knows it. Used by watch mode to map file changes back to
	// modules.
	ModuleSourceFile(module string) (path string, ok bool)
}
