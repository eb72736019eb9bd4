// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

// Stats contains counters for one analysis run.
type Stats struct {
	// ModulesLoaded is the number of modules the environment knows about.
	ModulesLoaded int

	// ModulesRelevant is the number of modules inside the analysis scope.
	ModulesRelevant int

	// ConstantsSeen is the number of constant-table entries visited.
	ConstantsSeen int

	// ConstantsOutOfScope is the number of constants skipped because their
	// owning module is outside the analysis scope.
	ConstantsOutOfScope int

	// DeclsDocumented is the number of declarations that produced a
	// documentation record.
	DeclsDocumented int

	// DeclsNonDocumentable is the number of declarations the analyzer
	// legitimately declined to document.
	DeclsNonDocumentable int

	// DeclsFailed is the number of declarations dropped due to analyzer
	// errors, panics, or budget exhaustion.
	DeclsFailed int

	// ImportEdges is the number of direct import edges recorded in the
	// adjacency matrix.
	ImportEdges int

	// CacheHits is the number of declarations served from the doc cache.
	CacheHits int

	// CacheMisses is the number of cache lookups that missed.
	CacheMisses int

	// DurationMilli is the total run time in milliseconds.
	// NOTE: For fast runs (< 1ms), this rounds to 0. Use DurationMicro for precision.
	DurationMilli int64

	// DurationMicro is the total run time in microseconds.
	DurationMicro int64
}

// Report accompanies a Result with per-run diagnostics.
//
// Runs are designed to be resilient: individual declaration failures never
// fail the run. A completed run always yields a full Result; dropped
// declarations are visible only here and on the warning stream.
type Report struct {
	// DeclErrors contains one entry per dropped declaration.
	DeclErrors []DeclError

	// Stats contains run counters.
	Stats Stats

	// Incomplete is true if the run was cancelled via context before the
	// full constant table was processed. The Result then holds partial
	// member lists (but still a full module list and adjacency matrix).
	Incomplete bool
}

// HasErrors returns true if any declaration was dropped.
func (r *Report) HasErrors() bool {
	return len(r.DeclErrors) > 0
}

// Success returns true if the run completed with no dropped declarations.
func (r *Report) Success() bool {
	return !r.Incomplete && !r.HasErrors()
}
