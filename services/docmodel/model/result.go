// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

// Result is the assembled output of one analysis run.
//
// Result is immutable once assembled. It owns all four fields exclusively.
//
// Index spaces:
//
//	Name2ModIdx and the environment's own module-index function are two
//	distinct index spaces that may diverge when the environment assigns
//	indices lazily. ImportAdj is always built with indices resolved through
//	the environment at build time, never through Name2ModIdx; consumers
//	querying the matrix must do the same.
type Result struct {
	// Name2ModIdx maps each loaded module name to a dense index, stable
	// only within this run. Derived from the order of ModuleNames.
	Name2ModIdx map[string]int

	// ModuleNames is the full ordered list of loaded modules, including
	// modules outside the analysis scope. It defines the index space of
	// ImportAdj.
	ModuleNames []string

	// ModuleInfo maps module name to its documentation record. Populated
	// only for modules inside the analysis scope; out-of-scope modules
	// appear in ModuleNames but not here.
	ModuleInfo map[string]*Module

	// ImportAdj is the len(ModuleNames) × len(ModuleNames) direct-import
	// adjacency matrix. ImportAdj.At(i, j) is true iff module i directly
	// imports module j. No transitive closure is applied.
	ImportAdj *Matrix
}
