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

import (
	"context"
	"fmt"

	"github.com/AleutianAI/AleutianDocs/services/docmodel/env"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/model"
)

// buildImportMatrix constructs the direct-import adjacency matrix over the
// full loaded-module list: cell (i, j) is true iff module i directly
// imports module j.
//
// The matrix covers every loaded module, not just the relevant ones, so
// downstream consumers can answer "does A import B" for arbitrary pairs.
//
// Indices are resolved through the environment's ModuleIndex on every
// lookup. The environment may assign indices lazily, so the index space
// seen here can diverge from any name-to-index map cached earlier; reusing
// a cached map would silently misplace edges.
func (p *Pipeline) buildImportMatrix(ctx context.Context, environment env.Environment) (*model.Matrix, error) {
	loaded := environment.LoadedModules()
	matrix := model.NewMatrix(len(loaded))

	for _, name := range loaded {
		srcIdx, ok := environment.ModuleIndex(name)
		if !ok {
			return nil, &EnvContractError{Op: "ModuleIndex", Subject: name}
		}
		for _, imported := range environment.ModuleImports(name) {
			dstIdx, ok := environment.ModuleIndex(imported)
			if !ok {
				return nil, &EnvContractError{Op: "ModuleIndex", Subject: imported}
			}
			if err := matrix.Set(srcIdx, dstIdx); err != nil {
				return nil, fmt.Errorf("recording import edge %s -> %s: %w", name, imported, err)
			}
		}
	}
	return matrix, nil
}
