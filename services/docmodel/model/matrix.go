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

import "fmt"

// Matrix is a dense square boolean adjacency matrix over module indices.
//
// Matrix[i][j] = true means module i directly imports module j. The dense
// representation gives O(1) point queries at O(N²) bits of space, which is
// the right trade for the repeated "does A import B" queries downstream
// consumers perform at typical module counts (hundreds to low thousands).
// Very large projects would want a hash-set-of-edges representation with
// the same query contract instead.
//
// Thread Safety:
//
//	Set is only called during the build phase by a single goroutine; At is
//	safe for concurrent use once the matrix is published.
type Matrix struct {
	n     int
	cells []bool
}

// NewMatrix allocates an n×n matrix with all entries false.
func NewMatrix(n int) *Matrix {
	if n < 0 {
		n = 0
	}
	return &Matrix{n: n, cells: make([]bool, n*n)}
}

// Size returns the side length of the matrix.
func (m *Matrix) Size() int { return m.n }

// Set records a direct import edge from module i to module j.
//
// Returns an error if either index is outside [0, Size()).
func (m *Matrix) Set(i, j int) error {
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		return fmt.Errorf("matrix index (%d, %d) out of range for size %d", i, j, m.n)
	}
	m.cells[i*m.n+j] = true
	return nil
}

// At reports whether module i directly imports module j.
//
// Out-of-range indices return false rather than panicking, so callers can
// probe with indices from foreign sources safely.
func (m *Matrix) At(i, j int) bool {
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		return false
	}
	return m.cells[i*m.n+j]
}

// EdgeCount returns the number of true entries.
func (m *Matrix) EdgeCount() int {
	count := 0
	for _, c := range m.cells {
		if c {
			count++
		}
	}
	return count
}

// Closure returns a new matrix holding the transitive closure of m.
//
// The pipeline itself records only direct edges; this helper exists for
// consumers that want reachability instead of adjacency. Warshall's
// algorithm, O(N³); acceptable at the module counts the dense matrix
// already targets.
func (m *Matrix) Closure() *Matrix {
	out := NewMatrix(m.n)
	copy(out.cells, m.cells)
	for k := 0; k < m.n; k++ {
		for i := 0; i < m.n; i++ {
			if !out.cells[i*m.n+k] {
				continue
			}
			for j := 0; j < m.n; j++ {
				if out.cells[k*m.n+j] {
					out.cells[i*m.n+j] = true
				}
			}
		}
	}
	return out
}
