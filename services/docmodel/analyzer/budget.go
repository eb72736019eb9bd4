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
	"log/slog"
	"sync/atomic"
)

// DefaultBudgetLimit is the default per-declaration computation budget in
// steps. The unit is deliberately abstract: analyzers report their own work
// via Budget.Step at whatever granularity suits them.
const DefaultBudgetLimit = 200_000

// Budget is a step-count ceiling on one analysis invocation.
//
// A budget bounds a single declaration's work, not the whole run; it is the
// mechanism that keeps one pathological declaration from stalling a pass
// over thousands. It is a counter, not a wall clock.
//
// Thread Safety: safe for concurrent use.
type Budget struct {
	limit int64
	used  atomic.Int64
}

// NewBudget creates a budget with the given step limit. A limit <= 0 means
// unlimited.
func NewBudget(limit int64) *Budget {
	return &Budget{limit: limit}
}

// Step consumes n steps. Returns ErrBudgetExhausted once the cumulative
// consumption exceeds the limit; the analyzer is expected to propagate that
// error up and stop working.
func (b *Budget) Step(n int64) error {
	if b.limit <= 0 {
		return nil
	}
	if b.used.Add(n) > b.limit {
		return ErrBudgetExhausted
	}
	return nil
}

// Used returns the steps consumed so far.
func (b *Budget) Used() int64 { return b.used.Load() }

// Remaining returns the steps left, or -1 for unlimited budgets.
func (b *Budget) Remaining() int64 {
	if b.limit <= 0 {
		return -1
	}
	if r := b.limit - b.used.Load(); r > 0 {
		return r
	}
	return 0
}

// Exhausted reports whether the budget has been used up.
func (b *Budget) Exhausted() bool {
	return b.limit > 0 && b.used.Load() >= b.limit
}

// AnalysisContext is the isolated evaluation context handed to one
// declaration analysis.
//
// A fresh context is constructed per work item: budgets and option
// snapshots carry mutable state that must not leak between declarations.
// Analyzers must not retain the context past the invocation.
type AnalysisContext struct {
	// Budget is the invocation's private computation budget.
	Budget *Budget

	// SnapshotID identifies the environment snapshot being analyzed.
	SnapshotID string

	// Logger is scoped to the declaration under analysis.
	Logger *slog.Logger

	// Options is a private copy of the pipeline's analyzer options.
	// Analyzers may mutate it freely without affecting other invocations.
	Options map[string]string
}
