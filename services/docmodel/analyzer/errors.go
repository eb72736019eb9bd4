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
	"errors"
	"fmt"
)

// Sentinel errors for the analysis pipeline.
var (
	// ErrBudgetExhausted is returned by Budget.Step when an analysis
	// invocation runs past its computation budget.
	ErrBudgetExhausted = errors.New("analysis budget exhausted")

	// ErrNilEnvironment is returned when a run is started without an
	// environment.
	ErrNilEnvironment = errors.New("environment is nil")

	// ErrNilAnalyzer is returned when a run is started without a
	// declaration analyzer.
	ErrNilAnalyzer = errors.New("declaration analyzer is nil")
)

// EnvContractError reports an environment that violated its own contract,
// such as a constant whose owning module cannot be resolved or a loaded
// module without an index. The run fails fast on these: they indicate a
// broken host-compiler export, not a recoverable per-item condition.
type EnvContractError struct {
	// Op is the facade query that failed.
	Op string

	// Subject is the declaration or module name the query was made for.
	Subject string
}

// Error implements the error interface.
func (e *EnvContractError) Error() string {
	return fmt.Sprintf("environment contract violation: %s(%q) unresolvable", e.Op, e.Subject)
}

// DeclError records the failure of a single declaration's analysis. The
// declaration is dropped from the result; the run continues.
type DeclError struct {
	// Decl is the fully-qualified declaration name.
	Decl string

	// Module is the declaration's owning module.
	Module string

	// Err is the underlying cause: an analyzer error, ErrBudgetExhausted,
	// or a recovered panic.
	Err error
}

// Error implements the error interface.
func (e DeclError) Error() string {
	return fmt.Sprintf("declaration %s (module %s): %v", e.Decl, e.Module, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e DeclError) Unwrap() error {
	return e.Err
}

// panicError wraps a recovered panic value from an analyzer invocation.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("analyzer panicked: %v", e.value)
}

// failureCause classifies a declaration failure for metric labels.
func failureCause(err error) string {
	var pe *panicError
	switch {
	case errors.Is(err, ErrBudgetExhausted):
		return "budget_exhausted"
	case errors.As(err, &pe):
		return "panic"
	default:
		return "analyzer_error"
	}
}
