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
	"sync"
	"testing"
)

func TestBudget_StepWithinLimit(t *testing.T) {
	b := NewBudget(10)
	for i := 0; i < 10; i++ {
		if err := b.Step(1); err != nil {
			t.Fatalf("step %d unexpectedly failed: %v", i, err)
		}
	}
	if b.Used() != 10 {
		t.Errorf("Used = %d, want 10", b.Used())
	}
	if b.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", b.Remaining())
	}
	if !b.Exhausted() {
		t.Error("budget at its limit should report exhausted")
	}

	if err := b.Step(1); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("step past limit = %v, want ErrBudgetExhausted", err)
	}
}

func TestBudget_UnlimitedWhenNonPositive(t *testing.T) {
	for _, limit := range []int64{0, -5} {
		b := NewBudget(limit)
		if err := b.Step(1 << 40); err != nil {
			t.Errorf("limit %d should be unlimited, got %v", limit, err)
		}
		if b.Remaining() != -1 {
			t.Errorf("Remaining for unlimited = %d, want -1", b.Remaining())
		}
		if b.Exhausted() {
			t.Error("unlimited budget can never be exhausted")
		}
	}
}

func TestBudget_BulkStep(t *testing.T) {
	b := NewBudget(100)
	if err := b.Step(100); err != nil {
		t.Fatalf("exact-limit step should succeed: %v", err)
	}
	if err := b.Step(1); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("step after exact fill = %v, want ErrBudgetExhausted", err)
	}
}

func TestBudget_ConcurrentSteps(t *testing.T) {
	b := NewBudget(1000)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if err := b.Step(1); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	// 2000 attempted steps against a 1000 limit: some goroutines must
	// have been cut off, and accounting must not undercount.
	if len(errs) == 0 {
		t.Error("expected at least one exhaustion across goroutines")
	}
	if b.Used() < 1000 {
		t.Errorf("Used = %d, want >= 1000", b.Used())
	}
}

func TestDeclError_Unwrap(t *testing.T) {
	inner := errors.New("inner cause")
	declErr := DeclError{Decl: "Core.foo", Module: "Core", Err: inner}

	if !errors.Is(declErr, inner) {
		t.Error("DeclError should unwrap to its cause")
	}
	msg := declErr.Error()
	if msg == "" || declErr.Decl != "Core.foo" {
		t.Errorf("unexpected DeclError: %q", msg)
	}
}

func TestFailureCause(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrBudgetExhausted, "budget_exhausted"},
		{&panicError{value: "boom"}, "panic"},
		{errors.New("other"), "analyzer_error"},
	}
	for _, tt := range tests {
		if got := failureCause(tt.err); got != tt.want {
			t.Errorf("failureCause(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
