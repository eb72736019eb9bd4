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

import (
	"errors"
	"testing"
)

func declAt(name string, line int) DeclarationDoc {
	return DeclarationDoc{Record: DocRecord{
		Name:  name,
		Doc:   "doc for " + name,
		Range: Range{Start: Position{Line: line, Column: 1}, End: Position{Line: line, Column: 10}},
	}}
}

func TestModule_FreezeSortsByRangeStart(t *testing.T) {
	mod := NewModule("Core.Data",
		ModuleDoc{Text: "module header", Range: Range{Start: Position{Line: 1, Column: 1}}},
	)

	for _, d := range []DeclarationDoc{declAt("gamma", 30), declAt("alpha", 10), declAt("beta", 20)} {
		if err := mod.Append(d); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	mod.Freeze()

	members := mod.Members()
	if len(members) != 4 {
		t.Fatalf("expected 4 members, got %d", len(members))
	}
	lines := make([]int, len(members))
	for i, m := range members {
		lines[i] = m.DeclRange().Start.Line
	}
	for i := 1; i < len(lines); i++ {
		if lines[i-1] > lines[i] {
			t.Errorf("members out of order: lines %v", lines)
		}
	}
	// The module doc at line 1 must come first.
	if _, isDecl := members[0].MemberName(); isDecl {
		t.Error("first member should be the module doc comment")
	}
}

func TestModule_SortIsStableForEqualPositions(t *testing.T) {
	mod := NewModule("Core")

	// Same source position, distinct names: pre-sort order must survive.
	first := declAt("first", 5)
	second := declAt("second", 5)
	third := declAt("third", 5)
	for _, d := range []DeclarationDoc{first, second, third} {
		if err := mod.Append(d); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	mod.Freeze()

	want := []string{"first", "second", "third"}
	for i, m := range mod.Members() {
		name, ok := m.MemberName()
		if !ok || name != want[i] {
			t.Errorf("member %d = %q, want %q", i, name, want[i])
		}
	}
}

func TestModule_AppendAfterFreezeFails(t *testing.T) {
	mod := NewModule("Core")
	if err := mod.Append(declAt("a", 1)); err != nil {
		t.Fatalf("Append before freeze: %v", err)
	}
	mod.Freeze()

	err := mod.Append(declAt("b", 2))
	if !errors.Is(err, ErrFrozen) {
		t.Errorf("Append after Freeze = %v, want ErrFrozen", err)
	}
	if mod.Len() != 1 {
		t.Errorf("Len after rejected append = %d, want 1", mod.Len())
	}
}

func TestModule_FreezeIsIdempotent(t *testing.T) {
	mod := NewModule("Core")
	if err := mod.Append(declAt("a", 2)); err != nil {
		t.Fatal(err)
	}
	if err := mod.Append(declAt("b", 1)); err != nil {
		t.Fatal(err)
	}

	mod.Freeze()
	firstOrder := memberNames(mod)
	mod.Freeze()
	secondOrder := memberNames(mod)

	if len(firstOrder) != len(secondOrder) {
		t.Fatalf("member count changed across Freeze calls")
	}
	for i := range firstOrder {
		if firstOrder[i] != secondOrder[i] {
			t.Errorf("order changed at %d: %q vs %q", i, firstOrder[i], secondOrder[i])
		}
	}
	if !mod.Frozen() {
		t.Error("Frozen() should be true after Freeze")
	}
}

func memberNames(mod *Module) []string {
	var names []string
	for _, m := range mod.Members() {
		if name, ok := m.MemberName(); ok {
			names = append(names, name)
		} else {
			names = append(names, "<moduledoc>")
		}
	}
	return names
}

func TestPosition_Before(t *testing.T) {
	tests := []struct {
		name string
		a, b Position
		want bool
	}{
		{"earlier line", Position{Line: 1, Column: 9}, Position{Line: 2, Column: 1}, true},
		{"later line", Position{Line: 3, Column: 1}, Position{Line: 2, Column: 9}, false},
		{"same line earlier column", Position{Line: 2, Column: 1}, Position{Line: 2, Column: 5}, true},
		{"equal", Position{Line: 2, Column: 5}, Position{Line: 2, Column: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Before(tt.b); got != tt.want {
				t.Errorf("Before = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModuleDoc_IsAnonymous(t *testing.T) {
	var m Member = ModuleDoc{Text: "header"}
	if _, ok := m.MemberName(); ok {
		t.Error("ModuleDoc should have no member name")
	}
	if m.DocString() != "header" {
		t.Errorf("DocString = %q", m.DocString())
	}
}
