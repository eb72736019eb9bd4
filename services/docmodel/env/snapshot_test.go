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
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/AleutianDocs/services/docmodel/model"
)

func TestSnapshotBuilder_LoadOrderPreserved(t *testing.T) {
	s := NewSnapshotBuilder().
		AddModule("C", nil).
		AddModule("A", nil).
		AddModule("B", nil).
		Build()

	want := []string{"C", "A", "B"}
	got := s.LoadedModules()
	if len(got) != len(want) {
		t.Fatalf("LoadedModules = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("LoadedModules[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSnapshotBuilder_ReAddKeepsPosition(t *testing.T) {
	s := NewSnapshotBuilder().
		AddModule("A", nil).
		AddModule("B", nil).
		AddModule("A", []string{"B"}).
		Build()

	mods := s.LoadedModules()
	if len(mods) != 2 || mods[0] != "A" || mods[1] != "B" {
		t.Fatalf("LoadedModules = %v, want [A B]", mods)
	}
	imports := s.ModuleImports("A")
	if len(imports) != 1 || imports[0] != "B" {
		t.Errorf("re-add should replace metadata, imports = %v", imports)
	}
}

func TestSnapshot_LazyIndexAssignment(t *testing.T) {
	s := NewSnapshotBuilder().
		AddModule("A", nil).
		AddModule("B", nil).
		AddModule("C", nil).
		Build()

	// Lookup order defines the index space, not load order.
	idxC, ok := s.ModuleIndex("C")
	if !ok || idxC != 0 {
		t.Errorf("first lookup should assign 0, got %d ok=%v", idxC, ok)
	}
	idxA, _ := s.ModuleIndex("A")
	if idxA != 1 {
		t.Errorf("second lookup should assign 1, got %d", idxA)
	}

	// Stable on repeat.
	again, _ := s.ModuleIndex("C")
	if again != idxC {
		t.Errorf("index not stable: %d then %d", idxC, again)
	}

	if _, ok := s.ModuleIndex("Nope"); ok {
		t.Error("unknown module must not get an index")
	}
}

func TestSnapshot_OwnershipAndDocs(t *testing.T) {
	s := NewSnapshotBuilder().
		AddModule("A", nil, DocComment{Text: "header", Range: model.Range{Start: model.Position{Line: 1}}}).
		AddConstant("A.x", "A", ConstantInfo{Kind: "def"}).
		Build()

	owner, ok := s.OwningModule("A.x")
	if !ok || owner != "A" {
		t.Errorf("OwningModule = %q ok=%v", owner, ok)
	}
	if _, ok := s.OwningModule("ghost"); ok {
		t.Error("unknown declaration should not resolve")
	}
	docs := s.ModuleDocComments("A")
	if len(docs) != 1 || docs[0].Text != "header" {
		t.Errorf("ModuleDocComments = %v", docs)
	}
	if s.ConstantCount() != 1 {
		t.Errorf("ConstantCount = %d", s.ConstantCount())
	}
}

func TestSnapshot_ForEachConstantEarlyStop(t *testing.T) {
	b := NewSnapshotBuilder().AddModule("A", nil)
	for _, name := range []string{"x", "y", "z"} {
		b.AddConstant(name, "A", ConstantInfo{})
	}
	s := b.Build()

	visited := 0
	s.ForEachConstant(func(string, ConstantInfo) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("early stop visited %d entries, want 1", visited)
	}
}

func TestSnapshot_DistinctIDs(t *testing.T) {
	a := NewSnapshotBuilder().AddModule("A", nil).Build()
	b := NewSnapshotBuilder().AddModule("A", nil).Build()
	if a.SnapshotID() == "" || a.SnapshotID() == b.SnapshotID() {
		t.Errorf("snapshot IDs should be unique and non-empty: %q vs %q", a.SnapshotID(), b.SnapshotID())
	}
}

func TestLoadSnapshotFile(t *testing.T) {
	dump := `{
	  "modules": [
	    {"name": "A", "imports": ["B"], "source_file": "/src/A.lean",
	     "docs": [{"text": "module A", "range": {"Start": {"Line": 1, "Column": 0}, "End": {"Line": 1, "Column": 10}}}]},
	    {"name": "B"}
	  ],
	  "constants": [
	    {"name": "A.foo", "module": "A", "kind": "def", "doc": "foo docs",
	     "range": {"Start": {"Line": 10, "Column": 1}, "End": {"Line": 12, "Column": 1}}, "hash": "h1"}
	  ]
	}`
	path := filepath.Join(t.TempDir(), "env.json")
	if err := os.WriteFile(path, []byte(dump), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSnapshotFile(path)
	if err != nil {
		t.Fatalf("LoadSnapshotFile: %v", err)
	}
	if len(s.LoadedModules()) != 2 {
		t.Fatalf("LoadedModules = %v", s.LoadedModules())
	}
	if imports := s.ModuleImports("A"); len(imports) != 1 || imports[0] != "B" {
		t.Errorf("imports = %v", imports)
	}
	if src, ok := s.ModuleSourceFile("A"); !ok || src != "/src/A.lean" {
		t.Errorf("source file = %q ok=%v", src, ok)
	}
	if owner, ok := s.OwningModule("A.foo"); !ok || owner != "A" {
		t.Errorf("owner = %q", owner)
	}
	var seen ConstantInfo
	s.ForEachConstant(func(name string, info ConstantInfo) bool {
		seen = info
		return true
	})
	if seen.Hash != "h1" || seen.Range.Start.Line != 10 {
		t.Errorf("constant info = %+v", seen)
	}
}

func TestLoadSnapshotFile_Errors(t *testing.T) {
	if _, err := LoadSnapshotFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should error")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshotFile(bad); err == nil {
		t.Error("malformed JSON should error")
	}
}

func TestSnapshotFromExport_RejectsOrphanConstants(t *testing.T) {
	_, err := SnapshotFromExport(&Export{
		Modules:   []ModuleExport{{Name: "A"}},
		Constants: []ConstantExport{{Name: "x", Module: "Ghost"}},
	})
	if err == nil {
		t.Error("constant naming an unknown module must be rejected")
	}
}
