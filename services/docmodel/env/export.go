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
	"encoding/json"
	"fmt"
	"os"

	"github.com/AleutianAI/AleutianDocs/services/docmodel/model"
)

// Export is the JSON schema for a compiler environment dump. The host
// compiler writes one of these after elaboration; the CLI loads it into a
// Snapshot for analysis.
type Export struct {
	Modules   []ModuleExport   `json:"modules"`
	Constants []ConstantExport `json:"constants"`
}

// ModuleExport is one module entry of an environment dump.
type ModuleExport struct {
	Name       string         `json:"name"`
	Imports    []string       `json:"imports,omitempty"`
	SourceFile string         `json:"source_file,omitempty"`
	Docs       []CommentBlock `json:"docs,omitempty"`
}

// CommentBlock is a module-level doc comment in an environment dump.
type CommentBlock struct {
	Text  string      `json:"text"`
	Range model.Range `json:"range"`
}

// ConstantExport is one constant-table entry of an environment dump.
type ConstantExport struct {
	Name   string      `json:"name"`
	Module string      `json:"module"`
	Kind   string      `json:"kind,omitempty"`
	Doc    string      `json:"doc,omitempty"`
	Range  model.Range `json:"range"`
	Hash   string      `json:"hash,omitempty"`
}

// LoadSnapshotFile reads an environment dump and seals it into a Snapshot.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read environment dump: %w", err)
	}
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("decode environment dump %s: %w", path, err)
	}
	return SnapshotFromExport(&export)
}

// SnapshotFromExport builds a Snapshot from a decoded dump. Constants that
// name an unregistered owning module are rejected: such a dump would later
// surface as an environment contract violation mid-run, so it is refused
// up front.
func SnapshotFromExport(export *Export) (*Snapshot, error) {
	builder := NewSnapshotBuilder()
	for _, mod := range export.Modules {
		docs := make([]DocComment, 0, len(mod.Docs))
		for _, d := range mod.Docs {
			docs = append(docs, DocComment{Text: d.Text, Range: d.Range})
		}
		builder.AddModule(mod.Name, mod.Imports, docs...)
		if mod.SourceFile != "" {
			builder.SetSourceFile(mod.Name, mod.SourceFile)
		}
	}
	known := make(map[string]struct{}, len(export.Modules))
	for _, mod := range export.Modules {
		known[mod.Name] = struct{}{}
	}
	for _, c := range export.Constants {
		if _, ok := known[c.Module]; !ok {
			return nil, fmt.Errorf("constant %s names unknown module %s", c.Name, c.Module)
		}
		builder.AddConstant(c.Name, c.Module, ConstantInfo{
			Kind:  c.Kind,
			Doc:   c.Doc,
			Range: c.Range,
			Hash:  c.Hash,
		})
	}
	return builder.Build(), nil
}
