// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model defines the documentation data model produced by the
// analysis pipeline: per-declaration documentation records, module member
// sequences, and the assembled analyzer result with its import adjacency
// matrix.
package model

// Position is a location in source text.
type Position struct {
	// Line is the 1-based line number.
	Line int

	// Column is the 0-based column offset within the line.
	Column int
}

// Before reports whether p is strictly earlier in source than other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// Range is a span of source text covering a declaration or comment block.
type Range struct {
	Start Position
	End   Position
}

// DocRecord is the documentation extracted for a single declaration.
//
// Records are produced by an external DeclAnalyzer; the pipeline treats
// them as opaque values apart from Name and Range, which it uses for
// member identity and source ordering.
type DocRecord struct {
	// Name is the fully-qualified declaration name.
	Name string

	// Kind classifies the declaration (e.g. "def", "structure", "theorem").
	Kind string

	// Signature is the rendered declaration signature, if the analyzer
	// computed one.
	Signature string

	// Doc is the declaration's doc string. May be empty.
	Doc string

	// Range is the declaration's source span, used for member ordering.
	Range Range
}

// Member is one entry in a module's documentation sequence.
//
// A member is either an analyzed declaration (DeclarationDoc) or a
// free-standing module-level doc comment (ModuleDoc). Every member exposes
// a source range used for ordering and an optional doc string.
type Member interface {
	// DeclRange returns the member's source span. Members are ordered by
	// ascending range start within a module.
	DeclRange() Range

	// MemberName returns the member's name. Module doc comments are
	// anonymous and return ok=false.
	MemberName() (name string, ok bool)

	// DocString returns the member's documentation text. May be empty.
	DocString() string
}

// DeclarationDoc is a successfully analyzed declaration.
type DeclarationDoc struct {
	Record DocRecord
}

// DeclRange returns the analyzed declaration's source span.
func (d DeclarationDoc) DeclRange() Range { return d.Record.Range }

// MemberName returns the declaration's fully-qualified name.
func (d DeclarationDoc) MemberName() (string, bool) { return d.Record.Name, true }

// DocString returns the declaration's doc string.
func (d DeclarationDoc) DocString() string { return d.Record.Doc }

// ModuleDoc is a free-standing module-level documentation block. It has no
// name and participates in ordering through its source range only.
type ModuleDoc struct {
	Text  string
	Range Range
}

// DeclRange returns the doc block's source span.
func (m ModuleDoc) DeclRange() Range { return m.Range }

// MemberName reports that module doc comments are anonymous.
func (m ModuleDoc) MemberName() (string, bool) { return "", false }

// DocString returns the doc block's text.
func (m ModuleDoc) DocString() string { return m.Text }

// Ensure both member kinds satisfy the interface.
var (
	_ Member = DeclarationDoc{}
	_ Member = ModuleDoc{}
)
