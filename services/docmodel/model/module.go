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
	"sort"
	"sync"
)

// ErrFrozen is returned when appending to a module after Freeze.
var ErrFrozen = errors.New("module is frozen")

// Module is a named compilation unit owning an ordered sequence of
// documentation members.
//
// Lifecycle:
//
//	A Module is created once, before any declaration analysis runs, seeded
//	with its module-level doc comments. Members are then appended in
//	arbitrary order as declarations are analyzed. Freeze() is called exactly
//	once after the full pass; it stable-sorts the members by ascending
//	source position and blocks further mutation.
//
// Thread Safety:
//
//	Append is safe for concurrent use; the member sequence is protected by
//	an internal mutex so parallel analysis workers can append directly.
//	Members() must only be consumed after Freeze().
type Module struct {
	// Name uniquely identifies the module within one analysis run.
	Name string

	mu      sync.Mutex
	members []Member
	frozen  bool
}

// NewModule creates a module seeded with its module-level doc comments.
func NewModule(name string, docs ...ModuleDoc) *Module {
	m := &Module{Name: name}
	for _, d := range docs {
		m.members = append(m.members, d)
	}
	return m
}

// Append adds a member to the module's sequence.
//
// Members accumulate in arbitrary order; ordering is established once by
// Freeze. Returns ErrFrozen if the module has already been frozen.
func (m *Module) Append(member Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return ErrFrozen
	}
	m.members = append(m.members, member)
	return nil
}

// Freeze stable-sorts the member sequence by ascending source position and
// seals the module against further appends.
//
// The sort is stable: members with equal start positions retain their
// pre-sort relative order. Calling Freeze more than once is a no-op.
func (m *Module) Freeze() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return
	}
	sort.SliceStable(m.members, func(i, j int) bool {
		return m.members[i].DeclRange().Start.Before(m.members[j].DeclRange().Start)
	})
	m.frozen = true
}

// Frozen reports whether the module has been sealed.
func (m *Module) Frozen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frozen
}

// Members returns the module's member sequence.
//
// The returned slice is the module's internal storage and must be treated
// as read-only; call it only after Freeze().
func (m *Module) Members() []Member {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members
}

// Len returns the number of members.
func (m *Module) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.members)
}
