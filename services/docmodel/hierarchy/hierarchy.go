// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hierarchy arranges a flat module-name list into a prefix tree.
//
// Module names are dot-separated paths ("Core.Data.List"); the tree groups
// them by shared prefixes so navigation surfaces can render a directory-like
// structure. The tree is built once from an analysis result's module list
// and is read-only afterwards.
package hierarchy

import (
	"sort"
	"strings"
)

// Node is one entry in the module tree.
//
// A node is a module if some loaded module's full name ends at it; interior
// nodes that exist only as shared prefixes have IsModule false.
type Node struct {
	// Name is the final path component ("List" for "Core.Data.List").
	Name string

	// FullName is the dot-joined path from the root.
	FullName string

	// IsModule is true if a loaded module has exactly this full name.
	IsModule bool

	children map[string]*Node
}

// Children returns the child nodes sorted by component name.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, child := range n.children {
		out = append(out, child)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Find returns the node for the given full module name, if present.
func (n *Node) Find(fullName string) (*Node, bool) {
	current := n
	for _, part := range strings.Split(fullName, ".") {
		child, ok := current.children[part]
		if !ok {
			return nil, false
		}
		current = child
	}
	return current, true
}

// Walk visits every node below n in depth-first, name-sorted order.
func (n *Node) Walk(visit func(*Node)) {
	for _, child := range n.Children() {
		visit(child)
		child.Walk(visit)
	}
}

// Tree is the root of a module hierarchy.
type Tree struct {
	root *Node
}

// FromModuleNames builds a tree from the full loaded-module list. The input
// order is irrelevant; the tree is keyed purely by name structure.
func FromModuleNames(names []string) *Tree {
	root := &Node{children: make(map[string]*Node)}
	for _, name := range names {
		if name == "" {
			continue
		}
		insert(root, name)
	}
	return &Tree{root: root}
}

func insert(root *Node, fullName string) {
	current := root
	parts := strings.Split(fullName, ".")
	for i, part := range parts {
		child, ok := current.children[part]
		if !ok {
			child = &Node{
				Name:     part,
				FullName: strings.Join(parts[:i+1], "."),
				children: make(map[string]*Node),
			}
			current.children[part] = child
		}
		current = child
	}
	current.IsModule = true
}

// Root returns the synthetic root node. Its own Name is empty; its children
// are the top-level module components.
func (t *Tree) Root() *Node { return t.root }

// ModuleCount returns the number of nodes marked as modules.
func (t *Tree) ModuleCount() int {
	count := 0
	t.root.Walk(func(n *Node) {
		if n.IsModule {
			count++
		}
	})
	return count
}
