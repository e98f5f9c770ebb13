// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package category holds the in-memory category hierarchy. Categories are
// stored flat with a parent id; Tree indexes them by id and by parent so
// traversals never follow live object references.
package category

import (
	"sort"

	"webmvc/internal/models"
)

// Tree is an arena of categories indexed by id. It is read-only once built
// and safe for concurrent readers.
type Tree struct {
	nodes    map[int64]models.Category
	children map[int64][]int64 // parent id -> child ids, title order
	roots    []int64
	bySlug   map[string]int64
}

// Build indexes a flat category list. Categories whose parent is missing
// from the list are treated as roots.
func Build(flat []models.Category) *Tree {
	t := &Tree{
		nodes:    make(map[int64]models.Category, len(flat)),
		children: make(map[int64][]int64),
		bySlug:   make(map[string]int64, len(flat)),
	}
	for _, c := range flat {
		t.nodes[c.ID] = c
		t.bySlug[c.Slug] = c.ID
	}

	ordered := make([]models.Category, len(flat))
	copy(ordered, flat)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Title < ordered[j].Title
	})

	for _, c := range ordered {
		if c.ParentID == nil || *c.ParentID == c.ID {
			t.roots = append(t.roots, c.ID)
			continue
		}
		if _, ok := t.nodes[*c.ParentID]; !ok {
			t.roots = append(t.roots, c.ID)
			continue
		}
		t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
	}
	return t
}

// Len returns the number of categories in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Get returns the category with the given id.
func (t *Tree) Get(id int64) (models.Category, bool) {
	c, ok := t.nodes[id]
	return c, ok
}

// FindBySlug returns the category with the given slug.
func (t *Tree) FindBySlug(slug string) (models.Category, bool) {
	id, ok := t.bySlug[slug]
	if !ok {
		return models.Category{}, false
	}
	return t.nodes[id], true
}

// Roots returns the top-level categories in title order.
func (t *Tree) Roots() []models.Category {
	return t.collect(t.roots)
}

// Children returns the direct children of id in title order.
func (t *Tree) Children(id int64) []models.Category {
	return t.collect(t.children[id])
}

func (t *Tree) collect(ids []int64) []models.Category {
	out := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.nodes[id])
	}
	return out
}

// Descendants returns the ids of every category reachable from id through
// the children relation, each exactly once, in breadth-first order. The
// root itself is not included. Unknown ids yield nil.
func (t *Tree) Descendants(id int64) []int64 {
	if _, ok := t.nodes[id]; !ok {
		return nil
	}

	visited := map[int64]bool{id: true}
	var out []int64
	queue := []int64{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range t.children[current] {
			if visited[child] {
				continue
			}
			visited[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// Subtree returns id followed by its descendants. Unknown ids yield nil.
func (t *Tree) Subtree(id int64) []int64 {
	if _, ok := t.nodes[id]; !ok {
		return nil
	}
	return append([]int64{id}, t.Descendants(id)...)
}

// Path returns the chain of categories from the root down to id. A parent
// cycle in the stored data stops the walk at the first repeated node.
func (t *Tree) Path(id int64) []models.Category {
	var chain []models.Category
	seen := make(map[int64]bool)
	for {
		c, ok := t.nodes[id]
		if !ok || seen[id] {
			break
		}
		seen[id] = true
		chain = append(chain, c)
		if c.ParentID == nil {
			break
		}
		id = *c.ParentID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Flatten returns every category in depth-first pre-order with Depth set,
// suitable for indented <select> options and admin tables.
func (t *Tree) Flatten() []models.Category {
	out := make([]models.Category, 0, len(t.nodes))
	visited := make(map[int64]bool, len(t.nodes))

	type frame struct {
		id    int64
		depth int
	}
	stack := make([]frame, 0, len(t.roots))
	for i := len(t.roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{t.roots[i], 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[f.id] {
			continue
		}
		visited[f.id] = true

		c := t.nodes[f.id]
		c.Depth = f.depth
		out = append(out, c)

		kids := t.children[f.id]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{kids[i], f.depth + 1})
		}
	}
	return out
}

// WouldCycle reports whether making parentID the parent of id would create
// a cycle, that is when parentID is id itself or one of its descendants.
func (t *Tree) WouldCycle(id, parentID int64) bool {
	if id == parentID {
		return true
	}
	for _, d := range t.Descendants(id) {
		if d == parentID {
			return true
		}
	}
	return false
}

// ParentOptions returns the flattened tree minus id and its descendants,
// which are not valid parents for id.
func (t *Tree) ParentOptions(id int64) []models.Category {
	excluded := make(map[int64]bool)
	for _, d := range t.Subtree(id) {
		excluded[d] = true
	}
	var out []models.Category
	for _, c := range t.Flatten() {
		if !excluded[c.ID] {
			out = append(out, c)
		}
	}
	return out
}
