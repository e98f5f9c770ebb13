// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// CategoryKind separates the blog and product category trees, which share
// one table but never mix.
type CategoryKind string

const (
	CategoryKindBlog    CategoryKind = "blog"
	CategoryKindProduct CategoryKind = "product"
)

// Valid reports whether k is one of the known kinds.
func (k CategoryKind) Valid() bool {
	return k == CategoryKindBlog || k == CategoryKindProduct
}

// Category is a node in a blog or product category hierarchy. The parent is
// referenced by id only; children are resolved through category.Tree.
type Category struct {
	ID          int64        `json:"id"`
	Kind        CategoryKind `json:"kind"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Description string       `json:"description"`
	ParentID    *int64       `json:"parent_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Virtual fields populated by store and tree helpers.
	Depth     int `json:"depth"`
	ItemCount int `json:"item_count"`
}

// IsRoot returns true if the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}
