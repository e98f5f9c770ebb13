// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Content holds the fields shared by posts and products.
type Content struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Slug        string     `json:"slug"`
	Body        string     `json:"content"`
	Published   bool       `json:"published"`
	AuthorID    *uuid.UUID `json:"author_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Virtual fields populated by store methods.
	AuthorName  string     `json:"author_name,omitempty"`
	CategoryIDs []int64    `json:"category_ids,omitempty"`
	Categories  []Category `json:"categories,omitempty"`
}

// IsPublished returns true if the item is visible on the public site.
func (c *Content) IsPublished() bool {
	return c.Published
}

// HasCategory reports whether the item is tagged with the given category.
func (c *Content) HasCategory(id int64) bool {
	for _, cid := range c.CategoryIDs {
		if cid == id {
			return true
		}
	}
	return false
}

// FirstCategory returns the first associated category, or nil.
func (c *Content) FirstCategory() *Category {
	if len(c.Categories) == 0 {
		return nil
	}
	return &c.Categories[0]
}

// Post is a blog article.
type Post struct {
	Content
}

// Product is a storefront item.
type Product struct {
	Content
	Price  float64        `json:"price"`
	Photos []ProductPhoto `json:"photos,omitempty"`
}

// MainPhoto returns the first photo of the product, or nil.
func (p *Product) MainPhoto() *ProductPhoto {
	if len(p.Photos) == 0 {
		return nil
	}
	return &p.Photos[0]
}
