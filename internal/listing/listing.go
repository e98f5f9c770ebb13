// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package listing assembles the public blog and product listings: it
// resolves an optional category slug to its subtree, then counts and pages
// the published items tagged with any category in that subtree.
package listing

import (
	"context"
	"errors"
	"fmt"

	"webmvc/internal/category"
	"webmvc/internal/models"
	"webmvc/internal/paging"
)

// Default page sizes for the public listings.
const (
	DefaultPostPageSize    = 10
	DefaultProductPageSize = 20
	MaxPageSize            = 100
)

// ErrCategoryNotFound is returned when the requested slug matches no category.
var ErrCategoryNotFound = errors.New("category not found")

// Categories loads the flat category list of one kind.
type Categories interface {
	ListByKind(ctx context.Context, kind models.CategoryKind) ([]models.Category, error)
}

// Items counts and pages published items. A nil categoryIDs means no
// category filter. Results are ordered by last update, newest first.
type Items[T any] interface {
	CountPublished(ctx context.Context, categoryIDs []int64) (int, error)
	ListPublished(ctx context.Context, categoryIDs []int64, limit, offset int) ([]T, error)
}

// Query selects one page of a listing.
type Query struct {
	CategorySlug string
	Page         int
	PageSize     int
}

// Result is one assembled page.
type Result[T any] struct {
	Category *models.Category
	Path     []models.Category // Root-to-category breadcrumb
	Items    []T
	paging.Meta
}

// Assembler builds listings for one category kind.
type Assembler[T any] struct {
	kind        models.CategoryKind
	categories  Categories
	items       Items[T]
	defaultSize int
}

// New returns an Assembler for the given kind.
func New[T any](kind models.CategoryKind, categories Categories, items Items[T], defaultSize int) *Assembler[T] {
	return &Assembler[T]{
		kind:        kind,
		categories:  categories,
		items:       items,
		defaultSize: defaultSize,
	}
}

// Assemble resolves q into a page of published items.
func (a *Assembler[T]) Assemble(ctx context.Context, q Query) (*Result[T], error) {
	res := &Result[T]{}

	var ids []int64
	if q.CategorySlug != "" {
		cats, err := a.categories.ListByKind(ctx, a.kind)
		if err != nil {
			return nil, fmt.Errorf("load %s categories: %w", a.kind, err)
		}
		tree := category.Build(cats)
		c, ok := tree.FindBySlug(q.CategorySlug)
		if !ok {
			return nil, ErrCategoryNotFound
		}
		res.Category = &c
		res.Path = tree.Path(c.ID)
		ids = tree.Subtree(c.ID)
	}

	return a.page(ctx, res, ids, q)
}

// AssembleByID is Assemble keyed by category id instead of slug.
func (a *Assembler[T]) AssembleByID(ctx context.Context, categoryID int64, page, size int) (*Result[T], error) {
	cats, err := a.categories.ListByKind(ctx, a.kind)
	if err != nil {
		return nil, fmt.Errorf("load %s categories: %w", a.kind, err)
	}
	tree := category.Build(cats)
	c, ok := tree.Get(categoryID)
	if !ok {
		return nil, ErrCategoryNotFound
	}
	res := &Result[T]{Category: &c, Path: tree.Path(c.ID)}
	return a.page(ctx, res, tree.Subtree(c.ID), Query{Page: page, PageSize: size})
}

func (a *Assembler[T]) page(ctx context.Context, res *Result[T], ids []int64, q Query) (*Result[T], error) {
	total, err := a.items.CountPublished(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count listing: %w", err)
	}

	size := paging.Normalize(q.PageSize, a.defaultSize, MaxPageSize)
	res.Meta = paging.Compute(total, q.Page, size)
	if total == 0 {
		return res, nil
	}

	items, err := a.items.ListPublished(ctx, ids, res.PageSize, res.Offset())
	if err != nil {
		return nil, fmt.Errorf("list listing: %w", err)
	}
	res.Items = items
	return res, nil
}
