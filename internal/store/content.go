// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"

	"webmvc/internal/models"
)

// Sortable columns shared by the post and product listings.
var contentSortColumns = map[string]string{
	"title":   "p.title",
	"created": "p.created_at",
	"updated": "p.updated_at",
}

// contentFilter builds the WHERE clause shared by post and product queries.
// A nil categoryIDs applies no category filter.
func contentFilter(kind models.CategoryKind, opts ListOptions, categoryIDs []int64) *where {
	w := &where{}
	if opts.PublishedOnly {
		w.raw("p.published")
	}
	if opts.Search != "" {
		w.add("(p.title ILIKE $%[1]d OR p.description ILIKE $%[1]d)", likePattern(opts.Search))
	}
	if categoryIDs != nil {
		table, col := joinTable(kind)
		w.add("EXISTS (SELECT 1 FROM "+table+" j WHERE j."+col+" = p.id AND j.category_id = ANY($%d))", categoryIDs)
	}
	return w
}

// slugExists reports whether another row of table uses slug. excludeID is
// ignored when zero.
func slugExists(ctx context.Context, q queryer, table, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE slug = $1 AND id <> $2)`, slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s slug: %w", table, err)
	}
	return exists, nil
}

// attachCategories fills CategoryIDs and Categories on each item.
func attachCategories(ctx context.Context, q queryer, kind models.CategoryKind, items []*models.Content) error {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	byItem, err := forItems(ctx, q, kind, ids)
	if err != nil {
		return err
	}
	for _, it := range items {
		it.Categories = byItem[it.ID]
		it.CategoryIDs = it.CategoryIDs[:0]
		for _, c := range it.Categories {
			it.CategoryIDs = append(it.CategoryIDs, c.ID)
		}
	}
	return nil
}
