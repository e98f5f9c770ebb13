// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"webmvc/internal/category"
	"webmvc/internal/models"
)

// CategoryStore manages blog and product categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `c.id, c.kind, c.title, c.slug, c.description, c.parent_id, c.created_at, c.updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Kind, &c.Title, &c.Slug, &c.Description,
		&c.ParentID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// joinTable returns the association table and its item column for a kind.
func joinTable(kind models.CategoryKind) (table, itemColumn string) {
	if kind == models.CategoryKindProduct {
		return "product_categories", "product_id"
	}
	return "post_categories", "post_id"
}

// ListByKind returns every category of one kind ordered by title, with the
// number of items tagged directly with each.
func (s *CategoryStore) ListByKind(ctx context.Context, kind models.CategoryKind) ([]models.Category, error) {
	table, _ := joinTable(kind)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`, COUNT(j.category_id) AS item_count
		FROM categories c
		LEFT JOIN `+table+` j ON j.category_id = c.id
		WHERE c.kind = $1
		GROUP BY c.id
		ORDER BY c.title
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		var c models.Category
		err := rows.Scan(
			&c.ID, &c.Kind, &c.Title, &c.Slug, &c.Description,
			&c.ParentID, &c.CreatedAt, &c.UpdatedAt, &c.ItemCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Tree loads the categories of one kind into a category.Tree.
func (s *CategoryStore) Tree(ctx context.Context, kind models.CategoryKind) (*category.Tree, error) {
	flat, err := s.ListByKind(ctx, kind)
	if err != nil {
		return nil, err
	}
	return category.Build(flat), nil
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.id = $1`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// FindBySlug retrieves a category by kind and slug. Returns nil if not found.
func (s *CategoryStore) FindBySlug(ctx context.Context, kind models.CategoryKind, slug string) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories c WHERE c.kind = $1 AND c.slug = $2`, kind, slug)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by slug: %w", err)
	}
	return c, nil
}

// SlugExists reports whether another category of the same kind uses slug.
// excludeID is ignored when zero.
func (s *CategoryStore) SlugExists(ctx context.Context, kind models.CategoryKind, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM categories WHERE kind = $1 AND slug = $2 AND id <> $3)
	`, kind, slug, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check category slug: %w", err)
	}
	return exists, nil
}

// checkParent verifies that parentID exists in the same tree and, for an
// existing category, that re-parenting would not create a cycle. The
// kind's rows are locked for the rest of the transaction.
func checkParent(ctx context.Context, tx *sql.Tx, c *models.Category) error {
	if c.ParentID == nil {
		return nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories c WHERE c.kind = $1 FOR UPDATE
	`, c.Kind)
	if err != nil {
		return fmt.Errorf("lock categories: %w", err)
	}
	var flat []models.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			rows.Close()
			return fmt.Errorf("scan category: %w", err)
		}
		flat = append(flat, *cat)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	tree := category.Build(flat)
	if _, ok := tree.Get(*c.ParentID); !ok {
		return ErrParentMismatch
	}
	if c.ID != 0 && tree.WouldCycle(c.ID, *c.ParentID) {
		return ErrCategoryCycle
	}
	return nil
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkParent(ctx, tx, c); err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO categories AS c (kind, title, slug, description, parent_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+categoryColumns,
		c.Kind, c.Title, c.Slug, c.Description, c.ParentID,
	)
	result, err := scanCategory(row)
	if isUniqueViolation(err, "categories_kind_slug_key") {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return result, tx.Commit()
}

// Update modifies an existing category. Moving a category under itself or
// one of its descendants fails with ErrCategoryCycle.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkParent(ctx, tx, c); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE categories SET
			title = $1, slug = $2, description = $3, parent_id = $4, updated_at = NOW()
		WHERE id = $5
	`, c.Title, c.Slug, c.Description, c.ParentID, c.ID)
	if isUniqueViolation(err, "categories_kind_slug_key") {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return tx.Commit()
}

// Delete removes a category by ID. Children become roots (ON DELETE SET NULL)
// and item associations are dropped.
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// Count returns the number of categories of one kind.
func (s *CategoryStore) Count(ctx context.Context, kind models.CategoryKind) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE kind = $1`, kind).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return count, nil
}

// forItems loads the categories attached to each of the given item ids.
func forItems(ctx context.Context, q queryer, kind models.CategoryKind, itemIDs []int64) (map[int64][]models.Category, error) {
	out := make(map[int64][]models.Category, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	table, col := joinTable(kind)
	rows, err := q.QueryContext(ctx, `
		SELECT j.`+col+`, `+categoryColumns+`
		FROM `+table+` j
		JOIN categories c ON c.id = j.category_id
		WHERE j.`+col+` = ANY($1)
		ORDER BY c.title
	`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("load item categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID int64
		var c models.Category
		if err := rows.Scan(
			&itemID, &c.ID, &c.Kind, &c.Title, &c.Slug, &c.Description,
			&c.ParentID, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item category: %w", err)
		}
		out[itemID] = append(out[itemID], c)
	}
	return out, rows.Err()
}

// replaceCategories makes the item's associations equal to want by deleting
// the ones no longer wanted and inserting the missing ones.
func replaceCategories(ctx context.Context, tx *sql.Tx, kind models.CategoryKind, itemID int64, want []int64) error {
	table, col := joinTable(kind)

	rows, err := tx.QueryContext(ctx, `SELECT category_id FROM `+table+` WHERE `+col+` = $1`, itemID)
	if err != nil {
		return fmt.Errorf("load associations: %w", err)
	}
	have := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan association: %w", err)
		}
		have[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	wanted := make(map[int64]bool, len(want))
	for _, id := range want {
		wanted[id] = true
	}

	for id := range have {
		if wanted[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE `+col+` = $1 AND category_id = $2`, itemID, id); err != nil {
			return fmt.Errorf("remove association %d: %w", id, err)
		}
	}

	for id := range wanted {
		if have[id] {
			continue
		}
		// The kind filter keeps a blog category off a product and vice versa.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO `+table+` (`+col+`, category_id)
			SELECT $1::bigint, id FROM categories WHERE id = $2 AND kind = $3
		`, itemID, id, kind); err != nil {
			return fmt.Errorf("add association %d: %w", id, err)
		}
	}
	return nil
}
