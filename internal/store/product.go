// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"webmvc/internal/models"
)

// ProductStore handles storefront product database operations.
type ProductStore struct {
	db *sql.DB
}

// NewProductStore creates a new ProductStore.
func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

var productSortColumns = map[string]string{
	"title":   "p.title",
	"created": "p.created_at",
	"updated": "p.updated_at",
	"price":   "p.price",
}

const productSelect = `
	SELECT p.id, p.title, p.description, p.slug, p.content, p.price::float8, p.published,
	       p.author_id, p.created_at, p.updated_at, COALESCE(u.user_name, '')
	FROM products p
	LEFT JOIN users u ON u.id = p.author_id`

func scanProduct(scanner interface{ Scan(...any) error }) (*models.Product, error) {
	var p models.Product
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Description, &p.Slug, &p.Body, &p.Price, &p.Published,
		&p.AuthorID, &p.CreatedAt, &p.UpdatedAt, &p.AuthorName,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// hydrate attaches categories and photos to the products.
func (s *ProductStore) hydrate(ctx context.Context, items []models.Product) error {
	refs := make([]*models.Content, len(items))
	ids := make([]int64, len(items))
	for i := range items {
		refs[i] = &items[i].Content
		ids[i] = items[i].ID
	}
	if err := attachCategories(ctx, s.db, models.CategoryKindProduct, refs); err != nil {
		return err
	}

	photos, err := photosFor(ctx, s.db, ids)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].Photos = photos[items[i].ID]
	}
	return nil
}

func (s *ProductStore) query(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var items []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ProductStore) findOne(ctx context.Context, cond string, arg any) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, productSelect+` WHERE `+cond, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	items := []models.Product{*p}
	if err := s.hydrate(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// CountPublished returns the number of published products tagged with any
// of categoryIDs. A nil slice counts every published product.
func (s *ProductStore) CountPublished(ctx context.Context, categoryIDs []int64) (int, error) {
	return s.Count(ctx, ListOptions{PublishedOnly: true}, categoryIDs)
}

// ListPublished returns one window of published products tagged with any
// of categoryIDs, most recently updated first.
func (s *ProductStore) ListPublished(ctx context.Context, categoryIDs []int64, limit, offset int) ([]models.Product, error) {
	return s.List(ctx, ListOptions{PublishedOnly: true, SortBy: "updated", Desc: true, Limit: limit, Offset: offset}, categoryIDs)
}

// Count returns the number of products matching opts and categoryIDs.
func (s *ProductStore) Count(ctx context.Context, opts ListOptions, categoryIDs []int64) (int, error) {
	w := contentFilter(models.CategoryKindProduct, opts, categoryIDs)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products p`+w.String(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// List returns products matching opts and categoryIDs.
func (s *ProductStore) List(ctx context.Context, opts ListOptions, categoryIDs []int64) ([]models.Product, error) {
	w := contentFilter(models.CategoryKindProduct, opts, categoryIDs)
	q := productSelect + w.String() + orderBy(productSortColumns, opts.SortBy, opts.Desc)
	args := w.args
	if opts.Limit > 0 {
		q += " LIMIT " + w.next()
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}
	return s.query(ctx, q, args...)
}

// Latest returns the n most recently updated published products.
func (s *ProductStore) Latest(ctx context.Context, n int) ([]models.Product, error) {
	return s.ListPublished(ctx, nil, n, 0)
}

// Related returns up to n published products sharing categoryID, excluding
// the product excludeID.
func (s *ProductStore) Related(ctx context.Context, categoryID, excludeID int64, n int) ([]models.Product, error) {
	return s.query(ctx, productSelect+`
		WHERE p.published AND p.id <> $1
		  AND EXISTS (SELECT 1 FROM product_categories j WHERE j.product_id = p.id AND j.category_id = $2)
		ORDER BY p.updated_at DESC
		LIMIT $3`, excludeID, categoryID, n)
}

// FindByID retrieves a product by ID regardless of publication. Returns
// nil if not found.
func (s *ProductStore) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	return s.findOne(ctx, `p.id = $1`, id)
}

// FindPublishedByID retrieves a published product by ID.
func (s *ProductStore) FindPublishedByID(ctx context.Context, id int64) (*models.Product, error) {
	return s.findOne(ctx, `p.published AND p.id = $1`, id)
}

// FindBySlug retrieves a published product by slug.
func (s *ProductStore) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.findOne(ctx, `p.published AND p.slug = $1`, slug)
}

// SlugExists reports whether a product other than excludeID uses slug.
func (s *ProductStore) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	return slugExists(ctx, s.db, "products", slug, excludeID)
}

// Create inserts a new product with its category associations.
func (s *ProductStore) Create(ctx context.Context, p *models.Product, categoryIDs []int64) (*models.Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO products (title, description, slug, content, price, published, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, p.Title, p.Description, p.Slug, p.Body, p.Price, p.Published, p.AuthorID).Scan(&id)
	if isUniqueViolation(err, "products_slug_key") {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := replaceCategories(ctx, tx, models.CategoryKindProduct, id, categoryIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit product: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Update modifies an existing product and replaces its category
// associations in one transaction.
func (s *ProductStore) Update(ctx context.Context, p *models.Product, categoryIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE products SET
			title = $1, description = $2, slug = $3, content = $4, price = $5,
			published = $6, updated_at = NOW()
		WHERE id = $7
	`, p.Title, p.Description, p.Slug, p.Body, p.Price, p.Published, p.ID)
	if isUniqueViolation(err, "products_slug_key") {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	if err := replaceCategories(ctx, tx, models.CategoryKindProduct, p.ID, categoryIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a product by ID. Photos rows cascade; stored files must be
// removed by the caller.
func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}
