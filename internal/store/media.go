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

// PhotoStore handles product photo records. The files themselves live in
// the storage backend under the photo's FileName.
type PhotoStore struct {
	db *sql.DB
}

// NewPhotoStore creates a new PhotoStore with the given database connection.
func NewPhotoStore(db *sql.DB) *PhotoStore {
	return &PhotoStore{db: db}
}

// photoColumns lists the columns selected in photo queries.
const photoColumns = `id, product_id, file_name, created_at`

func scanPhoto(scanner interface{ Scan(...any) error }) (*models.ProductPhoto, error) {
	var ph models.ProductPhoto
	if err := scanner.Scan(&ph.ID, &ph.ProductID, &ph.FileName, &ph.CreatedAt); err != nil {
		return nil, err
	}
	return &ph, nil
}

// photosFor loads the photos of each product in upload order.
func photosFor(ctx context.Context, q queryer, productIDs []int64) (map[int64][]models.ProductPhoto, error) {
	out := make(map[int64][]models.ProductPhoto, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+photoColumns+` FROM product_photos
		WHERE product_id = ANY($1)
		ORDER BY created_at, id
	`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load product photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ph, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product photo: %w", err)
		}
		out[ph.ProductID] = append(out[ph.ProductID], *ph)
	}
	return out, rows.Err()
}

// Create inserts a photo record and returns it with the generated ID.
func (s *PhotoStore) Create(ctx context.Context, productID int64, fileName string) (*models.ProductPhoto, error) {
	ph, err := scanPhoto(s.db.QueryRowContext(ctx, `
		INSERT INTO product_photos (product_id, file_name)
		VALUES ($1, $2)
		RETURNING `+photoColumns,
		productID, fileName,
	))
	if err != nil {
		return nil, fmt.Errorf("create product photo: %w", err)
	}
	return ph, nil
}

// FindByID retrieves a photo by ID. Returns nil if not found.
func (s *PhotoStore) FindByID(ctx context.Context, id int64) (*models.ProductPhoto, error) {
	ph, err := scanPhoto(s.db.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM product_photos WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product photo: %w", err)
	}
	return ph, nil
}

// ListByProduct returns the photos of one product in upload order.
func (s *PhotoStore) ListByProduct(ctx context.Context, productID int64) ([]models.ProductPhoto, error) {
	byProduct, err := photosFor(ctx, s.db, []int64{productID})
	if err != nil {
		return nil, err
	}
	return byProduct[productID], nil
}

// Delete removes a photo record by ID.
func (s *PhotoStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM product_photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product photo: %w", err)
	}
	return nil
}
