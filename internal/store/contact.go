package store

import (
	"context"
	"database/sql"
	"fmt"

	"webmvc/internal/models"
)

// ContactStore persists contact form submissions.
type ContactStore struct {
	db *sql.DB
}

// NewContactStore creates a new ContactStore.
func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

// Create stores a submission and fills in its ID and timestamp.
func (s *ContactStore) Create(ctx context.Context, c *models.Contact) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO contacts (name, email, phone, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, sent_at
	`, c.Name, c.Email, c.Phone, c.Message).Scan(&c.ID, &c.SentAt)
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

// Count returns the number of submissions.
func (s *ContactStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}

// List returns one page of submissions, newest first.
func (s *ContactStore) List(ctx context.Context, limit, offset int) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, phone, message, sent_at
		FROM contacts ORDER BY sent_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Message, &c.SentAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a submission.
func (s *ContactStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}
