package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"webmvc/internal/models"
)

// RoleStore manages named roles.
type RoleStore struct {
	db *sql.DB
}

// NewRoleStore creates a new RoleStore.
func NewRoleStore(db *sql.DB) *RoleStore {
	return &RoleStore{db: db}
}

// List returns every role with its member count, ordered by name.
func (s *RoleStore) List(ctx context.Context) ([]models.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.created_at, COUNT(ur.user_id)
		FROM roles r
		LEFT JOIN user_roles ur ON ur.role_id = r.id
		GROUP BY r.id
		ORDER BY r.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt, &r.UserCount); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// Names returns every role name in order.
func (s *RoleStore) Names(ctx context.Context) ([]string, error) {
	roles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	return names, nil
}

// FindByID retrieves a role by ID. Returns nil if not found.
func (s *RoleStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var r models.Role
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM roles WHERE id = $1`, id).
		Scan(&r.ID, &r.Name, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &r, nil
}

// Create inserts a role.
func (s *RoleStore) Create(ctx context.Context, name string) (*models.Role, error) {
	var r models.Role
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO roles (name) VALUES ($1) RETURNING id, name, created_at`, name,
	).Scan(&r.ID, &r.Name, &r.CreatedAt)
	if isUniqueViolation(err, "roles_name_key") {
		return nil, ErrRoleTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return &r, nil
}

// Rename changes a custom role's name.
func (s *RoleStore) Rename(ctx context.Context, id uuid.UUID, name string) error {
	r, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	if r.IsBuiltin() {
		return ErrBuiltinRole
	}
	_, err = s.db.ExecContext(ctx, `UPDATE roles SET name = $1 WHERE id = $2`, name, id)
	if isUniqueViolation(err, "roles_name_key") {
		return ErrRoleTaken
	}
	if err != nil {
		return fmt.Errorf("rename role: %w", err)
	}
	return nil
}

// Delete removes a custom role. Memberships cascade.
func (s *RoleStore) Delete(ctx context.Context, id uuid.UUID) error {
	r, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	if r.IsBuiltin() {
		return ErrBuiltinRole
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}
