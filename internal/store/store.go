// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Domain conflicts reported by store writes.
var (
	ErrSlugTaken      = errors.New("slug already in use")
	ErrCategoryCycle  = errors.New("category cannot be nested under itself or its descendants")
	ErrParentMismatch = errors.New("parent category belongs to a different tree")
	ErrEmailTaken     = errors.New("email already registered")
	ErrUserNameTaken  = errors.New("user name already taken")
	ErrRoleTaken      = errors.New("role already exists")
	ErrBuiltinRole    = errors.New("built-in roles cannot be changed")
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// where accumulates AND-ed conditions with positional arguments. Each
// clause carries one %d verb (or %[1]d for repeats) for its argument.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, len(w.args)))
}

func (w *where) raw(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// next returns the placeholder for the argument appended after the
// current ones.
func (w *where) next() string {
	return fmt.Sprintf("$%d", len(w.args)+1)
}

// ListOptions filters and orders admin and API listings.
type ListOptions struct {
	Search        string
	SortBy        string // Whitelisted key; unknown keys fall back to updated
	Desc          bool
	PublishedOnly bool
	Limit         int
	Offset        int
}

// orderBy resolves a whitelisted sort key into an ORDER BY clause.
func orderBy(columns map[string]string, key string, desc bool) string {
	col, ok := columns[strings.ToLower(key)]
	if !ok {
		col = columns["updated"]
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", p.id " + dir
}

// likePattern escapes LIKE metacharacters and wraps the term for a
// substring match.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation
// on the named constraint (any constraint when name is empty).
func isUniqueViolation(err error, name string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return name == "" || pgErr.ConstraintName == name
}
