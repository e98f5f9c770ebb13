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

// PostStore handles blog post database operations.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

const postSelect = `
	SELECT p.id, p.title, p.description, p.slug, p.content, p.published,
	       p.author_id, p.created_at, p.updated_at, COALESCE(u.user_name, '')
	FROM posts p
	LEFT JOIN users u ON u.id = p.author_id`

func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Description, &p.Slug, &p.Body, &p.Published,
		&p.AuthorID, &p.CreatedAt, &p.UpdatedAt, &p.AuthorName,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostStore) query(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var items []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*models.Content, len(items))
	for i := range items {
		refs[i] = &items[i].Content
	}
	if err := attachCategories(ctx, s.db, models.CategoryKindBlog, refs); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *PostStore) findOne(ctx context.Context, cond string, arg any) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, postSelect+` WHERE `+cond, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	if err := attachCategories(ctx, s.db, models.CategoryKindBlog, []*models.Content{&p.Content}); err != nil {
		return nil, err
	}
	return p, nil
}

// CountPublished returns the number of published posts tagged with any of
// categoryIDs. A nil slice counts every published post.
func (s *PostStore) CountPublished(ctx context.Context, categoryIDs []int64) (int, error) {
	return s.Count(ctx, ListOptions{PublishedOnly: true}, categoryIDs)
}

// ListPublished returns one window of published posts tagged with any of
// categoryIDs, most recently updated first.
func (s *PostStore) ListPublished(ctx context.Context, categoryIDs []int64, limit, offset int) ([]models.Post, error) {
	return s.List(ctx, ListOptions{PublishedOnly: true, SortBy: "updated", Desc: true, Limit: limit, Offset: offset}, categoryIDs)
}

// Count returns the number of posts matching opts and categoryIDs.
func (s *PostStore) Count(ctx context.Context, opts ListOptions, categoryIDs []int64) (int, error) {
	w := contentFilter(models.CategoryKindBlog, opts, categoryIDs)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p`+w.String(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

// List returns posts matching opts and categoryIDs.
func (s *PostStore) List(ctx context.Context, opts ListOptions, categoryIDs []int64) ([]models.Post, error) {
	w := contentFilter(models.CategoryKindBlog, opts, categoryIDs)
	q := postSelect + w.String() + orderBy(contentSortColumns, opts.SortBy, opts.Desc)
	args := w.args
	if opts.Limit > 0 {
		q += " LIMIT " + w.next()
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}
	return s.query(ctx, q, args...)
}

// Latest returns the n most recently updated published posts.
func (s *PostStore) Latest(ctx context.Context, n int) ([]models.Post, error) {
	return s.ListPublished(ctx, nil, n, 0)
}

// Related returns up to n published posts sharing categoryID, excluding
// the post excludeID.
func (s *PostStore) Related(ctx context.Context, categoryID, excludeID int64, n int) ([]models.Post, error) {
	return s.query(ctx, postSelect+`
		WHERE p.published AND p.id <> $1
		  AND EXISTS (SELECT 1 FROM post_categories j WHERE j.post_id = p.id AND j.category_id = $2)
		ORDER BY p.updated_at DESC
		LIMIT $3`, excludeID, categoryID, n)
}

// FindByID retrieves a post by its ID regardless of publication. Returns
// nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	return s.findOne(ctx, `p.id = $1`, id)
}

// FindPublishedByID retrieves a published post by its ID.
func (s *PostStore) FindPublishedByID(ctx context.Context, id int64) (*models.Post, error) {
	return s.findOne(ctx, `p.published AND p.id = $1`, id)
}

// FindBySlug retrieves a published post by its slug. Used for public page rendering.
func (s *PostStore) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.findOne(ctx, `p.published AND p.slug = $1`, slug)
}

// SlugExists reports whether a post other than excludeID uses slug.
func (s *PostStore) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	return slugExists(ctx, s.db, "posts", slug, excludeID)
}

// Create inserts a new post with its category associations and returns it.
func (s *PostStore) Create(ctx context.Context, p *models.Post, categoryIDs []int64) (*models.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO posts (title, description, slug, content, published, author_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.Title, p.Description, p.Slug, p.Body, p.Published, p.AuthorID).Scan(&id)
	if isUniqueViolation(err, "posts_slug_key") {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if err := replaceCategories(ctx, tx, models.CategoryKindBlog, id, categoryIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit post: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Update modifies an existing post and replaces its category associations
// in one transaction.
func (s *PostStore) Update(ctx context.Context, p *models.Post, categoryIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE posts SET
			title = $1, description = $2, slug = $3, content = $4, published = $5,
			updated_at = NOW()
		WHERE id = $6
	`, p.Title, p.Description, p.Slug, p.Body, p.Published, p.ID)
	if isUniqueViolation(err, "posts_slug_key") {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	if err := replaceCategories(ctx, tx, models.CategoryKindBlog, p.ID, categoryIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a post by ID.
func (s *PostStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}
