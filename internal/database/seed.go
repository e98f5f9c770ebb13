package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"webmvc/internal/models"
)

// SeedOptions configures the initial administrator account.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	SampleData    bool // Also insert demo categories, posts and products
}

// Seed populates the database with initial data. Built-in roles are always
// ensured. The admin account is created only when no users exist, and the
// sample catalog only when no categories exist, so Seed is idempotent.
func Seed(db *sql.DB, opts SeedOptions) error {
	for _, name := range models.BuiltinRoles {
		if _, err := db.Exec(`INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}

	adminID, err := seedAdmin(db, opts)
	if err != nil {
		return err
	}

	if opts.SampleData {
		if err := seedCatalog(db, adminID); err != nil {
			return err
		}
	}
	return nil
}

func seedAdmin(db *sql.DB, opts SeedOptions) (*string, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return nil, fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("users already present, skipping admin seed")
		var id string
		err := db.QueryRow(`
			SELECT u.id FROM users u
			JOIN user_roles ur ON ur.user_id = u.id
			JOIN roles r ON r.id = ur.role_id AND r.name = $1
			ORDER BY u.created_at LIMIT 1`, models.RoleAdmin).Scan(&id)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("seed find admin: %w", err)
		}
		return &id, nil
	}

	email := opts.AdminEmail
	if email == "" {
		email = "admin@webmvc.local"
	}
	password := opts.AdminPassword
	if password == "" {
		password = "Admin@123"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRow(`
		INSERT INTO users (user_name, email, email_confirmed, password_hash, display_name)
		VALUES ($1, $2, TRUE, $3, $4)
		RETURNING id
	`, "admin", email, string(hash), "Administrator").Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("seed insert admin: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1::uuid, id FROM roles WHERE name IN ($2, $3)
	`, id, models.RoleAdmin, models.RoleEditor)
	if err != nil {
		return nil, fmt.Errorf("seed admin roles: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with default admin user", "email", email)
	return &id, nil
}

type seedCategory struct {
	kind   models.CategoryKind
	title  string
	slug   string
	parent string
}

var sampleCategories = []seedCategory{
	{models.CategoryKindBlog, "Technology", "technology", ""},
	{models.CategoryKindBlog, "Programming", "programming", "technology"},
	{models.CategoryKindBlog, "Go", "go", "programming"},
	{models.CategoryKindBlog, "Lifestyle", "lifestyle", ""},
	{models.CategoryKindProduct, "Electronics", "electronics", ""},
	{models.CategoryKindProduct, "Phones", "phones", "electronics"},
	{models.CategoryKindProduct, "Laptops", "laptops", "electronics"},
	{models.CategoryKindProduct, "Books", "books", ""},
}

func seedCatalog(db *sql.DB, authorID *string) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if count > 0 {
		slog.Info("catalog already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	ids := make(map[string]int64)
	for _, c := range sampleCategories {
		var parentID *int64
		if c.parent != "" {
			p := ids[string(c.kind)+"/"+c.parent]
			parentID = &p
		}
		var id int64
		err := tx.QueryRow(`
			INSERT INTO categories (kind, title, slug, parent_id)
			VALUES ($1, $2, $3, $4) RETURNING id
		`, c.kind, c.title, c.slug, parentID).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.slug, err)
		}
		ids[string(c.kind)+"/"+c.slug] = id
	}

	posts := []struct {
		title, slug, category string
	}{
		{"Hello, world", "hello-world", "technology"},
		{"Iterating category trees", "iterating-category-trees", "go"},
		{"A slower morning", "a-slower-morning", "lifestyle"},
	}
	for _, p := range posts {
		var id int64
		err := tx.QueryRow(`
			INSERT INTO posts (title, description, slug, content, published, author_id)
			VALUES ($1, $2, $3, $4, TRUE, $5) RETURNING id
		`, p.title, "Sample post", p.slug, "# "+p.title+"\n\nSample content.", authorID).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed post %s: %w", p.slug, err)
		}
		if _, err := tx.Exec(`INSERT INTO post_categories (post_id, category_id) VALUES ($1, $2)`,
			id, ids["blog/"+p.category]); err != nil {
			return fmt.Errorf("seed post category: %w", err)
		}
	}

	products := []struct {
		title, slug, category string
		price                 float64
	}{
		{"Pocket phone", "pocket-phone", "phones", 299},
		{"Workhorse laptop", "workhorse-laptop", "laptops", 1199},
		{"The Go Programming Language", "the-go-programming-language", "books", 39.5},
	}
	for _, p := range products {
		var id int64
		err := tx.QueryRow(`
			INSERT INTO products (title, description, slug, content, price, published, author_id)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6) RETURNING id
		`, p.title, "Sample product", p.slug, "Sample description.", p.price, authorID).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.slug, err)
		}
		if _, err := tx.Exec(`INSERT INTO product_categories (product_id, category_id) VALUES ($1, $2)`,
			id, ids["product/"+p.category]); err != nil {
			return fmt.Errorf("seed product category: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with sample catalog",
		"categories", len(sampleCategories),
		"posts", len(posts),
		"products", len(products),
	)
	return nil
}
