// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"webmvc/internal/cache"
	"webmvc/internal/database"
	"webmvc/internal/models"
	"webmvc/internal/paging"
	"webmvc/internal/render"
	"webmvc/internal/slug"
	"webmvc/internal/storage"
	"webmvc/internal/store"
)

// adminPageSize is the page size of back-office listings.
const adminPageSize = 20

// Admin groups the back-office handlers.
type Admin struct {
	renderer  *render.Renderer
	stores    *Stores
	bucket    storage.Bucket
	pageCache *cache.PageCache
	db        *sql.DB
	devMode   bool
	seed      database.SeedOptions
}

// NewAdmin creates a new Admin handler group. seed configures the database
// seed action; pageCache may be nil.
func NewAdmin(renderer *render.Renderer, stores *Stores, bucket storage.Bucket, pageCache *cache.PageCache, db *sql.DB, devMode bool, seed database.SeedOptions) *Admin {
	return &Admin{
		renderer:  renderer,
		stores:    stores,
		bucket:    bucket,
		pageCache: pageCache,
		db:        db,
		devMode:   devMode,
		seed:      seed,
	}
}

// Dashboard renders the back-office home with item counts.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := map[string]any{}

	counts := []struct {
		key string
		fn  func() (int, error)
	}{
		{"Posts", func() (int, error) { return a.stores.Posts.Count(ctx, store.ListOptions{}, nil) }},
		{"Products", func() (int, error) { return a.stores.Products.Count(ctx, store.ListOptions{}, nil) }},
		{"BlogCategories", func() (int, error) { return a.stores.Categories.Count(ctx, models.CategoryKindBlog) }},
		{"ProductCategories", func() (int, error) { return a.stores.Categories.Count(ctx, models.CategoryKindProduct) }},
		{"Contacts", func() (int, error) { return a.stores.Contacts.Count(ctx) }},
		{"Users", func() (int, error) { return a.stores.Users.CountAll(ctx) }},
	}
	for _, c := range counts {
		n, err := c.fn()
		if err != nil {
			slog.Error("dashboard count failed", "stat", c.key, "error", err)
		}
		data[c.key] = n
	}
	if a.pageCache != nil {
		data["Cache"] = a.pageCache.Stats(ctx)
	}

	a.renderer.Page(w, r, "admin/dashboard", &render.PageData{
		Title:   "Dashboard",
		Section: "dashboard",
		Data:    data,
	})
}

// --- Cache ---

// CacheClear drops every cached public page.
func (a *Admin) CacheClear(w http.ResponseWriter, r *http.Request) {
	n := 0
	if a.pageCache != nil {
		n = a.pageCache.InvalidateAll(r.Context())
	}
	render.SetFlash(w, r, "success", fmt.Sprintf("Cleared %d cached pages.", n))
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// pageKind maps a category kind to the page cache kind of its items.
func pageKind(kind models.CategoryKind) string {
	if kind == models.CategoryKindProduct {
		return cache.KindProduct
	}
	return cache.KindPost
}

// dropKind invalidates every cached detail page of one kind and the home
// page. Detail pages list related items, so any write to an item can show
// on pages other than its own. A nil cache is a no-op.
func dropKind(ctx context.Context, pc *cache.PageCache, kind string) {
	if pc == nil {
		return
	}
	pc.InvalidateKind(ctx, kind)
	pc.Invalidate(ctx, cache.HomeKey())
}

// invalidateKind is dropKind on the back-office page cache.
func (a *Admin) invalidateKind(ctx context.Context, kind string) {
	dropKind(ctx, a.pageCache, kind)
}

// listMeta computes the page window of a back-office listing from the "p"
// query value.
func listMeta(r *http.Request, total int) paging.Meta {
	return paging.Compute(total, queryInt(r, "p", 1), adminPageSize)
}

// --- Categories ---

func kindParam(r *http.Request) (models.CategoryKind, bool) {
	kind := models.CategoryKind(chi.URLParam(r, "kind"))
	return kind, kind.Valid()
}

func kindTitle(kind models.CategoryKind) string {
	if kind == models.CategoryKindProduct {
		return "Product categories"
	}
	return "Blog categories"
}

// CategoriesList renders the category tree of one kind, indented by depth.
func (a *Admin) CategoriesList(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		a.renderer.Error(w, r, http.StatusNotFound)
		return
	}
	tree, err := a.stores.Categories.Tree(r.Context(), kind)
	if err != nil {
		slog.Error("list categories failed", "kind", kind, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	a.renderer.Page(w, r, "admin/categories", &render.PageData{
		Title:   kindTitle(kind),
		Section: string(kind) + "-categories",
		Data:    map[string]any{"Kind": kind, "Categories": tree.Flatten()},
	})
}

func (a *Admin) categoryForm(w http.ResponseWriter, r *http.Request, status int, c *models.Category, isNew bool, errs []string) {
	tree, err := a.stores.Categories.Tree(r.Context(), c.Kind)
	if err != nil {
		slog.Error("list categories failed", "kind", c.Kind, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	parents := tree.Flatten()
	title := "New category"
	if !isNew {
		parents = tree.ParentOptions(c.ID)
		title = "Edit category"
	}

	a.renderer.PageStatus(w, r, status, "admin/category_form", &render.PageData{
		Title:   title,
		Section: string(c.Kind) + "-categories",
		Errors:  errs,
		Data: map[string]any{
			"Category": c,
			"IsNew":    isNew,
			"Kind":     c.Kind,
			"Parents":  parents,
		},
	})
}

// CategoryNew renders the empty category form.
func (a *Admin) CategoryNew(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		a.renderer.Error(w, r, http.StatusNotFound)
		return
	}
	a.categoryForm(w, r, http.StatusOK, &models.Category{Kind: kind}, true, nil)
}

// CategoryEdit renders the form of an existing category.
func (a *Admin) CategoryEdit(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadCategory(w, r)
	if !ok {
		return
	}
	a.categoryForm(w, r, http.StatusOK, c, false, nil)
}

// loadCategory resolves the {kind} and {id} URL parameters.
func (a *Admin) loadCategory(w http.ResponseWriter, r *http.Request) (*models.Category, bool) {
	kind, ok := kindParam(r)
	id, okID := int64Param(r, "id")
	if !ok || !okID {
		a.renderer.Error(w, r, http.StatusNotFound)
		return nil, false
	}
	c, err := a.stores.Categories.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find category failed", "id", id, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return nil, false
	}
	if c == nil || c.Kind != kind {
		a.renderer.Error(w, r, http.StatusNotFound)
		return nil, false
	}
	return c, true
}

// CategoryCreate saves a new category.
func (a *Admin) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		a.renderer.Error(w, r, http.StatusNotFound)
		return
	}
	a.saveCategory(w, r, &models.Category{Kind: kind}, true)
}

// CategoryUpdate saves changes to an existing category.
func (a *Admin) CategoryUpdate(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadCategory(w, r)
	if !ok {
		return
	}
	a.saveCategory(w, r, c, false)
}

func (a *Admin) saveCategory(w http.ResponseWriter, r *http.Request, c *models.Category, isNew bool) {
	ctx := r.Context()
	c.Title = strings.TrimSpace(r.PostFormValue("title"))
	c.Slug = strings.TrimSpace(r.PostFormValue("slug"))
	c.Description = strings.TrimSpace(r.PostFormValue("description"))
	c.ParentID = nil
	if pid, err := strconv.ParseInt(r.PostFormValue("parent_id"), 10, 64); err == nil && pid > 0 {
		c.ParentID = &pid
	}
	if c.Slug == "" {
		c.Slug = slug.Generate(c.Title)
	}

	fail := func(msg string) {
		a.categoryForm(w, r, http.StatusUnprocessableEntity, c, isNew, []string{msg})
	}

	if msg := validateCategory(c.Title, c.Slug, c.Description); msg != "" {
		fail(msg)
		return
	}
	taken, err := a.stores.Categories.SlugExists(ctx, c.Kind, c.Slug, c.ID)
	if err != nil {
		slog.Error("category slug check failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if taken {
		fail("Slug '" + c.Slug + "' is already in use.")
		return
	}

	if isNew {
		_, err = a.stores.Categories.Create(ctx, c)
	} else {
		err = a.stores.Categories.Update(ctx, c)
	}
	switch {
	case errors.Is(err, store.ErrSlugTaken):
		fail("Slug '" + c.Slug + "' is already in use.")
		return
	case errors.Is(err, store.ErrCategoryCycle):
		fail("A category cannot be placed under itself or one of its subcategories.")
		return
	case errors.Is(err, store.ErrParentMismatch):
		fail("The parent category does not exist.")
		return
	case err != nil:
		slog.Error("save category failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	slog.Info("category saved", "kind", c.Kind, "slug", c.Slug)
	a.invalidateKind(ctx, pageKind(c.Kind))
	render.SetFlash(w, r, "success", "Category '"+c.Title+"' saved.")
	http.Redirect(w, r, "/admin/categories/"+string(c.Kind), http.StatusSeeOther)
}

// CategoryDelete removes a category. Its children become roots.
func (a *Admin) CategoryDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadCategory(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := a.stores.Categories.Delete(ctx, c.ID); err != nil {
		slog.Error("delete category failed", "id", c.ID, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("category deleted", "kind", c.Kind, "slug", c.Slug)
	a.invalidateKind(ctx, pageKind(c.Kind))
	render.SetFlash(w, r, "success", "Category '"+c.Title+"' deleted.")
	http.Redirect(w, r, "/admin/categories/"+string(c.Kind), http.StatusSeeOther)
}

// --- Database ---

// DatabasePage renders the schema version and maintenance actions.
func (a *Admin) DatabasePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := database.Version(ctx, a.db)
	if err != nil {
		slog.Error("schema version failed", "error", err)
	}
	migrations, err := database.Status(ctx, a.db)
	if err != nil {
		slog.Error("migration status failed", "error", err)
	}
	a.renderer.Page(w, r, "admin/database", &render.PageData{
		Title:   "Database",
		Section: "database",
		Data:    map[string]any{"Version": v, "Migrations": migrations},
	})
}

// DatabaseMigrate applies pending migrations.
func (a *Admin) DatabaseMigrate(w http.ResponseWriter, r *http.Request) {
	if err := database.Migrate(r.Context(), a.db); err != nil {
		slog.Error("migrate failed", "error", err)
		render.SetFlash(w, r, "error", "Migration failed: "+err.Error())
	} else {
		render.SetFlash(w, r, "success", "Migrations applied.")
	}
	http.Redirect(w, r, "/admin/database", http.StatusSeeOther)
}

// DatabaseSeed inserts the roles, the admin account and sample data where
// missing.
func (a *Admin) DatabaseSeed(w http.ResponseWriter, r *http.Request) {
	opts := a.seed
	opts.SampleData = true
	if err := database.Seed(a.db, opts); err != nil {
		slog.Error("seed failed", "error", err)
		render.SetFlash(w, r, "error", "Seeding failed: "+err.Error())
	} else {
		if a.pageCache != nil {
			a.pageCache.InvalidateAll(r.Context())
		}
		render.SetFlash(w, r, "success", "Sample data seeded.")
	}
	http.Redirect(w, r, "/admin/database", http.StatusSeeOther)
}

// DatabaseReset drops and rebuilds the schema. Only available in
// development.
func (a *Admin) DatabaseReset(w http.ResponseWriter, r *http.Request) {
	if !a.devMode {
		a.renderer.Error(w, r, http.StatusNotFound)
		return
	}
	if err := database.Reset(r.Context(), a.db); err != nil {
		slog.Error("reset failed", "error", err)
		render.SetFlash(w, r, "error", "Reset failed: "+err.Error())
		http.Redirect(w, r, "/admin/database", http.StatusSeeOther)
		return
	}
	if err := database.Seed(a.db, a.seed); err != nil {
		slog.Error("seed after reset failed", "error", err)
	}
	if a.pageCache != nil {
		a.pageCache.InvalidateAll(r.Context())
	}
	render.SetFlash(w, r, "success", "Database reset.")
	http.Redirect(w, r, "/admin/database", http.StatusSeeOther)
}
