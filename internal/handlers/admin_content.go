// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"webmvc/internal/cache"
	"webmvc/internal/middleware"
	"webmvc/internal/models"
	"webmvc/internal/render"
	"webmvc/internal/slug"
	"webmvc/internal/store"
)

// searchQuery keeps the search term on pagination links.
func searchQuery(search string) url.Values {
	q := url.Values{}
	if search != "" {
		q.Set("q", search)
	}
	return q
}

// readContent fills the shared post and product fields from the submitted
// form and returns the checked category ids. An empty slug is generated
// from the title.
func readContent(r *http.Request, c *models.Content) []int64 {
	c.Title = strings.TrimSpace(r.PostFormValue("title"))
	c.Slug = strings.TrimSpace(r.PostFormValue("slug"))
	c.Description = strings.TrimSpace(r.PostFormValue("description"))
	c.Body = r.PostFormValue("content")
	c.Published = r.PostFormValue("published") == "1"
	if c.Slug == "" {
		c.Slug = slug.Generate(c.Title)
	}
	c.CategoryIDs = formIDs(r, "category_ids")
	return c.CategoryIDs
}

// contentError maps a store write error to a form message. ok is false for
// unexpected errors.
func contentError(err error, itemSlug string) (msg string, ok bool) {
	if errors.Is(err, store.ErrSlugTaken) {
		return "Slug '" + itemSlug + "' is already in use.", true
	}
	return "", false
}

// --- Posts ---

// PostsList renders the paginated, searchable post list.
func (a *Admin) PostsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	opts := store.ListOptions{Search: search, SortBy: "updated", Desc: true}

	total, err := a.stores.Posts.Count(ctx, opts, nil)
	if err != nil {
		slog.Error("count posts failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	meta := listMeta(r, total)
	opts.Limit, opts.Offset = meta.PageSize, meta.Offset()
	posts, err := a.stores.Posts.List(ctx, opts, nil)
	if err != nil {
		slog.Error("list posts failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	a.renderer.Page(w, r, "admin/posts", &render.PageData{
		Title:   "Posts",
		Section: "posts",
		Data: map[string]any{
			"Items":  posts,
			"Search": search,
			"Pager":  render.NewPager(meta, "/admin/posts", searchQuery(search)),
		},
	})
}

func (a *Admin) postForm(w http.ResponseWriter, r *http.Request, status int, p *models.Post, isNew bool, errs []string) {
	tree, err := a.stores.Categories.Tree(r.Context(), models.CategoryKindBlog)
	if err != nil {
		slog.Error("list blog categories failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	title := "Edit post"
	if isNew {
		title = "New post"
	}
	a.renderer.PageStatus(w, r, status, "admin/post_form", &render.PageData{
		Title:   title,
		Section: "posts",
		Errors:  errs,
		Data:    map[string]any{"Post": p, "IsNew": isNew, "Categories": tree.Flatten()},
	})
}

// PostNew renders the empty post form.
func (a *Admin) PostNew(w http.ResponseWriter, r *http.Request) {
	a.postForm(w, r, http.StatusOK, &models.Post{}, true, nil)
}

func (a *Admin) loadPost(w http.ResponseWriter, r *http.Request) *models.Post {
	id, ok := int64Param(r, "id")
	if !ok {
		a.renderer.Error(w, r, http.StatusNotFound)
		return nil
	}
	p, err := a.stores.Posts.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find post failed", "id", id, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return nil
	}
	if p == nil {
		a.renderer.Error(w, r, http.StatusNotFound)
	}
	return p
}

// PostEdit renders the form of an existing post.
func (a *Admin) PostEdit(w http.ResponseWriter, r *http.Request) {
	if p := a.loadPost(w, r); p != nil {
		a.postForm(w, r, http.StatusOK, p, false, nil)
	}
}

// PostCreate saves a new post authored by the signed-in user.
func (a *Admin) PostCreate(w http.ResponseWriter, r *http.Request) {
	p := &models.Post{}
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		id := sess.UserID
		p.AuthorID = &id
	}
	a.savePost(w, r, p, true)
}

// PostUpdate saves changes to an existing post.
func (a *Admin) PostUpdate(w http.ResponseWriter, r *http.Request) {
	if p := a.loadPost(w, r); p != nil {
		a.savePost(w, r, p, false)
	}
}

func (a *Admin) savePost(w http.ResponseWriter, r *http.Request, p *models.Post, isNew bool) {
	if err := r.ParseForm(); err != nil {
		a.renderer.Error(w, r, http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	catIDs := readContent(r, &p.Content)

	fail := func(msg string) {
		a.postForm(w, r, http.StatusUnprocessableEntity, p, isNew, []string{msg})
	}

	if msg := validateContent(p.Title, p.Slug, p.Description, p.Body); msg != "" {
		fail(msg)
		return
	}
	taken, err := a.stores.Posts.SlugExists(ctx, p.Slug, p.ID)
	if err != nil {
		slog.Error("post slug check failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if taken {
		fail("Slug '" + p.Slug + "' is already in use.")
		return
	}

	if isNew {
		_, err = a.stores.Posts.Create(ctx, p, catIDs)
	} else {
		err = a.stores.Posts.Update(ctx, p, catIDs)
	}
	if err != nil {
		if msg, ok := contentError(err, p.Slug); ok {
			fail(msg)
			return
		}
		slog.Error("save post failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	slog.Info("post saved", "slug", p.Slug)
	a.invalidateKind(r.Context(), cache.KindPost)
	render.SetFlash(w, r, "success", "Post '"+p.Title+"' saved.")
	http.Redirect(w, r, "/admin/posts", http.StatusSeeOther)
}

// PostDelete removes a post.
func (a *Admin) PostDelete(w http.ResponseWriter, r *http.Request) {
	p := a.loadPost(w, r)
	if p == nil {
		return
	}
	if err := a.stores.Posts.Delete(r.Context(), p.ID); err != nil {
		slog.Error("delete post failed", "id", p.ID, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("post deleted", "slug", p.Slug)
	a.invalidateKind(r.Context(), cache.KindPost)
	render.SetFlash(w, r, "success", "Post '"+p.Title+"' deleted.")
	http.Redirect(w, r, "/admin/posts", http.StatusSeeOther)
}

// --- Products ---

// ProductsList renders the paginated, searchable product list.
func (a *Admin) ProductsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	opts := store.ListOptions{Search: search, SortBy: "updated", Desc: true}

	total, err := a.stores.Products.Count(ctx, opts, nil)
	if err != nil {
		slog.Error("count products failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	meta := listMeta(r, total)
	opts.Limit, opts.Offset = meta.PageSize, meta.Offset()
	products, err := a.stores.Products.List(ctx, opts, nil)
	if err != nil {
		slog.Error("list products failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	withPhotoURLsAll(a.bucket, products)

	a.renderer.Page(w, r, "admin/products", &render.PageData{
		Title:   "Products",
		Section: "products",
		Data: map[string]any{
			"Items":  products,
			"Search": search,
			"Pager":  render.NewPager(meta, "/admin/products", searchQuery(search)),
		},
	})
}

func (a *Admin) productForm(w http.ResponseWriter, r *http.Request, status int, p *models.Product, isNew bool, errs []string) {
	tree, err := a.stores.Categories.Tree(r.Context(), models.CategoryKindProduct)
	if err != nil {
		slog.Error("list product categories failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	withPhotoURLs(a.bucket, p)
	title := "Edit product"
	if isNew {
		title = "New product"
	}
	a.renderer.PageStatus(w, r, status, "admin/product_form", &render.PageData{
		Title:   title,
		Section: "products",
		Errors:  errs,
		Data:    map[string]any{"Product": p, "IsNew": isNew, "Categories": tree.Flatten()},
	})
}

// ProductNew renders the empty product form.
func (a *Admin) ProductNew(w http.ResponseWriter, r *http.Request) {
	a.productForm(w, r, http.StatusOK, &models.Product{}, true, nil)
}

func (a *Admin) loadProduct(w http.ResponseWriter, r *http.Request, param string) *models.Product {
	id, ok := int64Param(r, param)
	if !ok {
		a.renderer.Error(w, r, http.StatusNotFound)
		return nil
	}
	p, err := a.stores.Products.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find product failed", "id", id, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return nil
	}
	if p == nil {
		a.renderer.Error(w, r, http.StatusNotFound)
	}
	return p
}

// ProductEdit renders the form of an existing product with its photos.
func (a *Admin) ProductEdit(w http.ResponseWriter, r *http.Request) {
	if p := a.loadProduct(w, r, "id"); p != nil {
		a.productForm(w, r, http.StatusOK, p, false, nil)
	}
}

// ProductCreate saves a new product.
func (a *Admin) ProductCreate(w http.ResponseWriter, r *http.Request) {
	p := &models.Product{}
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		id := sess.UserID
		p.AuthorID = &id
	}
	a.saveProduct(w, r, p, true)
}

// ProductUpdate saves changes to an existing product.
func (a *Admin) ProductUpdate(w http.ResponseWriter, r *http.Request) {
	if p := a.loadProduct(w, r, "id"); p != nil {
		a.saveProduct(w, r, p, false)
	}
}

// parsePrice reads a non-negative price with at most two decimals.
func parsePrice(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 || v > 1e9 {
		return 0, false
	}
	return v, true
}

func (a *Admin) saveProduct(w http.ResponseWriter, r *http.Request, p *models.Product, isNew bool) {
	if err := r.ParseForm(); err != nil {
		a.renderer.Error(w, r, http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	catIDs := readContent(r, &p.Content)

	fail := func(msg string) {
		a.productForm(w, r, http.StatusUnprocessableEntity, p, isNew, []string{msg})
	}

	price, ok := parsePrice(r.PostFormValue("price"))
	if !ok {
		fail("Price must be a positive number.")
		return
	}
	p.Price = price

	if msg := validateContent(p.Title, p.Slug, p.Description, p.Body); msg != "" {
		fail(msg)
		return
	}
	taken, err := a.stores.Products.SlugExists(ctx, p.Slug, p.ID)
	if err != nil {
		slog.Error("product slug check failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if taken {
		fail("Slug '" + p.Slug + "' is already in use.")
		return
	}

	// New products go back to the edit form so photos can be added.
	redirect := "/admin/products"
	if isNew {
		var created *models.Product
		created, err = a.stores.Products.Create(ctx, p, catIDs)
		if err == nil {
			redirect = "/admin/products/" + strconv.FormatInt(created.ID, 10)
		}
	} else {
		err = a.stores.Products.Update(ctx, p, catIDs)
	}
	if err != nil {
		if msg, ok := contentError(err, p.Slug); ok {
			fail(msg)
			return
		}
		slog.Error("save product failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	slog.Info("product saved", "slug", p.Slug)
	a.invalidateKind(ctx, cache.KindProduct)
	render.SetFlash(w, r, "success", "Product '"+p.Title+"' saved.")
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// ProductDelete removes a product and its photo files.
func (a *Admin) ProductDelete(w http.ResponseWriter, r *http.Request) {
	p := a.loadProduct(w, r, "id")
	if p == nil {
		return
	}
	ctx := r.Context()
	if err := a.stores.Products.Delete(ctx, p.ID); err != nil {
		slog.Error("delete product failed", "id", p.ID, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	for _, ph := range p.Photos {
		removePhotoFile(ctx, a.bucket, &ph)
	}
	slog.Info("product deleted", "slug", p.Slug)
	a.invalidateKind(ctx, cache.KindProduct)
	render.SetFlash(w, r, "success", "Product '"+p.Title+"' deleted.")
	http.Redirect(w, r, "/admin/products", http.StatusSeeOther)
}
