// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"webmvc/internal/cache"
	"webmvc/internal/middleware"
	"webmvc/internal/models"
)

// --- Blogs ---

// BlogsList answers a page of published posts.
func (a *API) BlogsList(w http.ResponseWriter, r *http.Request) {
	p, msg := parseListParams(r.URL.Query(), postSortKeys, apiDefaultPageSize)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	posts, meta, err := listContent(r.Context(), a.stores.Posts, p, true)
	if err != nil {
		internalError(w, "api list posts failed", err)
		return
	}
	respondPage(w, "Blogs retrieved successfully", posts, meta)
}

// BlogsSearch answers published posts matching q.
func (a *API) BlogsSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, msg := parseListParams(q, postSortKeys, apiDefaultPageSize)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if p.Search = strings.TrimSpace(q.Get("q")); p.Search == "" {
		respondError(w, http.StatusBadRequest, "Search term is required")
		return
	}
	posts, meta, err := listContent(r.Context(), a.stores.Posts, p, true)
	if err != nil {
		internalError(w, "api search posts failed", err)
		return
	}
	respondPage(w, fmt.Sprintf("Found %d blogs matching '%s'", meta.TotalCount, p.Search), posts, meta)
}

// BlogGet answers one published post.
func (a *API) BlogGet(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	post, err := a.stores.Posts.FindPublishedByID(r.Context(), id)
	if err != nil {
		internalError(w, "api find post failed", err)
		return
	}
	if post == nil {
		respondError(w, http.StatusNotFound, "Blog not found")
		return
	}
	respond(w, http.StatusOK, "Blog retrieved successfully", post)
}

// BlogCategories answers the blog category tree in display order.
func (a *API) BlogCategories(w http.ResponseWriter, r *http.Request) {
	a.categories(w, r, models.CategoryKindBlog)
}

func (a *API) categories(w http.ResponseWriter, r *http.Request, kind models.CategoryKind) {
	tree, err := a.stores.Categories.Tree(r.Context(), kind)
	if err != nil {
		internalError(w, "api categories failed", err)
		return
	}
	flat := tree.Flatten()
	if flat == nil {
		flat = []models.Category{}
	}
	respond(w, http.StatusOK, "Categories retrieved successfully", flat)
}

// BlogCreate adds a post authored by the token's user.
func (a *API) BlogCreate(w http.ResponseWriter, r *http.Request) {
	post := &models.Post{}
	post.AuthorID = authorFrom(middleware.ClaimsFromCtx(r.Context()))
	a.savePost(w, r, post, true)
}

// BlogUpdate replaces the fields and categories of a post.
func (a *API) BlogUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	post, err := a.stores.Posts.FindByID(r.Context(), id)
	if err != nil {
		internalError(w, "api find post failed", err)
		return
	}
	if post == nil {
		respondError(w, http.StatusNotFound, "Blog not found")
		return
	}
	a.savePost(w, r, post, false)
}

func (a *API) savePost(w http.ResponseWriter, r *http.Request, post *models.Post, isNew bool) {
	var req contentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	req.apply(&post.Content)

	if msg := validateContent(post.Title, post.Slug, post.Description, post.Body); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	taken, err := a.stores.Posts.SlugExists(ctx, post.Slug, post.ID)
	if err != nil {
		internalError(w, "api post slug check failed", err)
		return
	}
	if taken {
		respondError(w, http.StatusConflict, "Slug '"+post.Slug+"' is already in use")
		return
	}
	catIDs, err := a.categoryIDs(ctx, models.CategoryKindBlog, req.CategoryIDs)
	if err != nil {
		internalError(w, "api load blog categories failed", err)
		return
	}

	status := http.StatusOK
	if isNew {
		var created *models.Post
		if created, err = a.stores.Posts.Create(ctx, post, catIDs); err == nil {
			post = created
		}
		status = http.StatusCreated
	} else {
		err = a.stores.Posts.Update(ctx, post, catIDs)
	}
	if err != nil {
		if !writeConflict(w, err, post.Slug) {
			internalError(w, "api save post failed", err)
		}
		return
	}
	saved, err := a.stores.Posts.FindByID(ctx, post.ID)
	if err != nil || saved == nil {
		saved = post
	}

	slog.Info("post saved via api", "slug", saved.Slug)
	dropKind(ctx, a.pageCache, cache.KindPost)
	respond(w, status, savedMessage("Blog", status), saved)
}

// BlogDelete removes a post.
func (a *API) BlogDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	ctx := r.Context()
	post, err := a.stores.Posts.FindByID(ctx, id)
	if err != nil {
		internalError(w, "api find post failed", err)
		return
	}
	if post == nil {
		respondError(w, http.StatusNotFound, "Blog not found")
		return
	}
	if err := a.stores.Posts.Delete(ctx, id); err != nil {
		internalError(w, "api delete post failed", err)
		return
	}
	slog.Info("post deleted via api", "slug", post.Slug)
	dropKind(ctx, a.pageCache, cache.KindPost)
	respond(w, http.StatusOK, "Blog deleted successfully", nil)
}

// --- Products ---

// ProductsList answers a page of published products.
func (a *API) ProductsList(w http.ResponseWriter, r *http.Request) {
	p, msg := parseListParams(r.URL.Query(), productSortKeys, apiDefaultPageSize)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	products, meta, err := listContent(r.Context(), a.stores.Products, p, true)
	if err != nil {
		internalError(w, "api list products failed", err)
		return
	}
	withPhotoURLsAll(a.bucket, products)
	respondPage(w, "Products retrieved successfully", products, meta)
}

// ProductsSearch answers published products matching q.
func (a *API) ProductsSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, msg := parseListParams(q, productSortKeys, apiDefaultPageSize)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if p.Search = strings.TrimSpace(q.Get("q")); p.Search == "" {
		respondError(w, http.StatusBadRequest, "Search term is required")
		return
	}
	products, meta, err := listContent(r.Context(), a.stores.Products, p, true)
	if err != nil {
		internalError(w, "api search products failed", err)
		return
	}
	withPhotoURLsAll(a.bucket, products)
	respondPage(w, fmt.Sprintf("Found %d products matching '%s'", meta.TotalCount, p.Search), products, meta)
}

// ProductGet answers one published product with its photos.
func (a *API) ProductGet(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	product, err := a.stores.Products.FindPublishedByID(r.Context(), id)
	if err != nil {
		internalError(w, "api find product failed", err)
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}
	withPhotoURLs(a.bucket, product)
	respond(w, http.StatusOK, "Product retrieved successfully", product)
}

// ProductCategories answers the product category tree in display order.
func (a *API) ProductCategories(w http.ResponseWriter, r *http.Request) {
	a.categories(w, r, models.CategoryKindProduct)
}

// ProductCreate adds a product.
func (a *API) ProductCreate(w http.ResponseWriter, r *http.Request) {
	product := &models.Product{}
	product.AuthorID = authorFrom(middleware.ClaimsFromCtx(r.Context()))
	a.saveProduct(w, r, product, true)
}

// ProductUpdate replaces the fields and categories of a product.
func (a *API) ProductUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	product, err := a.stores.Products.FindByID(r.Context(), id)
	if err != nil {
		internalError(w, "api find product failed", err)
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}
	a.saveProduct(w, r, product, false)
}

func (a *API) saveProduct(w http.ResponseWriter, r *http.Request, product *models.Product, isNew bool) {
	var req contentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	req.apply(&product.Content)

	if msg := validateContent(product.Title, product.Slug, product.Description, product.Body); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	switch {
	case req.Price != nil:
		if *req.Price < 0 || *req.Price > 1e9 {
			respondError(w, http.StatusBadRequest, "Price must be between 0 and 1000000000")
			return
		}
		product.Price = *req.Price
	case isNew:
		respondError(w, http.StatusBadRequest, "Price is required")
		return
	}

	taken, err := a.stores.Products.SlugExists(ctx, product.Slug, product.ID)
	if err != nil {
		internalError(w, "api product slug check failed", err)
		return
	}
	if taken {
		respondError(w, http.StatusConflict, "Slug '"+product.Slug+"' is already in use")
		return
	}
	catIDs, err := a.categoryIDs(ctx, models.CategoryKindProduct, req.CategoryIDs)
	if err != nil {
		internalError(w, "api load product categories failed", err)
		return
	}

	status := http.StatusOK
	if isNew {
		var created *models.Product
		if created, err = a.stores.Products.Create(ctx, product, catIDs); err == nil {
			product = created
		}
		status = http.StatusCreated
	} else {
		err = a.stores.Products.Update(ctx, product, catIDs)
	}
	if err != nil {
		if !writeConflict(w, err, product.Slug) {
			internalError(w, "api save product failed", err)
		}
		return
	}
	saved, err := a.stores.Products.FindByID(ctx, product.ID)
	if err != nil || saved == nil {
		saved = product
	}
	withPhotoURLs(a.bucket, saved)

	slog.Info("product saved via api", "slug", saved.Slug)
	dropKind(ctx, a.pageCache, cache.KindProduct)
	respond(w, status, savedMessage("Product", status), saved)
}

// ProductDelete removes a product and its photo files.
func (a *API) ProductDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	ctx := r.Context()
	product, err := a.stores.Products.FindByID(ctx, id)
	if err != nil {
		internalError(w, "api find product failed", err)
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err := a.stores.Products.Delete(ctx, id); err != nil {
		internalError(w, "api delete product failed", err)
		return
	}
	for _, ph := range product.Photos {
		removePhotoFile(ctx, a.bucket, &ph)
	}
	slog.Info("product deleted via api", "slug", product.Slug)
	dropKind(ctx, a.pageCache, cache.KindProduct)
	respond(w, http.StatusOK, "Product deleted successfully", nil)
}

// savedMessage words the envelope message of a create or update.
func savedMessage(what string, status int) string {
	if status == http.StatusCreated {
		return what + " created successfully"
	}
	return what + " updated successfully"
}
