// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"webmvc/internal/listing"
	"webmvc/internal/models"
)

// Public API defaults.
const (
	featuredCount          = 8
	latestBlogsCount       = 6
	productsByCategorySize = 12
	blogsByCategorySize    = 10
)

// dashboard is the body of /api/public/dashboard.
type dashboard struct {
	BlogCount        int              `json:"blogCount"`
	ProductCount     int              `json:"productCount"`
	FeaturedProducts []models.Product `json:"featuredProducts"`
	LatestBlogs      []models.Post    `json:"latestBlogs"`
}

// Dashboard answers the published totals with the newest items.
func (a *API) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var d dashboard
	var err error
	if d.BlogCount, err = a.stores.Posts.CountPublished(ctx, nil); err != nil {
		internalError(w, "api dashboard failed", err)
		return
	}
	if d.ProductCount, err = a.stores.Products.CountPublished(ctx, nil); err != nil {
		internalError(w, "api dashboard failed", err)
		return
	}
	if d.FeaturedProducts, err = a.stores.Products.Latest(ctx, featuredCount); err != nil {
		internalError(w, "api dashboard failed", err)
		return
	}
	if d.LatestBlogs, err = a.stores.Posts.Latest(ctx, latestBlogsCount); err != nil {
		internalError(w, "api dashboard failed", err)
		return
	}
	withPhotoURLsAll(a.bucket, d.FeaturedProducts)
	respond(w, http.StatusOK, "Dashboard data retrieved successfully", d)
}

// FeaturedProducts answers the newest published products.
func (a *API) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	n, msg := queryCount(r.URL.Query(), "count", featuredCount)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	products, err := a.stores.Products.Latest(r.Context(), n)
	if err != nil {
		internalError(w, "api featured products failed", err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	withPhotoURLsAll(a.bucket, products)
	respond(w, http.StatusOK, "Featured products retrieved successfully", products)
}

// LatestBlogs answers the newest published posts.
func (a *API) LatestBlogs(w http.ResponseWriter, r *http.Request) {
	n, msg := queryCount(r.URL.Query(), "count", latestBlogsCount)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	posts, err := a.stores.Posts.Latest(r.Context(), n)
	if err != nil {
		internalError(w, "api latest blogs failed", err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	respond(w, http.StatusOK, "Latest blogs retrieved successfully", posts)
}

// AllCategories answers both category trees.
func (a *API) AllCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	blog, err := a.stores.Categories.Tree(ctx, models.CategoryKindBlog)
	if err != nil {
		internalError(w, "api categories failed", err)
		return
	}
	product, err := a.stores.Categories.Tree(ctx, models.CategoryKindProduct)
	if err != nil {
		internalError(w, "api categories failed", err)
		return
	}
	respond(w, http.StatusOK, "Categories retrieved successfully", map[string]any{
		"blog":    nonNil(blog.Flatten()),
		"product": nonNil(product.Flatten()),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ProductsByCategory answers a page of the published products in a
// category and its descendants.
func (a *API) ProductsByCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	page, size, msg := fixedOrderParams(r.URL.Query(), productsByCategorySize)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	res, err := a.products.AssembleByID(r.Context(), id, page, size)
	if errors.Is(err, listing.ErrCategoryNotFound) {
		respondError(w, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		internalError(w, "api products by category failed", err)
		return
	}
	withPhotoURLsAll(a.bucket, res.Items)
	respondPage(w, "Products by category retrieved successfully", nonNil(res.Items), res.Meta)
}

// BlogsByCategory answers a page of the published posts in a category and
// its descendants.
func (a *API) BlogsByCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	page, size, msg := fixedOrderParams(r.URL.Query(), blogsByCategorySize)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	res, err := a.posts.AssembleByID(r.Context(), id, page, size)
	if errors.Is(err, listing.ErrCategoryNotFound) {
		respondError(w, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		internalError(w, "api blogs by category failed", err)
		return
	}
	respondPage(w, "Blogs by category retrieved successfully", nonNil(res.Items), res.Meta)
}

// searchResult is the body of /api/public/search.
type searchResult struct {
	Blogs        []models.Post    `json:"blogs,omitempty"`
	Products     []models.Product `json:"products,omitempty"`
	BlogCount    int              `json:"blogCount"`
	ProductCount int              `json:"productCount"`
}

// Search answers published posts and products matching q. type narrows the
// search to products or blogs; the page window applies to each kind.
func (a *API) Search(w http.ResponseWriter, r *http.Request) {
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
	kind := strings.ToLower(q.Get("type"))
	if kind == "" {
		kind = "all"
	}
	if kind != "all" && kind != "products" && kind != "blogs" {
		respondError(w, http.StatusBadRequest, "type must be all, products or blogs")
		return
	}

	ctx := r.Context()
	found := fmt.Sprintf("Search results for '%s'", p.Search)
	var res searchResult
	if kind != "products" {
		posts, meta, err := listContent(ctx, a.stores.Posts, p, true)
		if err != nil {
			internalError(w, "api search failed", err)
			return
		}
		res.Blogs, res.BlogCount = posts, meta.TotalCount
		if kind == "blogs" {
			respondPage(w, found, res, meta)
			return
		}
	}
	products, meta, err := listContent(ctx, a.stores.Products, p, true)
	if err != nil {
		internalError(w, "api search failed", err)
		return
	}
	withPhotoURLsAll(a.bucket, products)
	res.Products, res.ProductCount = products, meta.TotalCount
	if kind == "products" {
		respondPage(w, found, res, meta)
		return
	}
	respond(w, http.StatusOK, found, res)
}
