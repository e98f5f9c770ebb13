// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"webmvc/internal/cache"
	"webmvc/internal/listing"
	"webmvc/internal/models"
	"webmvc/internal/render"
	"webmvc/internal/storage"
)

// Home page sizes.
const (
	homeProducts = 14
	homePosts    = 10
	relatedCount = 5
)

// Public groups handlers for the public blog and storefront. Detail pages
// and the home page are kept in the Valkey page cache as rendered content
// fragments and wrapped in the layout on every request.
type Public struct {
	renderer  *render.Renderer
	stores    *Stores
	posts     *listing.Assembler[models.Post]
	products  *listing.Assembler[models.Product]
	pageCache *cache.PageCache
	bucket    storage.Bucket
}

// NewPublic creates a new Public handler group. pageCache may be nil to
// disable caching.
func NewPublic(renderer *render.Renderer, stores *Stores, pageCache *cache.PageCache, bucket storage.Bucket) *Public {
	return &Public{
		renderer:  renderer,
		stores:    stores,
		posts:     listing.New[models.Post](models.CategoryKindBlog, stores.Categories, stores.Posts, listing.DefaultPostPageSize),
		products:  listing.New[models.Product](models.CategoryKindProduct, stores.Categories, stores.Products, listing.DefaultProductPageSize),
		pageCache: pageCache,
		bucket:    bucket,
	}
}

// serveCached writes a cached page if one exists for key.
func (p *Public) serveCached(w http.ResponseWriter, r *http.Request, key, section string) bool {
	if p.pageCache == nil {
		return false
	}
	e, ok := p.pageCache.Get(r.Context(), key)
	if !ok {
		return false
	}
	p.renderer.Cached(w, r, e.Title, e.Body, &render.PageData{Section: section})
	return true
}

// renderAndCache renders the content fragment of a page, stores it under
// key and serves it inside the layout.
func (p *Public) renderAndCache(w http.ResponseWriter, r *http.Request, key, name string, data *render.PageData) {
	frag, err := p.renderer.Fragment(name, data)
	if err != nil {
		slog.Error("render fragment failed", "template", name, "error", err)
		p.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if p.pageCache != nil {
		p.pageCache.Set(r.Context(), key, &cache.Entry{Title: data.Title, Body: frag})
	}
	p.renderer.Cached(w, r, data.Title, frag, &render.PageData{Section: data.Section})
}

// Home renders the newest products and posts.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	key := cache.HomeKey()
	if p.serveCached(w, r, key, "home") {
		return
	}

	ctx := r.Context()
	products, err := p.stores.Products.Latest(ctx, homeProducts)
	if err != nil {
		slog.Error("home products failed", "error", err)
		p.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	posts, err := p.stores.Posts.Latest(ctx, homePosts)
	if err != nil {
		slog.Error("home posts failed", "error", err)
		p.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	withPhotoURLsAll(p.bucket, products)

	p.renderAndCache(w, r, key, "public/home", &render.PageData{
		Title:   "Home",
		Section: "home",
		Data:    map[string]any{"Products": products, "Posts": posts},
	})
}

// Posts dispatches /post/{slug}: names ending in .html are post detail
// pages, anything else is a blog category.
func (p *Public) Posts(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "slug")
	if s, ok := strings.CutSuffix(name, ".html"); ok {
		p.postDetail(w, r, s)
		return
	}
	p.postList(w, r, name)
}

// PostList renders the blog listing across all categories.
func (p *Public) PostList(w http.ResponseWriter, r *http.Request) {
	p.postList(w, r, "")
}

func (p *Public) postList(w http.ResponseWriter, r *http.Request, categorySlug string) {
	ctx := r.Context()
	res, err := p.posts.Assemble(ctx, listing.Query{
		CategorySlug: categorySlug,
		Page:         queryInt(r, "p", 1),
		PageSize:     queryInt(r, "pagesize", 0),
	})
	if errors.Is(err, listing.ErrCategoryNotFound) {
		p.renderer.Error(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("post listing failed", "category", categorySlug, "error", err)
		p.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	tree, err := p.stores.Categories.Tree(ctx, models.CategoryKindBlog)
	if err != nil {
		slog.Error("blog categories failed", "error", err)
		p.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	title, base := "Blog", "/post"
	if res.Category != nil {
		title, base = res.Category.Title, "/post/"+res.Category.Slug
	}
	p.renderer.Page(w, r, "public/post_list", &render.PageData{
		Title:   title,
		Section: "blog",
		Data: map[string]any{
			"Result":     res,
			"Categories": tree.Flatten(),
			"Pager":      render.NewPager(res.Meta, base, pagerQuery(r)),
		},
	})
}

func (p *Public) postDetail(w http.ResponseWriter, r *http.Request, slug string) {
	key := cache.Key(cache.KindPost, slug)
	if p.serveCached(w, r, key, "blog") {
		return
	}

	ctx := r.Context()
	post, err := p.stores.Posts.FindBySlug(ctx, slug)
	if err != nil {
		slog.Error("find post failed", "slug", slug, "error", err)
		p.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if post == nil || !post.Published {
		p.renderer.Error(w, r, http.StatusNotFound)
		return
	}

	var related []models.Post
	if c := post.FirstCategory(); c != nil {
		related, err = p.stores.Posts.Related(ctx, c.ID, post.ID, relatedCount)
		if err != nil {
			slog.Warn("related posts failed", "slug", slug, "error", err)
		}
	}

	p.renderAndCache(w, r, key, "public/post_detail", &render.PageData{
		Title:   post.Title,
		Section: "blog",
		Data:    map[string]any{"Post": post, "Related": related},
	})
}

// ProductList renders the storefront listing across all categories.
func (p *Public) ProductList(w http.ResponseWriter, r *http.Request) {
	p.productList(w, r, "")
}

// ProductCategory renders the listing of one product category subtree.
func (p *Public) ProductCategory(w http.ResponseWriter, r *http.Request) {
	p.productList(w, r, chi.URLParam(r, "slug"))
}

func (p *Public) productList(w http.ResponseWriter, r *http.Request, categorySlug string) {
	ctx := r.Context()
	res, err := p.products.Assemble(ctx, listing.Query{
		CategorySlug: categorySlug,
		Page:         queryInt(r, "p", 1),
		PageSize:     queryInt(r, "pagesize", 0),
	})
	if errors.Is(err, listing.ErrCategoryNotFound) {
		p.renderer.Error(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("product listing failed", "category", categorySlug, "error", err)
		p.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	withPhotoURLsAll(p.bucket, res.Items)

	tree, err := p.stores.Categories.Tree(ctx, models.CategoryKindProduct)
	if err != nil {
		slog.Error("product categories failed", "error", err)
		p.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	title, base := "Products", "/products"
	if res.Category != nil {
		title, base = res.Category.Title, "/products/"+res.Category.Slug
	}
	p.renderer.Page(w, r, "public/product_list", &render.PageData{
		Title:   title,
		Section: "products",
		Data: map[string]any{
			"Result":     res,
			"Categories": tree.Flatten(),
			"Pager":      render.NewPager(res.Meta, base, pagerQuery(r)),
		},
	})
}

// ProductDetail renders /product/{slug}.html.
func (p *Public) ProductDetail(w http.ResponseWriter, r *http.Request) {
	slug, ok := strings.CutSuffix(chi.URLParam(r, "slug"), ".html")
	if !ok || slug == "" {
		p.renderer.Error(w, r, http.StatusNotFound)
		return
	}

	key := cache.Key(cache.KindProduct, slug)
	if p.serveCached(w, r, key, "products") {
		return
	}

	ctx := r.Context()
	product, err := p.stores.Products.FindBySlug(ctx, slug)
	if err != nil {
		slog.Error("find product failed", "slug", slug, "error", err)
		p.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if product == nil || !product.Published {
		p.renderer.Error(w, r, http.StatusNotFound)
		return
	}
	withPhotoURLs(p.bucket, product)

	var related []models.Product
	if c := product.FirstCategory(); c != nil {
		related, err = p.stores.Products.Related(ctx, c.ID, product.ID, relatedCount)
		if err != nil {
			slog.Warn("related products failed", "slug", slug, "error", err)
		}
		withPhotoURLsAll(p.bucket, related)
	}

	p.renderAndCache(w, r, key, "public/product_detail", &render.PageData{
		Title:   product.Title,
		Section: "products",
		Data:    map[string]any{"Product": product, "Related": related},
	})
}

// pagerQuery keeps the page size on pagination links.
func pagerQuery(r *http.Request) url.Values {
	q := url.Values{}
	if v := r.URL.Query().Get("pagesize"); v != "" {
		q.Set("pagesize", v)
	}
	return q
}
