// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"webmvc/internal/auth"
	"webmvc/internal/cache"
	"webmvc/internal/listing"
	"webmvc/internal/models"
	"webmvc/internal/paging"
	"webmvc/internal/slug"
	"webmvc/internal/storage"
	"webmvc/internal/store"
)

// API list parameter limits.
const (
	apiDefaultPageSize = 10
	apiMaxPageSize     = 100
	maxJSONBody        = 1 << 20
)

// API groups the JSON endpoints mounted under /api.
type API struct {
	stores    *Stores
	posts     *listing.Assembler[models.Post]
	products  *listing.Assembler[models.Product]
	pageCache *cache.PageCache
	bucket    storage.Bucket
	tokens    *auth.TokenIssuer
	account   *Account
}

// NewAPI creates the API handler group. account sends the confirmation
// mail of users registered through the API.
func NewAPI(stores *Stores, pageCache *cache.PageCache, bucket storage.Bucket, tokens *auth.TokenIssuer, account *Account) *API {
	return &API{
		stores:    stores,
		posts:     listing.New[models.Post](models.CategoryKindBlog, stores.Categories, stores.Posts, listing.DefaultPostPageSize),
		products:  listing.New[models.Product](models.CategoryKindProduct, stores.Categories, stores.Products, listing.DefaultProductPageSize),
		pageCache: pageCache,
		bucket:    bucket,
		tokens:    tokens,
		account:   account,
	}
}

// envelope is the body of every API response. Pagination fields are
// omitted for non-list responses.
type envelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	TotalCount int    `json:"totalCount,omitempty"`
	PageNumber int    `json:"pageNumber,omitempty"`
	PageSize   int    `json:"pageSize,omitempty"`
	TotalPages int    `json:"totalPages,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respond(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: msg, Data: data})
}

func respondPage(w http.ResponseWriter, msg string, data any, meta paging.Meta) {
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Message:    msg,
		Data:       data,
		TotalCount: meta.TotalCount,
		PageNumber: meta.Page,
		PageSize:   meta.PageSize,
		TotalPages: meta.TotalPages,
	})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

// internalError logs err and answers 500 without exposing it.
func internalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	respondError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// listParams are the parsed pagination, sort and search parameters of an
// API listing.
type listParams struct {
	Page     int
	PageSize int
	SortBy   string
	Desc     bool
	Search   string
}

// options converts p into store list options.
func (p listParams) options(publishedOnly bool) store.ListOptions {
	return store.ListOptions{
		Search:        p.Search,
		SortBy:        p.SortBy,
		Desc:          p.Desc,
		PublishedOnly: publishedOnly,
	}
}

var (
	postSortKeys    = []string{"title", "created", "updated"}
	productSortKeys = []string{"title", "created", "updated", "price"}
)

// parseListParams validates pageNumber, pageSize, sortBy, sortOrder and
// searchTerm. The returned message is non-empty for invalid input. An
// omitted sort defaults to the last update, newest first.
func parseListParams(q url.Values, sortKeys []string, defSize int) (listParams, string) {
	p := listParams{SortBy: "updated", Desc: true}
	var msg string
	if p.Page, p.PageSize, msg = parsePageParams(q, defSize); msg != "" {
		return p, msg
	}
	if v := strings.ToLower(q.Get("sortBy")); v != "" {
		known := false
		for _, k := range sortKeys {
			if v == k {
				known = true
				break
			}
		}
		if !known {
			return p, "sortBy must be one of " + strings.Join(sortKeys, ", ")
		}
		p.SortBy = v
		p.Desc = false
	}
	switch strings.ToLower(q.Get("sortOrder")) {
	case "":
	case "asc":
		p.Desc = false
	case "desc":
		p.Desc = true
	default:
		return p, "sortOrder must be asc or desc"
	}
	p.Search = strings.TrimSpace(q.Get("searchTerm"))
	return p, ""
}

// parsePageParams validates pageNumber and pageSize alone, for listings
// with a fixed order. Sort and search values are refused there rather than
// ignored.
func parsePageParams(q url.Values, defSize int) (page, size int, msg string) {
	page, size = 1, defSize
	if v := q.Get("pageNumber"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, size, "pageNumber must be a positive integer"
		}
		page = n
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > apiMaxPageSize {
			return page, size, "pageSize must be between 1 and " + strconv.Itoa(apiMaxPageSize)
		}
		size = n
	}
	return page, size, ""
}

// fixedOrderParams is parsePageParams for routes that also refuse sortBy,
// sortOrder and searchTerm.
func fixedOrderParams(q url.Values, defSize int) (page, size int, msg string) {
	for _, name := range []string{"sortBy", "sortOrder", "searchTerm"} {
		if q.Has(name) {
			return 0, 0, name + " is not supported here; results are ordered by last update"
		}
	}
	return parsePageParams(q, defSize)
}

// queryCount reads a positive count query value capped at apiMaxPageSize.
func queryCount(q url.Values, name string, def int) (int, string) {
	v := q.Get(name)
	if v == "" {
		return def, ""
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > apiMaxPageSize {
		return 0, name + " must be between 1 and " + strconv.Itoa(apiMaxPageSize)
	}
	return n, ""
}

// contentLister is the listing surface shared by the post and product
// stores.
type contentLister[T any] interface {
	Count(ctx context.Context, opts store.ListOptions, categoryIDs []int64) (int, error)
	List(ctx context.Context, opts store.ListOptions, categoryIDs []int64) ([]T, error)
}

// listContent counts and pages items for the given parameters. The
// returned slice is never nil.
func listContent[T any](ctx context.Context, s contentLister[T], p listParams, publishedOnly bool) ([]T, paging.Meta, error) {
	opts := p.options(publishedOnly)
	total, err := s.Count(ctx, opts, nil)
	if err != nil {
		return nil, paging.Meta{}, err
	}
	meta := paging.Compute(total, p.Page, p.PageSize)
	items := []T{}
	if total > 0 {
		opts.Limit, opts.Offset = meta.PageSize, meta.Offset()
		items, err = s.List(ctx, opts, nil)
		if err != nil {
			return nil, paging.Meta{}, err
		}
		if items == nil {
			items = []T{}
		}
	}
	return items, meta, nil
}

// contentRequest is the JSON body of post and product writes.
type contentRequest struct {
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Published   bool     `json:"published"`
	CategoryIDs []int64  `json:"categoryIds"`
	Price       *float64 `json:"price,omitempty"`
}

// apply copies the request onto c. An empty slug is generated from the
// title.
func (req *contentRequest) apply(c *models.Content) {
	c.Title = strings.TrimSpace(req.Title)
	c.Slug = strings.TrimSpace(req.Slug)
	c.Description = strings.TrimSpace(req.Description)
	c.Body = req.Content
	c.Published = req.Published
	if c.Slug == "" {
		c.Slug = slug.Generate(c.Title)
	}
}

// categoryIDs keeps the requested ids that name a category of kind.
func (a *API) categoryIDs(ctx context.Context, kind models.CategoryKind, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tree, err := a.stores.Categories.Tree(ctx, kind)
	if err != nil {
		return nil, err
	}
	var valid []int64
	for _, id := range ids {
		if _, ok := tree.Get(id); ok {
			valid = append(valid, id)
		}
	}
	return valid, nil
}

// authorFrom returns the user id carried by claims, or nil.
func authorFrom(claims *auth.Claims) *uuid.UUID {
	if claims == nil {
		return nil
	}
	id, err := claims.UserID()
	if err != nil {
		return nil
	}
	return &id
}

// writeConflict reports whether err is a duplicate slug and answers 409.
func writeConflict(w http.ResponseWriter, err error, itemSlug string) bool {
	if errors.Is(err, store.ErrSlugTaken) {
		respondError(w, http.StatusConflict, "Slug '"+itemSlug+"' is already in use")
		return true
	}
	return false
}
