// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the site, the account
// area, the back-office and the JSON API. Handlers are grouped by concern
// and receive their dependencies through the handler struct.
package handlers

import (
	"database/sql"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"webmvc/internal/models"
	"webmvc/internal/storage"
	"webmvc/internal/store"
)

// Stores bundles the data stores shared by the handler groups.
type Stores struct {
	Categories *store.CategoryStore
	Posts      *store.PostStore
	Products   *store.ProductStore
	Photos     *store.PhotoStore
	Users      *store.UserStore
	Roles      *store.RoleStore
	Contacts   *store.ContactStore
}

// NewStores creates every store over one database connection.
func NewStores(db *sql.DB) *Stores {
	return &Stores{
		Categories: store.NewCategoryStore(db),
		Posts:      store.NewPostStore(db),
		Products:   store.NewProductStore(db),
		Photos:     store.NewPhotoStore(db),
		Users:      store.NewUserStore(db),
		Roles:      store.NewRoleStore(db),
		Contacts:   store.NewContactStore(db),
	}
}

// int64Param parses a numeric chi URL parameter.
func int64Param(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// uuidParam parses a UUID chi URL parameter.
func uuidParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads a positive integer query value, falling back to def for
// missing or malformed input.
func queryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// formIDs parses every value of a multi-valued form field as an id,
// skipping malformed entries.
func formIDs(r *http.Request, name string) []int64 {
	var ids []int64
	for _, v := range r.Form[name] {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// localURL returns raw when it is a path on this site, otherwise fallback.
// Login and 2FA forms carry returnUrl through it.
func localURL(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return raw
}

// withPhotoURLs fills the public URL of every photo of p.
func withPhotoURLs(b storage.Bucket, p *models.Product) {
	if b == nil || p == nil {
		return
	}
	for i := range p.Photos {
		p.Photos[i].URL = b.URL(storage.ProductPhotoKey(p.ID, p.Photos[i].FileName))
	}
}

// withPhotoURLsAll is withPhotoURLs over a slice.
func withPhotoURLsAll(b storage.Bucket, items []models.Product) {
	for i := range items {
		withPhotoURLs(b, &items[i])
	}
}
