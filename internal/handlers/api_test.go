// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"

	"webmvc/internal/middleware"
	"webmvc/internal/models"
	"webmvc/internal/paging"
)

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantErr  bool
		wantPage int
		wantSize int
		wantSort string
		wantDesc bool
	}{
		{"defaults", "", false, 1, 10, "updated", true},
		{"explicit page", "pageNumber=3&pageSize=25", false, 3, 25, "updated", true},
		{"sort by title asc", "sortBy=title", false, 1, 10, "title", false},
		{"sort by title desc", "sortBy=Title&sortOrder=DESC", false, 1, 10, "title", true},
		{"page zero", "pageNumber=0", true, 0, 0, "", false},
		{"page not a number", "pageNumber=x", true, 0, 0, "", false},
		{"size too large", "pageSize=101", true, 0, 0, "", false},
		{"size zero", "pageSize=0", true, 0, 0, "", false},
		{"unknown sort key", "sortBy=password", true, 0, 0, "", false},
		{"bad sort order", "sortOrder=up", true, 0, 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			p, msg := parseListParams(q, postSortKeys, apiDefaultPageSize)
			if tt.wantErr {
				if msg == "" {
					t.Error("expected an error, got none")
				}
				return
			}
			if msg != "" {
				t.Fatalf("unexpected error: %s", msg)
			}
			if p.Page != tt.wantPage || p.PageSize != tt.wantSize {
				t.Errorf("page: got %d/%d, want %d/%d", p.Page, p.PageSize, tt.wantPage, tt.wantSize)
			}
			if p.SortBy != tt.wantSort || p.Desc != tt.wantDesc {
				t.Errorf("sort: got %s desc=%v, want %s desc=%v", p.SortBy, p.Desc, tt.wantSort, tt.wantDesc)
			}
		})
	}
}

func TestParseListParams_PriceOnlyForProducts(t *testing.T) {
	q := url.Values{"sortBy": {"price"}}
	if _, msg := parseListParams(q, postSortKeys, apiDefaultPageSize); msg == "" {
		t.Error("posts: expected price to be rejected")
	}
	if _, msg := parseListParams(q, productSortKeys, apiDefaultPageSize); msg != "" {
		t.Errorf("products: unexpected error: %s", msg)
	}
}

func TestParseListParams_SearchTerm(t *testing.T) {
	q := url.Values{"searchTerm": {"  go  "}}
	p, _ := parseListParams(q, postSortKeys, apiDefaultPageSize)
	if p.Search != "go" {
		t.Errorf("search: got %q, want %q", p.Search, "go")
	}
}

func TestQueryCount(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 8, false},
		{"3", 3, false},
		{"100", 100, false},
		{"0", 0, true},
		{"101", 0, true},
		{"many", 0, true},
	}
	for _, tt := range tests {
		n, msg := queryCount(url.Values{"count": {tt.raw}}, "count", 8)
		if (msg != "") != tt.wantErr {
			t.Errorf("count %q: got error %q, wantErr %v", tt.raw, msg, tt.wantErr)
		}
		if !tt.wantErr && n != tt.want {
			t.Errorf("count %q: got %d, want %d", tt.raw, n, tt.want)
		}
	}
}

func TestFixedOrderParams(t *testing.T) {
	tests := []struct {
		raw     string
		page    int
		size    int
		wantErr string
	}{
		{"", 1, 12, ""},
		{"pageNumber=3&pageSize=5", 3, 5, ""},
		{"pageNumber=0", 0, 0, "pageNumber"},
		{"pageSize=101", 0, 0, "pageSize"},
		{"sortBy=title", 0, 0, "sortBy"},
		{"sortOrder=asc", 0, 0, "sortOrder"},
		{"searchTerm=mug", 0, 0, "searchTerm"},
		{"sortBy=", 0, 0, "sortBy"},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.raw)
		page, size, msg := fixedOrderParams(q, 12)
		if tt.wantErr != "" {
			if !strings.Contains(msg, tt.wantErr) {
				t.Errorf("%q: got message %q, want it to name %s", tt.raw, msg, tt.wantErr)
			}
			continue
		}
		if msg != "" || page != tt.page || size != tt.size {
			t.Errorf("%q: got (%d, %d, %q), want (%d, %d, \"\")", tt.raw, page, size, msg, tt.page, tt.size)
		}
	}
}

func TestAPIByCategory_RejectsSort(t *testing.T) {
	api := &API{}
	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  string
	}{
		{"products", api.ProductsByCategory, "/api/public/products-by-category/3?sortBy=price"},
		{"blogs", api.BlogsByCategory, "/api/public/blogs-by-category/3?sortOrder=asc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withChiURLParam(httptest.NewRequest(http.MethodGet, tt.target, nil), "id", "3")
			rec := httptest.NewRecorder()
			tt.handler(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if body := decodeEnvelope(t, rec); body["success"] != false {
				t.Errorf("success: got %v, want false", body["success"])
			}
		})
	}
}

func TestSavedMessage(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusCreated, "Blog created successfully"},
		{http.StatusOK, "Blog updated successfully"},
	}
	for _, tt := range tests {
		if got := savedMessage("Blog", tt.status); got != tt.want {
			t.Errorf("status %d: got %q, want %q", tt.status, got, tt.want)
		}
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestRespondPage_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	respondPage(rec, "Blogs retrieved successfully", []string{"a", "b"}, paging.Compute(12, 2, 5))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	body := decodeEnvelope(t, rec)
	want := map[string]float64{"totalCount": 12, "pageNumber": 2, "pageSize": 5, "totalPages": 3}
	for k, v := range want {
		if got, _ := body[k].(float64); got != v {
			t.Errorf("%s: got %v, want %v", k, body[k], v)
		}
	}
	if body["success"] != true {
		t.Errorf("success: got %v, want true", body["success"])
	}
	if body["message"] != "Blogs retrieved successfully" {
		t.Errorf("message: got %v, want Blogs retrieved successfully", body["message"])
	}
}

func TestRespond_OmitsPagination(t *testing.T) {
	rec := httptest.NewRecorder()
	respond(rec, http.StatusCreated, "done", map[string]int{"id": 1})

	if rec.Code != http.StatusCreated {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusCreated)
	}
	body := decodeEnvelope(t, rec)
	for _, k := range []string{"totalCount", "pageNumber", "pageSize", "totalPages"} {
		if _, ok := body[k]; ok {
			t.Errorf("%s: present in a non-list response", k)
		}
	}
	if body["message"] != "done" {
		t.Errorf("message: got %v, want done", body["message"])
	}
}

func TestInternalError_HidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	internalError(rec, "boom", errTest("database password is hunter2"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rec.Body.String(), "hunter2") {
		t.Error("error cause leaked into the response")
	}
	body := decodeEnvelope(t, rec)
	if body["message"] != "Internal server error" || body["success"] != false {
		t.Errorf("body: got %v", body)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

// --- Integration ---

func TestAPIBlogsList_InvalidPageIs400(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/blogs?pageSize=1000", nil)
	rec := httptest.NewRecorder()
	env.API.BlogsList(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAPIBlogsList_OnlyPublished(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	suffix := uuid.NewString()[:8]
	published, draft := "api-pub-"+suffix, "api-draft-"+suffix
	t.Cleanup(func() { cleanPosts(t, env.DB, published, draft) })

	for _, s := range []struct {
		slug string
		pub  bool
	}{{published, true}, {draft, false}} {
		p := &models.Post{Content: models.Content{Title: "API " + s.slug, Slug: s.slug, Published: s.pub}}
		if _, err := env.Stores.Posts.Create(ctx, p, nil); err != nil {
			t.Fatalf("create post: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/blogs?searchTerm="+suffix+"&pageSize=100", nil)
	rec := httptest.NewRecorder()
	env.API.BlogsList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, published) {
		t.Errorf("body: want published post %s", published)
	}
	if strings.Contains(body, draft) {
		t.Errorf("body: draft post %s must not be listed", draft)
	}
	if msg := decodeEnvelope(t, rec)["message"]; msg != "Blogs retrieved successfully" {
		t.Errorf("message: got %v, want Blogs retrieved successfully", msg)
	}
}

func TestAPIBlogCreate_DuplicateSlugIs409(t *testing.T) {
	env := newTestEnv(t)

	slug := "api-dup-" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanPosts(t, env.DB, slug) })

	payload := `{"title":"Duplicate","slug":"` + slug + `","content":"x","published":true}`
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/blogs", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		env.API.BlogCreate(rec, req)
		if rec.Code != want {
			t.Errorf("attempt %d: got status %d, want %d (%s)", i+1, rec.Code, want, rec.Body.String())
		}
	}
}

func TestAPIBlogGet_NotFound(t *testing.T) {
	env := newTestEnv(t)

	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/api/blogs/999999999", nil), "id", "999999999")
	rec := httptest.NewRecorder()
	env.API.BlogGet(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAPILogin_IssuesToken(t *testing.T) {
	env := newTestEnv(t)

	name := "apiadmin" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })
	u := createConfirmedUser(t, env, name, "Admin#12345")
	if err := env.Stores.Users.SetRoles(t.Context(), u.ID, []string{models.RoleAdmin}); err != nil {
		t.Fatalf("set roles: %v", err)
	}

	payload := `{"email":"` + u.Email + `","password":"Admin#12345"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	env.API.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var body struct {
		Data loginResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := env.Tokens.Parse(body.Data.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if !claims.HasRole(models.RoleAdmin) {
		t.Errorf("roles: got %v, want Admin", claims.Roles)
	}
}

func TestAPILogin_WrongPasswordIs401(t *testing.T) {
	env := newTestEnv(t)

	name := "apiwrong" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })
	createConfirmedUser(t, env, name, "Correct#123")

	payload := `{"login":"` + name + `","password":"Wrong#123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	env.API.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAPIProfile_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	handler := middleware.Bearer(env.Tokens)(middleware.RequireToken()(http.HandlerFunc(env.API.Profile)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	name := "apiprofile" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanUsers(t, env.DB, name) })
	admin := createConfirmedUser(t, env, name, "Profile#123")
	token, _, err := env.Tokens.Issue(admin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("with token: got %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), admin.ID.String()) {
		t.Errorf("body: want user id %s", admin.ID)
	}
}

func TestAPIProductsByCategory_UnknownIs404(t *testing.T) {
	env := newTestEnv(t)

	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/api/public/products-by-category/999999999", nil), "id", strconv.Itoa(999999999))
	rec := httptest.NewRecorder()
	env.API.ProductsByCategory(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAPISearch_RejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/public/search?q=mug&type=users", nil)
	rec := httptest.NewRecorder()
	env.API.Search(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
