package render

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"webmvc/internal/middleware"
	"webmvc/internal/models"
	"webmvc/internal/paging"
	"webmvc/internal/session"
)

func helperSession(roles ...string) *session.Data {
	return &session.Data{
		UserID:    uuid.New(),
		UserName:  "tester",
		Email:     "test@webmvc.local",
		Roles:     roles,
		TwoFADone: true,
	}
}

// helperRequest builds a request whose context carries sess.
func helperRequest(method, target string, sess *session.Data) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if sess != nil {
		req = req.WithContext(middleware.WithSession(req.Context(), sess))
	}
	return req
}

func mustNew(t *testing.T, devMode bool) *Renderer {
	t.Helper()
	rn, err := New(devMode)
	if err != nil {
		t.Fatalf("New(%v): %v", devMode, err)
	}
	return rn
}

func TestNew(t *testing.T) {
	rn := mustNew(t, false)

	for _, name := range []string{
		"public/home", "public/post_list", "public/product_detail", "public/cart", "public/error",
		"account/login", "account/twofa",
		"manage/index", "manage/authenticator",
		"admin/dashboard", "admin/category_form", "admin/product_form", "admin/database",
	} {
		if !rn.Has(name) {
			t.Errorf("expected template %q to be parsed", name)
		}
	}

	for _, name := range []string{"layout/site", "layout/partials", "site", "public/missing"} {
		if rn.Has(name) {
			t.Errorf("%q should not be registered as a page", name)
		}
	}
}

func TestDevBanner(t *testing.T) {
	tests := []struct {
		name    string
		devMode bool
		want    bool
	}{
		{"dev", true, true},
		{"prod", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rn := mustNew(t, tt.devMode)
			w := httptest.NewRecorder()
			rn.Page(w, helperRequest(http.MethodGet, "/contact", nil), "public/contact", &PageData{Title: "Contact"})

			got := strings.Contains(w.Body.String(), `class="devbar"`)
			if got != tt.want {
				t.Errorf("devbar present: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPageInjectsRequestValues(t *testing.T) {
	rn := mustNew(t, false)
	sess := helperSession(models.RoleEditor)

	var body string
	handler := middleware.NewCSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := httptest.NewRecorder()
		rn.Page(rec, r, "public/contact", &PageData{Title: "Contact", Section: "contact"})
		body = rec.Body.String()
	}))

	req := helperRequest(http.MethodGet, "/contact", sess)
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: "tok123"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	for _, want := range []string{
		`name="csrf_token" value="tok123"`,
		`<a href="/manage">tester</a>`,
		`<a href="/admin">Admin</a>`,
		`class="active" href="/contact"`,
		`<title>Contact - webmvc</title>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestPageAnonymous(t *testing.T) {
	rn := mustNew(t, false)
	w := httptest.NewRecorder()
	rn.Page(w, helperRequest(http.MethodGet, "/", nil), "public/home", &PageData{
		Title: "Home",
		Data:  map[string]any{"Products": []models.Product{}, "Posts": []models.Post{}},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("content type: got %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, `href="/account/login"`) {
		t.Error("anonymous page should link to the login page")
	}
	if strings.Contains(body, `href="/admin"`) {
		t.Error("anonymous page should not link to the admin area")
	}
}

func TestPageUnknownTemplate(t *testing.T) {
	rn := mustNew(t, false)
	w := httptest.NewRecorder()
	rn.Page(w, helperRequest(http.MethodGet, "/", nil), "public/nope", nil)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestError(t *testing.T) {
	rn := mustNew(t, false)
	w := httptest.NewRecorder()
	rn.Error(w, helperRequest(http.MethodGet, "/missing", nil), http.StatusNotFound)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusNotFound)
	}
	if !strings.Contains(w.Body.String(), "Not Found") {
		t.Error("error page should show the status text")
	}
}

func TestFragmentAndCached(t *testing.T) {
	rn := mustNew(t, false)

	p := &models.Product{
		Content: models.Content{ID: 7, Title: "Blue Mug", Slug: "blue-mug", Body: "**Sturdy**", Published: true},
		Price:   12.5,
		Photos:  []models.ProductPhoto{{ID: 1, URL: "/contents/products/7/a.jpg"}},
	}
	frag, err := rn.Fragment("public/product_detail", &PageData{Data: map[string]any{"Product": p}})
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	s := string(frag)
	for _, want := range []string{"Blue Mug", "$12.50", "<strong>Sturdy</strong>", `/add-cart/7`, `/contents/products/7/a.jpg`} {
		if !strings.Contains(s, want) {
			t.Errorf("fragment missing %q", want)
		}
	}
	if strings.Contains(s, "<html") {
		t.Error("fragment should not include the layout")
	}

	sess := helperSession()
	w := httptest.NewRecorder()
	rn.Cached(w, helperRequest(http.MethodGet, "/product/blue-mug.html", sess), "Blue Mug", frag, &PageData{Section: "products"})

	body := w.Body.String()
	if !strings.Contains(body, "<title>Blue Mug - webmvc</title>") {
		t.Error("cached page should carry the stored title")
	}
	if !strings.Contains(body, "<strong>Sturdy</strong>") {
		t.Error("cached fragment should be written unescaped")
	}
	if !strings.Contains(body, "tester") {
		t.Error("cached page should render the current session in the layout")
	}
}

func testFlashStore() *FlashStore {
	return NewFlashStore([]byte("0123456789abcdef0123456789abcdef"), false)
}

// queueFlash runs SetFlash behind the middleware and returns the cookie it
// wrote.
func queueFlash(t *testing.T, fs *FlashStore, messages ...string) *http.Cookie {
	t.Helper()
	set := httptest.NewRecorder()
	fs.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, m := range messages {
			SetFlash(w, r, "success", m)
		}
	})).ServeHTTP(set, httptest.NewRequest(http.MethodPost, "/admin/posts/new", nil))

	var last *http.Cookie
	for _, c := range set.Result().Cookies() {
		if c.Name == flashCookie {
			last = c
		}
	}
	if last == nil {
		t.Fatal("SetFlash wrote no cookie")
	}
	return last
}

func TestFlashes(t *testing.T) {
	rn := mustNew(t, false)
	fs := testFlashStore()
	cookie := queueFlash(t, fs, "Saved.", "Cache cleared.")

	var body string
	handler := fs.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := httptest.NewRecorder()
		rn.Page(rec, r, "public/contact", &PageData{Title: "Contact"})
		body = rec.Body.String()
	}))

	req := httptest.NewRequest(http.MethodGet, "/contact", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	for _, want := range []string{
		`<div class="flash flash-success">Saved.</div>`,
		`<div class="flash flash-success">Cache cleared.</div>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("flash %q not rendered: %s", want, body)
		}
	}

	// The cookie written while reading no longer carries the messages.
	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == flashCookie {
			cleared = c
		}
	}
	if cleared == nil {
		t.Fatal("flash cookie not rewritten after reading")
	}
	again := httptest.NewRequest(http.MethodGet, "/contact", nil)
	again.AddCookie(cleared)
	fs.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f := flashesFromCtx(r.Context()); len(f) != 0 {
			t.Errorf("flashes shown twice: %v", f)
		}
	})).ServeHTTP(httptest.NewRecorder(), again)
}

func TestFlashesRejectsForgedCookie(t *testing.T) {
	tests := []struct {
		name  string
		value func(t *testing.T) string
	}{
		{"garbage", func(*testing.T) string { return "!!not-base64" }},
		{"other key", func(t *testing.T) string {
			return queueFlash(t, NewFlashStore([]byte("another-secret-another-secret-xx"), false), "Forged.").Value
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := testFlashStore().Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				if f := flashesFromCtx(r.Context()); len(f) != 0 {
					t.Errorf("untrusted cookie produced flashes: %v", f)
				}
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: flashCookie, Value: tt.value(t)})
			handler.ServeHTTP(httptest.NewRecorder(), req)
			if !called {
				t.Error("next handler not called")
			}
		})
	}
}

func TestSetFlashLongMessage(t *testing.T) {
	fs := testFlashStore()
	cookie := queueFlash(t, fs, "Post '"+strings.Repeat("long title ", 600)+"' saved.")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	var got []Flash
	fs.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = flashesFromCtx(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)

	if len(got) != 1 {
		t.Fatalf("flashes: got %d, want 1", len(got))
	}
	if n := len([]rune(got[0].Message)); n != maxFlashLen {
		t.Errorf("message length: got %d, want %d", n, maxFlashLen)
	}
}

func TestSetFlashWithoutMiddleware(t *testing.T) {
	rec := httptest.NewRecorder()
	SetFlash(rec, httptest.NewRequest(http.MethodPost, "/", nil), "info", "ignored")
	if len(rec.Result().Cookies()) != 0 {
		t.Error("SetFlash without the middleware should not write a cookie")
	}
}

func TestPager(t *testing.T) {
	p := NewPager(paging.Compute(45, 2, 10), "/post/news", url.Values{"pagesize": {"10"}})

	if got, want := p.URL(3), "/post/news?p=3&pagesize=10"; got != want {
		t.Errorf("URL: got %q, want %q", got, want)
	}

	p.Param = "page"
	if got, want := p.URL(1), "/post/news?page=1&pagesize=10"; got != want {
		t.Errorf("URL with param: got %q, want %q", got, want)
	}
}

func TestPagerTemplate(t *testing.T) {
	rn := mustNew(t, false)
	tree := []models.Category{{ID: 1, Title: "News", Slug: "news"}}
	res := struct {
		Category *models.Category
		Path     []models.Category
		Items    []models.Post
		paging.Meta
	}{
		Category: &tree[0],
		Path:     tree,
		Items:    []models.Post{{Content: models.Content{Title: "Hello", Slug: "hello", UpdatedAt: time.Now()}}},
		Meta:     paging.Compute(25, 2, 10),
	}

	w := httptest.NewRecorder()
	rn.Page(w, helperRequest(http.MethodGet, "/post/news?p=2", nil), "public/post_list", &PageData{
		Title: "News",
		Data: map[string]any{
			"Result":     res,
			"Categories": tree,
			"Pager":      NewPager(res.Meta, "/post/news", nil),
		},
	})

	body := w.Body.String()
	for _, want := range []string{
		`<span class="current">2</span>`,
		`href="/post/news?p=1"`,
		`href="/post/news?p=3"`,
		`href="/post/hello.html"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("listing missing %q", want)
		}
	}
}

func TestFuncMap(t *testing.T) {
	rn := mustNew(t, false)
	id := int64(3)

	tests := []struct {
		name string
		fn   string
		args []any
		want any
	}{
		{"money", "money", []any{9.5}, "$9.50"},
		{"indent zero", "catIndent", []any{0, "Root"}, "Root"},
		{"indent two", "catIndent", []any{2, "Leaf"}, strings.Repeat("\u00a0", 8) + "Leaf"},
		{"int64Eq match", "int64Eq", []any{&id, int64(3)}, true},
		{"int64Eq nil", "int64Eq", []any{(*int64)(nil), int64(3)}, false},
		{"containsID", "containsID", []any{[]int64{1, 2, 3}, int64(2)}, true},
		{"containsStr", "containsStr", []any{[]string{"Admin"}, "Editor"}, false},
		{"dataURL png", "dataURL", []any{"data:image/png;base64,AAAA"}, template.URL("data:image/png;base64,AAAA")},
		{"dataURL other", "dataURL", []any{"javascript:alert(1)"}, template.URL("")},
		{"active", "activeClass", []any{"blog", "blog"}, "active"},
		{"inactive", "activeClass", []any{"blog", "cart"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := call(t, rn.funcMap[tt.fn], tt.args...)
			if got != tt.want {
				t.Errorf("%s%v: got %v, want %v", tt.fn, tt.args, got, tt.want)
			}
		})
	}
}

// call invokes one of the concrete funcMap entries used above.
func call(t *testing.T, fn any, args ...any) any {
	t.Helper()
	switch f := fn.(type) {
	case func(float64) string:
		return f(args[0].(float64))
	case func(int, string) string:
		return f(args[0].(int), args[1].(string))
	case func(*int64, int64) bool:
		return f(args[0].(*int64), args[1].(int64))
	case func([]int64, int64) bool:
		return f(args[0].([]int64), args[1].(int64))
	case func([]string, string) bool:
		return f(args[0].([]string), args[1].(string))
	case func(string) template.URL:
		return f(args[0].(string))
	case func(string, string) string:
		return f(args[0].(string), args[1].(string))
	}
	t.Fatalf("unexpected func type %T", fn)
	return nil
}
