// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render executes the embedded HTML templates. Every page template
// is paired with the layout of its directory: public and account pages use
// the site layout, manage pages the profile layout, admin pages the
// back-office layout.
package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"webmvc/internal/markdown"
	"webmvc/internal/middleware"
	"webmvc/internal/session"
)

//go:embed templates
var templateFS embed.FS

// PageData holds all data passed to templates.
type PageData struct {
	Title     string         // Page title for <title> tag
	Section   string         // Active navigation section
	Session   *session.Data  // Current user session (nil if anonymous)
	CSRFToken string         // CSRF token for forms
	CartCount int            // Items in the visitor's cart
	Data      map[string]any // Page-specific data
	Flashes   []Flash        // One-time notification messages
	Errors    []string       // Form validation messages
	Form      url.Values     // Submitted form values, for re-display
}

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string // "success", "error", "info"
	Message string
}

// Renderer handles template parsing and execution.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
	devMode   bool
}

// layouts maps a template directory to its layout file.
var layouts = map[string]string{
	"public":  "layout/site.html",
	"account": "layout/site.html",
	"manage":  "layout/manage.html",
	"admin":   "layout/admin.html",
}

// New parses every page template from the embedded filesystem. In dev mode
// pages show a development banner and the admin database reset is offered.
func New(devMode bool) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		devMode:   devMode,
	}
	r.funcMap = template.FuncMap{
		"isDev": func() bool { return devMode },
		"activeClass": func(current, target string) string {
			if current == target {
				return "active"
			}
			return ""
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		// catIndent prefixes a category title with non-breaking spaces by
		// depth, for hierarchical <select> options.
		"catIndent": func(depth int, name string) string {
			if depth == 0 {
				return name
			}
			return strings.Repeat("\u00a0\u00a0\u00a0\u00a0", depth) + name
		},
		"uuidEq": func(ptr *uuid.UUID, val uuid.UUID) bool {
			return ptr != nil && *ptr == val
		},
		"int64Eq": func(ptr *int64, val int64) bool {
			return ptr != nil && *ptr == val
		},
		"containsID": func(ids []int64, id int64) bool {
			for _, v := range ids {
				if v == id {
					return true
				}
			}
			return false
		},
		"containsStr": func(list []string, s string) bool {
			for _, v := range list {
				if v == s {
					return true
				}
			}
			return false
		},
		"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"dateInput": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"markdown": func(src string) template.HTML {
			html, err := markdown.ToHTML(src)
			if err != nil {
				slog.Warn("markdown render failed", "error", err)
				return template.HTML(template.HTMLEscapeString(src))
			}
			return template.HTML(html)
		},
		"excerpt": markdown.Excerpt,
		"add":     func(a, b int) int { return a + b },
		"mul":     func(a float64, b int) float64 { return a * float64(b) },
		"hasRole": func(s *session.Data, role string) bool {
			return s != nil && s.HasRole(role)
		},
		"dataURL": func(s string) template.URL {
			if strings.HasPrefix(s, "data:image/png;base64,") {
				return template.URL(s)
			}
			return ""
		},
	}

	for dir, layout := range layouts {
		entries, err := fs.ReadDir(templateFS, "templates/"+dir)
		if err != nil {
			return nil, fmt.Errorf("read templates/%s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || path.Ext(e.Name()) != ".html" {
				continue
			}
			name := dir + "/" + strings.TrimSuffix(e.Name(), ".html")
			tmpl, err := template.New(path.Base(layout)).Funcs(r.funcMap).ParseFS(templateFS,
				"templates/"+layout,
				"templates/layout/partials.html",
				"templates/"+dir+"/"+e.Name(),
			)
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}

	return r, nil
}

// Has reports whether a page template exists.
func (rn *Renderer) Has(name string) bool {
	_, ok := rn.templates[name]
	return ok
}

// Page renders a full page with status 200.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus renders a full page with the given status code.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	body, err := rn.Bytes(r, name, data)
	if err != nil {
		slog.Error("render page", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

// Bytes executes a page into memory. Request-scoped values (session, CSRF
// token, flashes) are filled in from r.
func (rn *Renderer) Bytes(r *http.Request, name string, data *PageData) ([]byte, error) {
	tmpl, ok := rn.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	if data == nil {
		data = &PageData{}
	}
	if data.Data == nil {
		data.Data = map[string]any{}
	}
	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}
	data.Flashes = append(data.Flashes, flashesFromCtx(r.Context())...)
	if data.CartCount == 0 {
		data.CartCount = CartCountFromCtx(r.Context())
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Fragment executes only the "content" block of a page. Detail pages are
// cached in this form and wrapped in the layout per request, so cached
// bytes never carry a visitor's session or CSRF token.
func (rn *Renderer) Fragment(name string, data *PageData) ([]byte, error) {
	tmpl, ok := rn.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "content", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Cached renders a previously stored fragment inside the site layout.
func (rn *Renderer) Cached(w http.ResponseWriter, r *http.Request, title string, fragment []byte, data *PageData) {
	if data == nil {
		data = &PageData{}
	}
	data.Title = title
	if data.Data == nil {
		data.Data = map[string]any{}
	}
	data.Data["Body"] = template.HTML(fragment)
	rn.Page(w, r, "public/cached", data)
}

// Error renders the site error page with the given status.
func (rn *Renderer) Error(w http.ResponseWriter, r *http.Request, status int) {
	rn.PageStatus(w, r, status, "public/error", &PageData{
		Title: http.StatusText(status),
		Data:  map[string]any{"Status": status, "Text": http.StatusText(status)},
	})
}

type cartCountKey struct{}

// WithCartCount returns a copy of ctx carrying the number of items in the
// visitor's cart, shown in the site navigation.
func WithCartCount(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, cartCountKey{}, n)
}

// CartCountFromCtx returns the cart item count stored by WithCartCount.
func CartCountFromCtx(ctx context.Context) int {
	n, _ := ctx.Value(cartCountKey{}).(int)
	return n
}
