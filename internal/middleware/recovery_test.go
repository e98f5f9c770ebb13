// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func panicking(v any) http.Handler {
	return Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(v)
	}))
}

func TestRecoverer_Panics(t *testing.T) {
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name     string
		value    any
		path     string
		wantType string
		wantBody string
	}{
		{"string on page", "cart exploded", "/cart", "text/plain", "Internal Server Error"},
		{"int on page", 42, "/blogs/hello.html", "text/plain", "Internal Server Error"},
		{"error on api", errors.New("nil store"), "/api/products", "application/json", `"message":"Internal server error"`},
		{"string on api", "boom", "/api/blogs/search", "application/json", `"success":false`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			panicking(tt.value).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, tt.path, nil))

			if rr.Code != http.StatusInternalServerError {
				t.Errorf("status: got %d, want 500", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.wantType) {
				t.Errorf("Content-Type: got %q, want %s", ct, tt.wantType)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body: got %q, want it to contain %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRecoverer_AbortHandlerPropagates(t *testing.T) {
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered: got %v, want http.ErrAbortHandler", rec)
		}
	}()
	panicking(http.ErrAbortHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("ServeHTTP returned normally")
}

func TestRecoverer_PassThrough(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cart-Count", "3")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("ok"))
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/cart/add", nil))

	if rr.Code != http.StatusCreated || rr.Body.String() != "ok" {
		t.Errorf("got %d %q, want 201 ok", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Cart-Count"); got != "3" {
		t.Errorf("X-Cart-Count: got %q, want 3", got)
	}
}
