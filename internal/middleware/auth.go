// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"webmvc/internal/session"
)

type contextKey string

// SessionKey is the context key for the session data.
const SessionKey contextKey = "session"

// Pages the session guards send visitors to.
const (
	LoginPath     = "/account/login"
	TwoFactorPath = "/account/2fa"
)

// SessionGetter loads the session for a request.
type SessionGetter interface {
	Get(ctx context.Context, r *http.Request) (*session.Data, error)
}

// LoadSession puts the visitor's session, if any, into the request
// context. A store failure is logged and the request continues signed out.
func LoadSession(store SessionGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			switch {
			case err != nil:
				slog.Warn("session load failed", "path", r.URL.Path, "error", err)
			case data != nil:
				r = r.WithContext(WithSession(r.Context(), data))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// redirectBack sends the visitor to page with the current URL as returnUrl.
func redirectBack(w http.ResponseWriter, r *http.Request, page string) {
	http.Redirect(w, r, page+"?returnUrl="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
}

// RequireAuth sends signed-out visitors to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromCtx(r.Context()) == nil {
			redirectBack(w, r, LoginPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Require2FA sends users whose sign-in still awaits a second factor to the
// verification page. It goes after RequireAuth.
func Require2FA(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess := SessionFromCtx(r.Context()); sess != nil && !sess.TwoFADone {
			redirectBack(w, r, TwoFactorPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 403 unless the session user holds one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromCtx(r.Context())
			if sess == nil || !sess.HasAnyRole(roles...) {
				if sess != nil {
					slog.Warn("role check failed", "user_id", sess.UserID, "path", r.URL.Path, "want", roles)
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession returns a copy of ctx carrying data.
func WithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, SessionKey, data)
}

// SessionFromCtx returns the session loaded by LoadSession, or nil.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}
