package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"webmvc/internal/auth"
)

const claimsKey contextKey = "claims"

// TokenParser verifies API access tokens.
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// Bearer parses an "Authorization: Bearer" token when present and puts its
// claims in the context. A missing or invalid token is not rejected here.
func Bearer(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if raw, ok := strings.CutPrefix(h, "Bearer "); ok {
				if claims, err := tokens.Parse(strings.TrimSpace(raw)); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), claimsKey, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireToken answers 401 without valid claims, and 403 when roles are
// given and the token holds none of them.
func RequireToken(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromCtx(r.Context())
			if claims == nil {
				apiError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if len(roles) > 0 {
				ok := false
				for _, role := range roles {
					if claims.HasRole(role) {
						ok = true
						break
					}
				}
				if !ok {
					apiError(w, http.StatusForbidden, "Forbidden")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromCtx returns the token claims stored by Bearer, or nil.
func ClaimsFromCtx(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func apiError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
