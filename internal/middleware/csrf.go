package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

const (
	// CSRFCookieName holds the double-submit token. Scripts may read it.
	CSRFCookieName = "wm_csrf"

	// CSRFHeaderName carries the token on fetch requests.
	CSRFHeaderName = "X-CSRF-Token"

	// CSRFFormField carries the token in HTML forms.
	CSRFFormField = "csrf_token"

	csrfTokenLength = 32
)

const csrfKey contextKey = "csrf"

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// NewCSRF returns double-submit cookie protection for the HTML site. Each
// visitor gets a random token cookie; unsafe requests must echo it in the
// X-CSRF-Token header or the csrf_token field. Templates read the token
// with CSRFTokenFromCtx.
func NewCSRF(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fresh, err := csrfToken(r)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if fresh {
				http.SetCookie(w, &http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					Secure:   secure,
					SameSite: http.SameSiteStrictMode,
				})
			}
			r = r.WithContext(context.WithValue(r.Context(), csrfKey, token))

			if !safeMethod(r.Method) && !csrfMatches(r, token) {
				http.Error(w, "CSRF token mismatch", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// csrfToken returns the visitor's token, minting one when the cookie is
// missing.
func csrfToken(r *http.Request) (string, bool, error) {
	if c, err := r.Cookie(CSRFCookieName); err == nil && c.Value != "" {
		return c.Value, false, nil
	}
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", false, err
	}
	return hex.EncodeToString(b), true, nil
}

func csrfMatches(r *http.Request, token string) bool {
	got := r.Header.Get(CSRFHeaderName)
	if got == "" {
		got = r.FormValue(CSRFFormField)
	}
	return got != "" && subtle.ConstantTimeCompare([]byte(token), []byte(got)) == 1
}

// CSRFTokenFromCtx returns the token NewCSRF stored in ctx.
func CSRFTokenFromCtx(ctx context.Context) string {
	token, _ := ctx.Value(csrfKey).(string)
	return token
}
