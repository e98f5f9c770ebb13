package cart

import (
	"net/http"

	"github.com/google/uuid"
)

// CookieName carries the visitor's cart id.
const CookieName = "wm_cart"

// ID returns the cart id from the request cookie, or "" when the visitor
// has no cart yet.
func ID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

// EnsureID returns the existing cart id or issues a new one and sets the
// cookie on w.
func EnsureID(w http.ResponseWriter, r *http.Request, secure bool) string {
	if id := ID(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(DefaultTTL.Seconds()),
	})
	return id
}
