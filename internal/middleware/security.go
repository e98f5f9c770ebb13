// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// HeaderPolicy configures SecureHeaders.
type HeaderPolicy struct {
	// HSTS sends Strict-Transport-Security. Only set it behind TLS.
	HSTS bool
	// MediaURL is the public base URL of the photo bucket. Its origin is
	// allowed as an image source.
	MediaURL string
}

const hstsValue = "max-age=31536000; includeSubDomains"

func (p HeaderPolicy) csp() string {
	img := []string{"'self'", "data:"}
	if u, err := url.Parse(p.MediaURL); err == nil && u.Scheme != "" && u.Host != "" {
		img = append(img, u.Scheme+"://"+u.Host)
	}
	return strings.Join([]string{
		"default-src 'self'",
		"img-src " + strings.Join(img, " "),
		"style-src 'self' 'unsafe-inline'",
		"form-action 'self'",
		"frame-ancestors 'self'",
	}, "; ")
}

// SecureHeaders returns middleware that sets the browser hardening headers
// on every response.
func SecureHeaders(p HeaderPolicy) func(http.Handler) http.Handler {
	csp := p.csp()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Content-Security-Policy", csp)
			if p.HSTS {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			next.ServeHTTP(w, r)
		})
	}
}
