// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// counter is one client's hits on one route in the current window.
type counter struct {
	start time.Time
	hits  int
}

// RateLimiter throttles sign-in style POSTs with a fixed window per client
// address and route, so a burst of login attempts does not also lock the
// client out of registration.
type RateLimiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	limit    int
	window   time.Duration
	trusted  []netip.Prefix
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows limit requests per window and sweeps stale counters
// once per window in the background. Forwarding headers are honoured only
// when the connection comes from one of the trusted proxy ranges.
func NewRateLimiter(limit int, window time.Duration, trusted ...netip.Prefix) *RateLimiter {
	rl := &RateLimiter{
		counters: make(map[string]*counter),
		limit:    limit,
		window:   window,
		trusted:  trusted,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the background sweep. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopCh:
			return
		}
	}
}

// take records a hit for key and reports whether it is within the limit,
// with the time left until the window resets.
func (rl *RateLimiter) take(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	c := rl.counters[key]
	if c == nil || now.Sub(c.start) >= rl.window {
		c = &counter{start: now}
		rl.counters[key] = c
	}
	left := rl.window - now.Sub(c.start)
	if c.hits >= rl.limit {
		return false, left
	}
	c.hits++
	return true, left
}

// sweep drops counters whose window has passed.
func (rl *RateLimiter) sweep() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, c := range rl.counters {
		if now.Sub(c.start) >= rl.window {
			delete(rl.counters, key)
		}
	}
}

// Middleware limits the wrapped routes. GET and HEAD pass untouched so a
// throttled client can still load the forms. API clients get the JSON
// error envelope.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		ok, left := rl.take(clientIP(r, rl.trusted) + " " + r.URL.Path)
		if !ok {
			secs := int(left.Round(time.Second).Seconds())
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			if strings.HasPrefix(r.URL.Path, "/api/") {
				apiError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the address a request is counted against. The first
// X-Forwarded-For hop, then X-Real-IP, replaces the connection's remote host
// only when that host is inside one of the trusted prefixes.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	host := remoteHost(r)
	if !isTrusted(host, trusted) {
		return host
	}
	if fwd := forwardedFor(r); fwd != "" {
		return fwd
	}
	return host
}

// forwardedFor returns the client named by proxy headers, or "".
func forwardedFor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func isTrusted(host string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
