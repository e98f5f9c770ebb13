// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPageTTL is how long a rendered page stays cached.
const DefaultPageTTL = 5 * time.Minute

const pageKeyPrefix = "page:"

// Page kinds. Detail pages are keyed by slug, the home page by HomeSlug.
const (
	KindPost    = "post"
	KindProduct = "product"
	KindHome    = "home"

	HomeSlug = "index"
)

// Entry is a cached page: the rendered content fragment and its title.
// The layout around it is rendered per request so the header reflects the
// visitor's session and cart.
type Entry struct {
	Title string `json:"title"`
	Body  []byte `json:"body"`
}

// PageCache keeps rendered public pages in Valkey under page:<kind>:<slug>.
// Every failure is logged and treated as a miss.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewPageCache returns a cache on client. A zero ttl uses DefaultPageTTL.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// Key returns the cache key of a page.
func Key(kind, slug string) string {
	return kind + ":" + slug
}

// HomeKey is the key of the home page.
func HomeKey() string {
	return Key(KindHome, HomeSlug)
}

// Get returns the cached entry for key.
func (pc *PageCache) Get(ctx context.Context, key string) (*Entry, bool) {
	raw, err := pc.client.Get(ctx, pageKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("page cache get failed", "key", key, "error", err)
		}
		pc.misses.Add(1)
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		slog.Warn("page cache entry unreadable", "key", key, "error", err)
		pc.misses.Add(1)
		return nil, false
	}
	pc.hits.Add(1)
	return &e, true
}

// Set stores e under key for the cache TTL.
func (pc *PageCache) Set(ctx context.Context, key string, e *Entry) {
	raw, err := json.Marshal(e)
	if err != nil {
		slog.Warn("page cache encode failed", "key", key, "error", err)
		return
	}
	if err := pc.client.Set(ctx, pageKeyPrefix+key, raw, pc.ttl).Err(); err != nil {
		slog.Warn("page cache set failed", "key", key, "error", err)
	}
}

// Invalidate drops the given keys.
func (pc *PageCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = pageKeyPrefix + k
	}
	if err := pc.client.Del(ctx, full...).Err(); err != nil {
		slog.Warn("page cache invalidate failed", "keys", keys, "error", err)
		return
	}
	slog.Debug("page cache invalidated", "keys", keys)
}

// InvalidateKind drops every page of one kind. Category edits use it since
// any detail page of that kind may list the category.
func (pc *PageCache) InvalidateKind(ctx context.Context, kind string) {
	n := pc.scan(ctx, pageKeyPrefix+kind+":*", true)
	slog.Info("page cache cleared", "kind", kind, "deleted", n)
}

// InvalidateAll drops every cached page and returns how many were removed.
func (pc *PageCache) InvalidateAll(ctx context.Context) int {
	n := pc.scan(ctx, pageKeyPrefix+"*", true)
	slog.Info("page cache cleared", "deleted", n)
	return n
}

// Stats describes the cache for the back-office dashboard. Hits and misses
// count since process start.
type Stats struct {
	Pages  int
	Hits   int64
	Misses int64
}

// HitRatio is hits over lookups, 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	if total := s.Hits + s.Misses; total > 0 {
		return float64(s.Hits) / float64(total)
	}
	return 0
}

// HitPercent is HitRatio rounded to a whole percentage.
func (s Stats) HitPercent() int {
	return int(math.Round(s.HitRatio() * 100))
}

// Stats counts the cached pages and reports the lookup counters.
func (pc *PageCache) Stats(ctx context.Context) Stats {
	return Stats{
		Pages:  pc.scan(ctx, pageKeyPrefix+"*", false),
		Hits:   pc.hits.Load(),
		Misses: pc.misses.Load(),
	}
}

// scan walks the keys matching match, deleting them when del is set, and
// returns how many it saw.
func (pc *PageCache) scan(ctx context.Context, match string, del bool) int {
	var cursor uint64
	n := 0
	for {
		keys, next, err := pc.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			slog.Warn("page cache scan failed", "match", match, "error", err)
			return n
		}
		if del && len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("page cache delete failed", "error", err)
			}
		}
		n += len(keys)
		if cursor = next; cursor == 0 {
			return n
		}
	}
}
