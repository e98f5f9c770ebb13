// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"webmvc/internal/auth"
	"webmvc/internal/cache"
	"webmvc/internal/cart"
	"webmvc/internal/database"
	"webmvc/internal/middleware"
	"webmvc/internal/models"
	"webmvc/internal/render"
	"webmvc/internal/secure"
	"webmvc/internal/session"
	"webmvc/internal/storage"
	"webmvc/internal/store"
)

const (
	testAdminEmail    = "admin@webmvc.local"
	testAdminPassword = "Admin#12345"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL, runs migrations and
// seeds the built-in roles and admin account.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "webmvc")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "webmvc")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	if err := database.Seed(db, database.SeedOptions{AdminEmail: testAdminEmail, AdminPassword: testAdminPassword}); err != nil {
		db.Close()
		t.Fatalf("seed: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		for _, pattern := range []string{"session:*", "page:*", "cart:*", "otc:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// fakeMailer records sent messages.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMessage
}

type sentMessage struct {
	To, Subject, Body string
}

func (m *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{To: to, Subject: subject, Body: html})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fakeTexter records sent text messages.
type fakeTexter struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (s *fakeTexter) Send(_ context.Context, number, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{To: number, Body: message})
	return nil
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB        *sql.DB
	Valkey    *redis.Client
	Renderer  *render.Renderer
	Sessions  *session.Store
	Stores    *Stores
	Codes     *auth.OneTimeCodes
	PageCache *cache.PageCache
	Bucket    *storage.Local
	Mailer    *fakeMailer
	Texter    *fakeTexter
	Tokens    *auth.TokenIssuer
	Public    *Public
	Account   *Account
	Manage    *Manage
	Admin     *Admin
	API       *API
	Cart      *Cart
}

// newTestEnv creates a complete test environment with all handler
// dependencies.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	renderer, err := render.New(true)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	cipher, err := secure.New("0123456789abcdef0123456789abcdef", "0123456789abcdef")
	if err != nil {
		t.Fatalf("secure.New: %v", err)
	}
	bucket, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("storage.NewLocal: %v", err)
	}

	stores := NewStores(db)
	sessions := session.NewStore(vk, false)
	codes := auth.NewOneTimeCodes(vk)
	pageCache := cache.NewPageCache(vk, time.Minute)
	mailer := &fakeMailer{}
	texter := &fakeTexter{}
	tokens := auth.NewTokenIssuer("test-secret-test-secret-test-secret", "webmvc", "webmvc-api", time.Hour)

	account := NewAccount(renderer, sessions, stores.Users, codes, mailer, texter, cipher, "http://localhost:8080", nil)
	return &testEnv{
		DB:        db,
		Valkey:    vk,
		Renderer:  renderer,
		Sessions:  sessions,
		Stores:    stores,
		Codes:     codes,
		PageCache: pageCache,
		Bucket:    bucket,
		Mailer:    mailer,
		Texter:    texter,
		Tokens:    tokens,
		Public:    NewPublic(renderer, stores, pageCache, bucket),
		Account:   account,
		Manage:    NewManage(renderer, sessions, stores.Users, codes, texter, cipher, "webmvc"),
		Admin:     NewAdmin(renderer, stores, bucket, pageCache, db, true, database.SeedOptions{AdminEmail: testAdminEmail, AdminPassword: testAdminPassword}),
		API:       NewAPI(stores, pageCache, bucket, tokens, account),
		Cart:      NewCart(renderer, cart.NewMemoryStore(), stores.Products, false),
	}
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// testSession creates a session.Data for testing.
func testSession(userID uuid.UUID, userName string, roles []string, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:      userID,
		UserName:    userName,
		Email:       userName + "@test.local",
		DisplayName: "Test User",
		Roles:       roles,
		TwoFADone:   twoFADone,
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	return withChiURLParams(r, key, value)
}

// withChiURLParams adds chi URL parameters given as key/value pairs.
func withChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// testAdminID returns the id of the seeded administrator.
func testAdminID(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := db.QueryRow(`SELECT u.id FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles r ON r.id = ur.role_id
		WHERE r.name = 'Admin' ORDER BY u.created_at LIMIT 1`).Scan(&id)
	if err != nil {
		t.Fatalf("no admin in database: %v", err)
	}
	return id
}

// cleanPosts removes test posts by slug.
func cleanPosts(t *testing.T, db *sql.DB, slugs ...string) {
	t.Helper()
	for _, s := range slugs {
		db.Exec("DELETE FROM posts WHERE slug = $1", s)
	}
}

// cleanProducts removes test products by slug.
func cleanProducts(t *testing.T, db *sql.DB, slugs ...string) {
	t.Helper()
	for _, s := range slugs {
		db.Exec("DELETE FROM products WHERE slug = $1", s)
	}
}

// cleanUsers removes test users by user name.
func cleanUsers(t *testing.T, db *sql.DB, names ...string) {
	t.Helper()
	for _, n := range names {
		db.Exec("DELETE FROM users WHERE user_name = $1", n)
	}
}

// createConfirmedUser inserts a Member with a confirmed email.
func createConfirmedUser(t *testing.T, env *testEnv, userName, password string) *models.User {
	t.Helper()
	u, err := env.Stores.Users.Create(context.Background(), store.NewUser{
		UserName:       userName,
		Email:          userName + "@test.local",
		Password:       password,
		EmailConfirmed: true,
		Roles:          []string{models.RoleMember},
	})
	if err != nil {
		t.Fatalf("create user %s: %v", userName, err)
	}
	return u
}
