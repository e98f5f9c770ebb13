// Package session keeps signed-in users in Valkey. The browser holds only a
// random ID in the wm_session cookie; the payload lives under session:<id>
// and expires after a period of inactivity.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "wm_session"

	// DefaultTTL is the idle timeout of a browser session. Every read
	// pushes the expiry forward.
	DefaultTTL = 24 * time.Hour

	// PersistentTTL is the idle timeout when the user ticked "remember me".
	PersistentTTL = 14 * 24 * time.Hour

	keyPrefix = "session:"
	idBytes   = 32
)

// ErrNoSession is returned by operations that need an existing session.
var ErrNoSession = errors.New("session: no session cookie")

// Data is the session payload.
type Data struct {
	UserID      uuid.UUID `json:"user_id"`
	UserName    string    `json:"user_name"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Roles       []string  `json:"roles"`
	TwoFADone   bool      `json:"two_fa_done"`
	Persistent  bool      `json:"persistent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasRole reports whether the session user holds the named role.
func (d *Data) HasRole(name string) bool {
	for _, r := range d.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the session user holds one of names.
func (d *Data) HasAnyRole(names ...string) bool {
	for _, n := range names {
		if d.HasRole(n) {
			return true
		}
	}
	return false
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client        *redis.Client
	ttl           time.Duration
	persistentTTL time.Duration
	secure        bool
}

// NewStore creates a session store backed by client. secure marks the
// cookie Secure, for deployments behind TLS.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{
		client:        client,
		ttl:           DefaultTTL,
		persistentTTL: PersistentTTL,
		secure:        secure,
	}
}

func (s *Store) ttlFor(d *Data) time.Duration {
	if d.Persistent {
		return s.persistentTTL
	}
	return s.ttl
}

// cookie builds the session cookie. Browser sessions get no MaxAge so they
// end when the browser closes; persistent ones outlive it.
func (s *Store) cookie(id string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

func (s *Store) save(ctx context.Context, id string, data *Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return s.client.Set(ctx, keyPrefix+id, payload, s.ttlFor(data)).Err()
}

// Create stores data under a fresh ID and sets the cookie. It returns the ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := newID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	if err := s.save(ctx, id, data); err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	maxAge := 0
	if data.Persistent {
		maxAge = int(s.persistentTTL.Seconds())
	}
	http.SetCookie(w, s.cookie(id, maxAge))
	return id, nil
}

// Get loads the session named by the request cookie and slides its expiry.
// A missing cookie or an expired session yields nil without error.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, nil
	}

	key := keyPrefix + c.Value
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttlFor(&data)).Err(); err != nil {
		return nil, fmt.Errorf("session touch: %w", err)
	}
	return &data, nil
}

// Update rewrites the payload under the current ID.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return ErrNoSession
	}
	if err := s.save(ctx, c.Value, data); err != nil {
		return fmt.Errorf("session update: %w", err)
	}
	return nil
}

// Rotate moves the session to a new ID, for privilege changes such as a
// completed second factor. The old ID stops working immediately.
func (s *Store) Rotate(ctx context.Context, w http.ResponseWriter, r *http.Request, data *Data) (string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", ErrNoSession
	}
	id, err := s.Create(ctx, w, data)
	if err != nil {
		return "", err
	}
	if err := s.client.Del(ctx, keyPrefix+c.Value).Err(); err != nil {
		return "", fmt.Errorf("session rotate: %w", err)
	}
	return id, nil
}

// Destroy removes the session from Valkey and clears the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+c.Value).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	http.SetCookie(w, s.cookie("", -1))
	return nil
}

func newID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
