package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an untouched cart is kept.
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "cart:"

// Store loads and saves carts by id.
type Store interface {
	Load(ctx context.Context, id string) (Cart, error)
	Save(ctx context.Context, id string, c Cart) error
	Clear(ctx context.Context, id string) error
}

// ValkeyStore keeps each cart as a JSON array under cart:<id>.
type ValkeyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewValkeyStore returns a Valkey-backed cart store.
func NewValkeyStore(client *redis.Client, ttl time.Duration) *ValkeyStore {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &ValkeyStore{client: client, ttl: ttl}
}

// Load returns the cart for id, empty when none is stored.
func (s *ValkeyStore) Load(ctx context.Context, id string) (Cart, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart load: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("cart unmarshal: %w", err)
	}
	return c, nil
}

// Save stores c and refreshes the TTL. An empty cart deletes the key.
func (s *ValkeyStore) Save(ctx context.Context, id string, c Cart) error {
	if len(c) == 0 {
		return s.Clear(ctx, id)
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("cart marshal: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+id, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("cart save: %w", err)
	}
	return nil
}

// Clear deletes the cart.
func (s *ValkeyStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("cart clear: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]Cart
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]Cart)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[id].clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, id string, c Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(c) == 0 {
		delete(m.carts, id)
		return nil
	}
	m.carts[id] = c.clone()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, id)
	return nil
}
