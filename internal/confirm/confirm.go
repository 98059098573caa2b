// Package confirm implements two-step deletes: a request issues a short-lived token bound to one
// row, and the delete only proceeds when that token is presented back.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	rediskeys "github.com/resource-mgmt/console/pkg/redis"
)

// ErrInvalidToken is returned when a token is unknown, expired, or bound to another row.
var ErrInvalidToken = errors.New("confirmation token is invalid or expired")

// Pending is an outstanding delete confirmation.
type Pending struct {
	Token     string    `json:"token"`
	Entity    string    `json:"entity"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store issues and redeems confirmation tokens.
type Store interface {
	Request(ctx context.Context, entity, key string) (*Pending, error)
	// Check reports whether token is live for entity/key without redeeming it.
	Check(ctx context.Context, token, entity, key string) error
	// Consume redeems token for entity/key. A token is single use. A token presented for another
	// row is left in place.
	Consume(ctx context.Context, token, entity, key string) error
	Cancel(ctx context.Context, token string) error
}

func target(entity, key string) string { return entity + "/" + key }

// RedisStore keeps tokens in Redis with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed Store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func tokenKey(token string) string { return rediskeys.Key("confirm", token) }

// Request implements Store.
func (s *RedisStore) Request(ctx context.Context, entity, key string) (*Pending, error) {
	p := &Pending{Token: uuid.New().String(), Entity: entity, Key: key, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.client.Set(ctx, tokenKey(p.Token), target(entity, key), s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store confirmation: %w", err)
	}
	return p, nil
}

// consumeScript deletes the token only when it is bound to the expected row.
var consumeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then return -1 end
if v ~= ARGV[1] then return 0 end
redis.call("DEL", KEYS[1])
return 1
`)

// Check implements Store.
func (s *RedisStore) Check(ctx context.Context, token, entity, key string) error {
	if token == "" {
		return ErrInvalidToken
	}
	got, err := s.client.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("check confirmation: %w", err)
	}
	if got != target(entity, key) {
		return ErrInvalidToken
	}
	return nil
}

// Consume implements Store. The compare and delete run in one script.
func (s *RedisStore) Consume(ctx context.Context, token, entity, key string) error {
	if token == "" {
		return ErrInvalidToken
	}
	n, err := consumeScript.Run(ctx, s.client, []string{tokenKey(token)}, target(entity, key)).Int()
	if err != nil {
		return fmt.Errorf("redeem confirmation: %w", err)
	}
	if n != 1 {
		return ErrInvalidToken
	}
	return nil
}

// Cancel implements Store. Cancelling an unknown token is not an error.
func (s *RedisStore) Cancel(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKey(token)).Err()
}

// MemoryStore is an in-process Store for tests and single-instance runs.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]Pending
	Now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, pending: make(map[string]Pending), Now: time.Now}
}

// Request implements Store.
func (m *MemoryStore) Request(_ context.Context, entity, key string) (*Pending, error) {
	p := Pending{Token: uuid.New().String(), Entity: entity, Key: key, ExpiresAt: m.Now().Add(m.ttl)}
	m.mu.Lock()
	m.pending[p.Token] = p
	m.mu.Unlock()
	return &p, nil
}

// Check implements Store.
func (m *MemoryStore) Check(_ context.Context, token, entity, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveLocked(token, entity, key)
}

// Consume implements Store.
func (m *MemoryStore) Consume(_ context.Context, token, entity, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.liveLocked(token, entity, key); err != nil {
		return err
	}
	delete(m.pending, token)
	return nil
}

func (m *MemoryStore) liveLocked(token, entity, key string) error {
	p, ok := m.pending[token]
	if !ok {
		return ErrInvalidToken
	}
	if !m.Now().Before(p.ExpiresAt) {
		delete(m.pending, token)
		return ErrInvalidToken
	}
	if p.Entity != entity || p.Key != key {
		return ErrInvalidToken
	}
	return nil
}

// Cancel implements Store.
func (m *MemoryStore) Cancel(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.pending, token)
	m.mu.Unlock()
	return nil
}
