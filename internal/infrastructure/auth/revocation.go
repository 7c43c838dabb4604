package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RevocationList remembers logged-out token ids until they would have expired
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevocationList shares revocations across instances
type RedisRevocationList struct {
	client    redis.UniversalClient
	keyPrefix string
	breaker   *gobreaker.CircuitBreaker
}

// NewRedisRevocationList uses an existing client
func NewRedisRevocationList(client redis.UniversalClient) *RedisRevocationList {
	return &RedisRevocationList{client: client, keyPrefix: "ledger:revoked:"}
}

// WithBreaker routes every Redis call through cb
func (r *RedisRevocationList) WithBreaker(cb *gobreaker.CircuitBreaker) *RedisRevocationList {
	r.breaker = cb
	return r
}

func (r *RedisRevocationList) key(jti string) string {
	return r.keyPrefix + jti
}

// Revoke stores the jti with the remaining lifetime of its token
func (r *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	_, err := cache.Guard(r.breaker, func() (string, error) {
		return r.client.Set(ctx, r.key(jti), 1, ttl).Result()
	})
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks whether the jti was revoked
func (r *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := cache.Guard(r.breaker, func() (int64, error) {
		return r.client.Exists(ctx, r.key(jti)).Result()
	})
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}

// MemoryRevocationList is a single-instance RevocationList
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList creates an empty list
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke records the jti until now+ttl
func (m *MemoryRevocationList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[jti] = m.now().Add(ttl)
	return nil
}

// IsRevoked checks the jti and drops it once expired
func (m *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.entries[jti]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.entries, jti)
		return false, nil
	}
	return true, nil
}

var (
	_ RevocationList = (*RedisRevocationList)(nil)
	_ RevocationList = (*MemoryRevocationList)(nil)
)
