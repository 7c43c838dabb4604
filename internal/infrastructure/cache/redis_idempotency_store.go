package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const defaultIdempotencyKeyPrefix = "ledger:event:"

// RedisIdempotencyStore keeps processed event IDs in Redis so that several
// ledger instances share one view of what was already handled.
type RedisIdempotencyStore struct {
	client    redis.UniversalClient
	keyPrefix string
	breaker   *gobreaker.CircuitBreaker
}

// NewRedisIdempotencyStore wraps an existing client. The client is owned by
// the caller; Close does not close it.
func NewRedisIdempotencyStore(client redis.UniversalClient, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultIdempotencyKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// WithBreaker routes every Redis call through cb
func (s *RedisIdempotencyStore) WithBreaker(cb *gobreaker.CircuitBreaker) *RedisIdempotencyStore {
	s.breaker = cb
	return s
}

// MarkProcessed uses SETNX so the check and the mark are one atomic step
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	ok, err := Guard(s.breaker, func() (bool, error) {
		return s.client.SetNX(ctx, s.key(eventID), "1", ttl).Result()
	})
	if err != nil {
		return false, fmt.Errorf("mark event %s processed: %w", eventID, err)
	}
	return ok, nil
}

// IsProcessed reports whether the event key is still present
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := Guard(s.breaker, func() (int64, error) {
		return s.client.Exists(ctx, s.key(eventID)).Result()
	})
	if err != nil {
		return false, fmt.Errorf("check event %s: %w", eventID, err)
	}
	return n > 0, nil
}

// Close is a no-op; the shared client is closed by whoever created it
func (s *RedisIdempotencyStore) Close() error {
	return nil
}

func (s *RedisIdempotencyStore) key(eventID string) string {
	return s.keyPrefix + eventID
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
