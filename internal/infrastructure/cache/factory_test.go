package cache

import (
	"testing"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStoreFactory_CreateStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(config.EventConfig{IdempotencyBackend: BackendMemory}).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis with client", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.EventConfig{IdempotencyBackend: BackendRedis}, WithRedisClient(newStubRedis()))
		store, err := f.CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &RedisIdempotencyStore{}, store)
	})

	t.Run("redis without client falls back", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(config.EventConfig{IdempotencyBackend: BackendRedis}).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(config.EventConfig{IdempotencyBackend: "memcached"}).CreateStore()
		assert.Error(t, err)
	})
}

func TestIdempotencyConfig(t *testing.T) {
	cfg := IdempotencyConfig(config.EventConfig{IdempotencyEnabled: true, IdempotencyTTL: time.Hour})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, time.Hour, cfg.TTL)

	cfg = IdempotencyConfig(config.EventConfig{})
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.TTL)
}
