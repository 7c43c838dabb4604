package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Backend names accepted in event.idempotency_backend
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// NewRedisClient builds a client from config and pings it
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// IdempotencyStoreFactory picks the idempotency backend from config
type IdempotencyStoreFactory struct {
	cfg     config.EventConfig
	client  redis.UniversalClient
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// IdempotencyStoreFactoryOption configures the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithRedisClient supplies the client used by the redis backend
func WithRedisClient(client redis.UniversalClient) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.client = client
	}
}

// WithBreaker guards the redis backend with cb
func WithBreaker(cb *gobreaker.CircuitBreaker) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.breaker = cb
	}
}

// NewIdempotencyStoreFactory creates a factory
func NewIdempotencyStoreFactory(cfg config.EventConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the configured store. The redis backend without a
// client falls back to memory with a warning; an unknown backend is an error.
func (f *IdempotencyStoreFactory) CreateStore() (shared.IdempotencyStore, error) {
	switch f.cfg.IdempotencyBackend {
	case BackendRedis:
		if f.client == nil {
			f.logger.Warn("redis idempotency backend requested without a client, using memory; duplicate handling is per instance")
			return NewInMemoryIdempotencyStore(), nil
		}
		f.logger.Info("using redis idempotency store")
		return NewRedisIdempotencyStore(f.client, "").WithBreaker(f.breaker), nil
	case BackendMemory, "":
		f.logger.Info("using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", f.cfg.IdempotencyBackend)
	}
}

// IdempotencyConfig maps the event config onto the handler setting
func IdempotencyConfig(cfg config.EventConfig) shared.IdempotencyConfig {
	out := shared.DefaultIdempotencyConfig()
	out.Enabled = cfg.IdempotencyEnabled
	if cfg.IdempotencyTTL > 0 {
		out.TTL = cfg.IdempotencyTTL
	}
	return out
}
