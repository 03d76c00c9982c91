package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/catalog"
	"github.com/dropship/backend/internal/infrastructure/config"
)

// TTLCache is the byte cache produced by the factory
type TTLCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var (
	_ TTLCache = (*InMemoryTTLCache)(nil)
	_ TTLCache = (*RedisTTLCache)(nil)
)

// Factory creates snapshot stores and catalog caches based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *Factory) redisClientConfig() RedisConfig {
	return RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}
}

// CreateSnapshotStore creates a Redis snapshot store when Redis is enabled and reachable,
// otherwise an in-memory one if fallback is allowed
func (f *Factory) CreateSnapshotStore() (catalog.SnapshotStore, error) {
	if !f.redisConfig.Enabled {
		return NewInMemorySnapshotStore(), nil
	}

	client, err := NewRedisClient(f.redisClientConfig())
	if err == nil {
		f.logger.Info("using Redis snapshot store", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisSnapshotStoreWithClient(client, DefaultSnapshotKeyPrefix), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for snapshots but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory snapshot store. "+
		"Dataset diffs will restart from empty after a process restart.",
		zap.Error(err),
	)
	return NewInMemorySnapshotStore(), nil
}

// CreateCatalogCache creates a Redis catalog cache when Redis is enabled and reachable,
// otherwise an in-memory one if fallback is allowed
func (f *Factory) CreateCatalogCache() (TTLCache, error) {
	if !f.redisConfig.Enabled {
		return NewInMemoryTTLCache(), nil
	}

	client, err := NewRedisClient(f.redisClientConfig())
	if err == nil {
		f.logger.Info("using Redis catalog cache", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisTTLCacheWithClient(client, DefaultCatalogKeyPrefix), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for catalog cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory catalog cache", zap.Error(err))
	return NewInMemoryTTLCache(), nil
}
