package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dropship/backend/internal/domain/catalog"
)

// DefaultSnapshotKeyPrefix namespaces dataset snapshots in Redis
const DefaultSnapshotKeyPrefix = "dropship:snapshot:"

// RedisSnapshotStore implements catalog.SnapshotStore using Redis
// This is suitable for distributed deployments where multiple scheduler
// instances need to diff against the same previous snapshot
type RedisSnapshotStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient creates a Redis client and verifies the connection
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisSnapshotStoreWithClient creates a store with an existing Redis client
func NewRedisSnapshotStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisSnapshotStore {
	if keyPrefix == "" {
		keyPrefix = DefaultSnapshotKeyPrefix
	}
	return &RedisSnapshotStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Load returns the stored products of a dataset
func (s *RedisSnapshotStore) Load(ctx context.Context, datasetID string) ([]catalog.UnifiedProduct, bool, error) {
	data, err := s.client.Get(ctx, s.key(datasetID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load snapshot %s: %w", datasetID, err)
	}

	var products []catalog.UnifiedProduct
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot %s: %w", datasetID, err)
	}
	return products, true, nil
}

// Save replaces the stored products of a dataset. Snapshots do not expire.
func (s *RedisSnapshotStore) Save(ctx context.Context, datasetID string, products []catalog.UnifiedProduct) error {
	if products == nil {
		products = make([]catalog.UnifiedProduct, 0)
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", datasetID, err)
	}
	if err := s.client.Set(ctx, s.key(datasetID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", datasetID, err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}

func (s *RedisSnapshotStore) key(datasetID string) string {
	return s.keyPrefix + datasetID
}

// Ensure RedisSnapshotStore implements catalog.SnapshotStore
var _ catalog.SnapshotStore = (*RedisSnapshotStore)(nil)
