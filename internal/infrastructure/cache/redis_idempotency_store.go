package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pricesync/backend/internal/domain/shared"
	"github.com/pricesync/backend/internal/infrastructure/config"
)

// DeliveryKeyPrefix prefixes every remembered delivery ID
const DeliveryKeyPrefix = "pricesync:delivery:"

// RedisIdempotencyStore remembers webhook deliveries in Redis so that
// every instance behind the load balancer shares one de-duplication window
type RedisIdempotencyStore struct {
	client    redis.Cmdable
	closer    func() error
	keyPrefix string
}

// NewRedisClient opens a client for cfg and checks it with PING
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewRedisIdempotencyStore creates a store with an existing Redis client.
// The client is closed by Close only when it implements io.Closer.
func NewRedisIdempotencyStore(client redis.Cmdable, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DeliveryKeyPrefix
	}
	s := &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix, closer: func() error { return nil }}
	if c, ok := client.(interface{ Close() error }); ok {
		s.closer = c.Close
	}
	return s
}

// MarkProcessed records deliveryID with SETNX.
// It returns false when the delivery was already recorded inside its TTL.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+deliveryID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark delivery as processed: %w", err)
	}
	return ok, nil
}

// IsProcessed checks if a delivery has already been recorded
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+deliveryID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check delivery: %w", err)
	}
	return n > 0, nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.closer()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)

func (s *RedisIdempotencyStore) withoutClose() *RedisIdempotencyStore {
	s.closer = func() error { return nil }
	return s
}
