package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pricesync/backend/internal/infrastructure/config"
)

func TestRedisIdempotencyStore_MarkProcessed(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := NewRedisIdempotencyStore(rdb, "")

	isNew, err := store.MarkProcessed(ctx, "delivery-1", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, 24*time.Hour, rdb.ttls[DeliveryKeyPrefix+"delivery-1"])

	isNew, err = store.MarkProcessed(ctx, "delivery-1", 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)

	processed, err := store.IsProcessed(ctx, "delivery-1")
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = store.IsProcessed(ctx, "delivery-2")
	require.NoError(t, err)
	assert.False(t, processed)

	assert.NoError(t, store.Close())
}

func TestRedisIdempotencyStore_Errors(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	rdb.failAll = errors.New("READONLY")
	store := NewRedisIdempotencyStore(rdb, "custom:")

	_, err := store.MarkProcessed(ctx, "d", time.Minute)
	assert.ErrorContains(t, err, "READONLY")

	_, err = store.IsProcessed(ctx, "d")
	assert.ErrorContains(t, err, "READONLY")
}

func TestIdempotencyStoreFactory_FallsBackWhenRedisDisabled(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	factory := NewIdempotencyStoreFactory(config.RedisConfig{Enabled: false}, WithLogger(zap.New(core)))

	store, err := factory.CreateStore(context.Background())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	assert.Equal(t, 1, logs.Len())
}

func TestIdempotencyStoreFactory_FallbackDisallowed(t *testing.T) {
	factory := NewIdempotencyStoreFactory(config.RedisConfig{Enabled: false}, WithInMemoryFallback(false))

	store, err := factory.CreateStore(context.Background())
	assert.Nil(t, store)
	assert.ErrorContains(t, err, "unavailable")
}

func TestIdempotencyStoreFactory_UnreachableRedis(t *testing.T) {
	factory := NewIdempotencyStoreFactory(
		config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1},
		WithInMemoryFallback(false),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := factory.CreateStore(ctx)
	assert.ErrorContains(t, err, "failed to connect to Redis at 127.0.0.1:1")
}
