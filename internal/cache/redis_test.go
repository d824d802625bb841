package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festiva/festiva/internal/config"
	"github.com/festiva/festiva/internal/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expires := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	paymentID := "bill_1"
	expected := models.Subscription{
		ID:        "sub-1",
		UserID:    "user-1",
		Plan:      models.PlanFamily,
		Status:    models.StatusActive,
		PaymentID: &paymentID,
		ExpiresAt: &expires,
	}
	key := models.CurrentSubscriptionCacheKey("user-1")
	stored, err := cache.SetIfVersion(ctx, key, 0, expected, time.Minute)
	require.NoError(t, err)
	require.True(t, stored)

	var actual models.Subscription
	found, err := cache.Get(ctx, key, &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected.Plan, actual.Plan)
	assert.Equal(t, *expected.PaymentID, *actual.PaymentID)
	assert.True(t, expires.Equal(*actual.ExpiresAt))
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out models.Subscription
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiration(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	_, err := cache.SetIfVersion(ctx, "key", 0, "value", time.Minute)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	var out string
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	_, err := cache.SetIfVersion(ctx, "key", 0, "value", time.Minute)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "key"))
	require.NoError(t, cache.Invalidate(ctx, "key"), "removing a missing key is not an error")

	var out string
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)

	version, err := cache.Version(ctx, "key")
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)
}

func TestSetIfVersion_SkipsWriteAfterInvalidate(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()
	key := models.CurrentSubscriptionCacheKey("user-1")

	// чтение начато до активации
	version, err := cache.Version(ctx, key)
	require.NoError(t, err)
	assert.EqualValues(t, 0, version)

	// активация сбрасывает кеш, пока чтение ещё идёт
	require.NoError(t, cache.Invalidate(ctx, key))

	stored, err := cache.SetIfVersion(ctx, key, version, "free", time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists(key))

	version, err = cache.Version(ctx, key)
	require.NoError(t, err)
	stored, err = cache.SetIfVersion(ctx, key, version, "premium", time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	var out string
	found, err := cache.Get(ctx, key, &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "premium", out)
	assert.True(t, mr.TTL(versionKey(key)) > 0)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, mr := setupTestCache(t)

	require.NoError(t, mr.Set("bad", "not-json"))

	var out models.Subscription
	found, err := cache.Get(context.Background(), "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:1",
		DialTimeout:  200 * time.Millisecond,
	}

	cache, err := InitServer(context.Background(), cfg)
	assert.Nil(t, cache)
	assert.Error(t, err)
}
