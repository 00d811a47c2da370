package cron

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redisclient.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return srv, redisclient.NewFromClient(raw)
}

func TestRedisLockIsExclusive(t *testing.T) {
	srv, client := newMiniredisClient(t)
	ctx := context.Background()

	first, err := NewRedisLock(client, "storefront:cron:lock", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(client, "storefront:cron:lock", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Releasing a lock we never held leaves the owner's key alone.
	require.NoError(t, second.Release(ctx))
	assert.True(t, srv.Exists("storefront:cron:lock"))

	require.NoError(t, first.Release(ctx))
	assert.False(t, srv.Exists("storefront:cron:lock"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockExpires(t *testing.T) {
	srv, client := newMiniredisClient(t)
	ctx := context.Background()

	lock, err := NewRedisLock(client, "storefront:cron:ttl", time.Minute)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	srv.FastForward(2 * time.Minute)

	other, err := NewRedisLock(client, "storefront:cron:ttl", time.Minute)
	require.NoError(t, err)
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// The stale holder must not delete the new owner's key.
	require.NoError(t, lock.Release(ctx))
	assert.True(t, srv.Exists("storefront:cron:ttl"))
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "key", time.Minute)
	assert.Error(t, err)

	_, client := newMiniredisClient(t)
	_, err = NewRedisLock(client, "", time.Minute)
	assert.Error(t, err)

	lock, err := NewRedisLock(client, "key", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.ttl)
}
