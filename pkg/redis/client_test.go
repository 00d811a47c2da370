package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniredisClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestSetNXOnlyFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)

	ok, err := client.SetNX(ctx, "sf:lock:cron", "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.SetNX(ctx, "sf:lock:cron", "owner-b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	value, err := client.Get(ctx, "sf:lock:cron")
	require.NoError(t, err)
	require.Equal(t, "owner-a", value)

	mr.FastForward(2 * time.Minute)
	_, err = client.Get(ctx, "sf:lock:cron")
	require.True(t, errors.Is(err, redis.Nil))
}

func TestDelRemovesKey(t *testing.T) {
	ctx := context.Background()
	client, _ := newMiniredisClient(t)

	require.NoError(t, client.Set(ctx, "k", "v", 0))
	require.NoError(t, client.Del(ctx, "k"))
	_, err := client.Get(ctx, "k")
	require.True(t, errors.Is(err, redis.Nil))
}

func TestDeleteIfEqualsChecksOwner(t *testing.T) {
	ctx := context.Background()
	client, _ := newMiniredisClient(t)

	require.NoError(t, client.Set(ctx, "sf:lock:cron-worker", "owner-a", time.Minute))

	deleted, err := client.DeleteIfEquals(ctx, "sf:lock:cron-worker", "owner-b")
	require.NoError(t, err)
	require.False(t, deleted)
	value, err := client.Get(ctx, "sf:lock:cron-worker")
	require.NoError(t, err)
	require.Equal(t, "owner-a", value)

	deleted, err = client.DeleteIfEquals(ctx, "sf:lock:cron-worker", "owner-a")
	require.NoError(t, err)
	require.True(t, deleted)
	_, err = client.Get(ctx, "sf:lock:cron-worker")
	require.True(t, errors.Is(err, redis.Nil))

	deleted, err = client.DeleteIfEquals(ctx, "sf:lock:missing", "owner-a")
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	require.Error(t, client.Ping(context.Background()))
	_, err := client.SetNX(context.Background(), "k", "v", time.Second)
	require.Error(t, err)
	_, err = client.DeleteIfEquals(context.Background(), "k", "v")
	require.Error(t, err)
	require.NoError(t, client.Close())
}

func TestLockKeyNamespacing(t *testing.T) {
	client := &Client{}
	require.Equal(t, "sf:lock:cron-worker", client.LockKey("cron-worker"))
	require.Equal(t, "sf:lock:cron-worker:reminders", client.LockKey(" cron-worker ", "", "reminders"))
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7})
	require.NoError(t, err)
	require.Equal(t, "localhost:6379", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 7, opts.PoolSize)

	_, err = optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)
}
