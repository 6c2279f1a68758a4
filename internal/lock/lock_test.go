package lock

import (
	"context"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/utilitybill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLockerAlwaysGrants(t *testing.T) {
	var l *Locker
	assert.Nil(t, NewLocker(nil, config.Config{}))

	release, err := l.Acquire(context.Background(), "bill:1")
	require.NoError(t, err)
	release(context.Background())
}

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{Redis: config.RedisConfig{Addr: addr, LockTTL: 5 * time.Second}}
	l := NewLocker(client, cfg)
	ctx := context.Background()

	key := "test:" + time.Now().Format(time.RFC3339Nano)

	release, err := l.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrBusy)

	release(ctx)
	again, err := l.Acquire(ctx, key)
	require.NoError(t, err)
	again(ctx)
}
