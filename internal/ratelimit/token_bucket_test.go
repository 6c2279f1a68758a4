package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/utilitybill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResultFor(t *testing.T) {
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	res := resultFor(true, 4, 5, 1, now)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
	assert.Equal(t, 5, res.Limit)
	assert.Zero(t, res.RetryAfter)

	res = resultFor(false, 0, 5, 0.5, now)
	assert.False(t, res.Allowed)
	assert.Equal(t, 2*time.Second, res.RetryAfter)
	assert.Equal(t, now.Add(2*time.Second), res.ResetTime)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 5))
	assert.Equal(t, 10*time.Second, defaultBucketTTL(1, 5))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
}

func TestCastToInt(t *testing.T) {
	assert.Equal(t, int64(3), castToInt(int64(3)))
	assert.Equal(t, int64(3), castToInt(3))
	assert.Equal(t, int64(3), castToInt(3.7))
	assert.Equal(t, int64(12), castToInt("12"))
	assert.Equal(t, int64(0), castToInt(nil))
}

func TestBulkLimiterDisabledWithoutRedis(t *testing.T) {
	limiter := NewBulkLimiter(nil, config.Config{RateLimit: config.RateLimitConfig{BulkRate: 1, BulkBurst: 5}}, zap.NewNop())
	require.Nil(t, limiter)

	res, err := limiter.Allow(context.Background(), "bulk:127.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestTokenBucketRequiresClient(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	require.Error(t, err)
	assert.Nil(t, NewTokenBucket(nil))
}
