package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/utilitybill/internal/config"
	"go.uber.org/zap"
)

// BulkLimiter throttles the expensive endpoints per client. A nil
// *BulkLimiter allows everything.
type BulkLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

// NewBulkLimiter returns nil when redis or the rate is not configured.
func NewBulkLimiter(client *redis.Client, cfg config.Config, log *zap.Logger) *BulkLimiter {
	if client == nil || cfg.RateLimit.BulkRate <= 0 {
		return nil
	}
	burst := cfg.RateLimit.BulkBurst
	if burst <= 0 {
		burst = 1
	}
	return &BulkLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.BulkRate,
		burst:  burst,
		log:    log.Named("ratelimit"),
	}
}

// Allow takes a token for key. Redis failures allow the request so an
// outage of the limiter does not block billing.
func (l *BulkLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	if l == nil {
		return &RateLimitResult{Allowed: true}, nil
	}
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
		return &RateLimitResult{Allowed: true, Limit: l.burst}, nil
	}
	return res, nil
}
