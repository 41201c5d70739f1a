package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

type ululeLimiter struct {
	inner *limiter.Limiter
}

func (l ululeLimiter) Allow(ctx context.Context, key string) (Result, error) {
	lctx, err := l.inner.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed:   !lctx.Reached,
		Limit:     lctx.Limit,
		Remaining: lctx.Remaining,
		Reset:     time.Unix(lctx.Reset, 0),
	}, nil
}

// NewRedisLimiter builds a Redis backed limiter allowing max requests per
// window.
func NewRedisLimiter(rdb *redis.Client, window time.Duration, max int) (Limiter, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "ratelimit",
	})
	if err != nil {
		return nil, err
	}
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	return ululeLimiter{inner: limiter.New(store, rate)}, nil
}

// NewMemoryLimiter builds an in-process limiter, suitable for tests and
// single-instance deployments.
func NewMemoryLimiter(window time.Duration, max int) Limiter {
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	return ululeLimiter{inner: limiter.New(memory.NewStore(), rate)}
}
