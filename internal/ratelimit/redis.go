package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps window markers in Redis so every instance shares them
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
}

// NewRedisLimiter creates a limiter whose keys are namespaced by prefix
func NewRedisLimiter(client redis.Cmdable, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix}
}

// Allow sets the marker only if absent; the TTL closes the window
func (l *RedisLimiter) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+key, time.Now().UnixMilli(), window).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	return ok, nil
}
