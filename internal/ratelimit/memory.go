package ratelimit

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLimiter is a per-process limiter for single-instance and local runs
type MemoryLimiter struct {
	cache *cache.Cache
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{cache: cache.New(time.Minute, 5*time.Minute)}
}

// Allow relies on cache.Add failing while an unexpired entry exists
func (l *MemoryLimiter) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	if err := l.cache.Add(key, struct{}{}, window); err != nil {
		return false, nil
	}
	return true, nil
}
