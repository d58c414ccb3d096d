// Package ratelimit implements a fixed-window, one-call-per-window limiter.
package ratelimit

import (
	"context"
	"time"
)

// Limiter admits the first call per key in each window
type Limiter interface {
	// Allow reports whether the call may proceed. A denied call leaves no trace.
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}
