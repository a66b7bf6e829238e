package ratelimit

import (
	"context"
	"time"
)

// Store holds window counters. Incr must be atomic: concurrent callers for
// the same key each observe a distinct post-increment value.
type Store interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
