package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist or has expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Store is the key/value port the resilience layer consumes. Implementations
// must support TTLs and glob-style pattern scanning with pagination.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// Scan returns one page of keys matching the glob pattern, plus the cursor
	// for the next page. A returned cursor of 0 means the scan is complete.
	Scan(ctx context.Context, pattern string, cursor uint64, count int64) ([]string, uint64, error)

	// DeletePattern removes every key matching the pattern, walking all scan
	// pages before returning. It reports how many keys were deleted.
	DeletePattern(ctx context.Context, pattern string) (int, error)
}
