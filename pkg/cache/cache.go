// Package cache provides the public caching interface shared by the
// benchmark runner and the recall evaluator. Entries are
// content-addressed: a key is a deterministic hash of the operation
// name and its ordered inputs, so identical inputs always resolve to
// the same entry and a hit never triggers recomputation.
package cache

import (
	"context"
	"time"
)

// Type represents the type of cache backend.
type Type string

const (
	TypeDisk   Type = "disk"   // One file per entry under a cache directory
	TypeRedis  Type = "redis"  // Shared Redis cache
	TypeMemory Type = "memory" // In-process cache, mostly for tests
)

// Cache defines the interface for all cache implementations.
// Implementations must be safe for concurrent use and must never
// expose a partially written entry as a valid hit.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the given TTL.
	// If TTL is 0, the default TTL is used. Writes are idempotent:
	// overwriting an existing identical entry is harmless.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats holds cache statistics for run summaries.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`
	Errors  int64 `json:"errors"`
}

// GetOrCompute returns the cached value for key, or runs compute and
// stores its result. The value is written only after compute succeeds,
// so a crash mid-computation never leaves an entry that would be
// misread as a hit. The second return value reports whether the value
// came from the cache.
func GetOrCompute(ctx context.Context, c Cache, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if c != nil {
		if data, err := c.Get(ctx, key); err == nil && data != nil {
			return data, true, nil
		}
	}

	data, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	if c != nil {
		// Best effort: a failed write costs a recomputation next run,
		// never a wrong answer.
		_ = c.Set(ctx, key, data, ttl)
	}
	return data, false, nil
}
