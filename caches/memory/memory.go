// Package memory provides an in-process cache backend, used by tests
// and cache-disabled runs that still want within-run deduplication.
package memory

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/raglens/raglens/pkg/cache"
)

// Cache implements cache.Cache in memory.
type Cache struct {
	store *gocache.Cache

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
}

// New creates an in-memory cache. defaultTTL of 0 means entries never
// expire for the life of the process.
func New(defaultTTL time.Duration) *Cache {
	expiration := defaultTTL
	if expiration <= 0 {
		expiration = gocache.NoExpiration
	}
	cleanup := 10 * time.Minute
	return &Cache{store: gocache.New(expiration, cleanup)}
}

// Get retrieves a value. Returns nil, nil on miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, found := c.store.Get(key); found {
		if data, ok := v.([]byte); ok {
			c.hits.Add(1)
			return data, nil
		}
	}
	c.misses.Add(1)
	return nil, nil
}

// Set stores a value with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	// Copy so callers reusing the slice cannot mutate the entry.
	buf := make([]byte, len(value))
	copy(buf, value)
	c.store.Set(key, buf, ttl)
	c.sets.Add(1)
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.store.Delete(key)
	c.deletes.Add(1)
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.store.Flush()
	return nil
}

// Close is a no-op for the memory cache.
func (c *Cache) Close() error {
	return nil
}

// Stats returns cache statistics.
func (c *Cache) Stats() cache.Stats {
	return cache.Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
	}
}
