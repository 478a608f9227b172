// Package disk provides a content-addressed, file-per-entry cache.
// It exists to make long, rate-limited, costly runs resumable: a
// re-run after a crash replays finished work from disk instead of
// re-issuing network calls.
package disk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/raglens/raglens/pkg/cache"
)

// entry wraps a stored value with its write time so TTLs survive
// process restarts.
type entry struct {
	StoredAt int64  `json:"stored_at"`
	TTLSec   int64  `json:"ttl_sec"`
	Value    []byte `json:"value"`
}

// Cache implements cache.Cache on the local filesystem.
type Cache struct {
	dir        string
	defaultTTL time.Duration

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	errors  atomic.Int64
}

// Config holds configuration for the disk cache.
type Config struct {
	Dir        string        `yaml:"dir"`
	DefaultTTL time.Duration `yaml:"default_ttl"` // 0 = entries never expire
}

// New creates a disk cache rooted at cfg.Dir, creating it if needed.
func New(cfg Config) (*Cache, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("disk cache: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: cfg.Dir, defaultTTL: cfg.DefaultTTL}, nil
}

// path maps a key to a file name. Keys are prefix:operation:hexhash, so
// replacing separators keeps one flat, readable directory.
func (c *Cache) path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_").Replace(key)
	return filepath.Join(c.dir, name+".json")
}

// Get retrieves a value. Returns nil, nil on miss or expired entry.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			c.misses.Add(1)
			return nil, nil
		}
		c.errors.Add(1)
		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		// A torn or corrupt file is treated as a miss, never as a hit.
		c.misses.Add(1)
		return nil, nil
	}

	if e.TTLSec > 0 && time.Now().Unix() > e.StoredAt+e.TTLSec {
		c.misses.Add(1)
		_ = os.Remove(c.path(key))
		return nil, nil
	}

	c.hits.Add(1)
	return e.Value, nil
}

// Set stores a value. The entry is written to a temp file and renamed
// into place so readers never observe a partial write.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	e := entry{
		StoredAt: time.Now().Unix(),
		TTLSec:   int64(ttl / time.Second),
		Value:    value,
	}
	data, err := json.Marshal(&e)
	if err != nil {
		c.errors.Add(1)
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		c.errors.Add(1)
		return fmt.Errorf("create temp entry: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		c.errors.Add(1)
		return fmt.Errorf("write temp entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		c.errors.Add(1)
		return fmt.Errorf("close temp entry: %w", err)
	}

	if err := os.Rename(tmpName, c.path(key)); err != nil {
		_ = os.Remove(tmpName)
		c.errors.Add(1)
		return fmt.Errorf("publish cache entry: %w", err)
	}

	c.sets.Add(1)
	return nil
}

// Delete removes a key from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !os.IsNotExist(err) {
		c.errors.Add(1)
		return fmt.Errorf("delete cache entry: %w", err)
	}
	c.deletes.Add(1)
	return nil
}

// Clear removes every entry under the cache directory.
func (c *Cache) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, de.Name())); err != nil {
			c.errors.Add(1)
			return fmt.Errorf("clear cache entry %s: %w", de.Name(), err)
		}
	}
	return nil
}

// Close is a no-op for the disk cache.
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
		Errors:  c.errors.Load(),
	}
}
