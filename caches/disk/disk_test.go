package disk

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	return c
}

func TestDiskCacheSetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	got, err := c.Get(ctx, "embed:abc")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, "embed:abc", []byte("payload"), 0))

	got, err = c.Get(ctx, "embed:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestDiskCacheSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c1, err := New(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, c1.Set(ctx, "embed:abc", []byte("payload"), 0))
	require.NoError(t, c1.Close())

	// A fresh process must see entries written before a crash/restart.
	c2, err := New(Config{Dir: dir})
	require.NoError(t, err)
	got, err := c2.Get(ctx, "embed:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestDiskCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))

	// Backdate the entry on disk rather than sleeping.
	aged, err := json.Marshal(&entry{
		StoredAt: time.Now().Add(-2 * time.Hour).Unix(),
		TTLSec:   int64(time.Hour / time.Second),
		Value:    []byte("v"),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.path("k"), aged, 0o644))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	// The expired entry file is removed on read.
	_, err = os.Stat(c.path("k"))
	assert.True(t, os.IsNotExist(err))
}

func TestDiskCacheCorruptEntryIsMiss(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, os.WriteFile(c.path("k"), []byte("{torn wri"), 0o644))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDiskCacheNoTempFilesLeftBehind(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, c.Set(ctx, "k", []byte("value"), 0))
	}

	entries, err := os.ReadDir(c.dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestDiskCacheDeleteAndClear(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, c.Delete(ctx, "a"))
	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Clear(ctx))
	got, err = c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, got)

	entries, err := os.ReadDir(c.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskCacheRequiresDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestDiskCacheKeyToFileName(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	// Keys with separators must map to flat file names.
	key := "prefix:embed:00ff/abc"
	require.NoError(t, c.Set(ctx, key, []byte("v"), 0))
	assert.Equal(t, filepath.Base(c.path(key)), "prefix_embed_00ff_abc.json")
}
