package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codeflat/pkg/cache"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func entry(content string) cache.Entry {
	return cache.Entry{Content: content, ModTime: epoch, Size: int64(len(content))}
}

func TestContentCache_HitAndMiss(t *testing.T) {
	t.Parallel()

	c := cache.NewContentCache(4, 1024)

	_, ok := c.Get("/a.sol", epoch, 3)
	assert.False(t, ok)

	c.Put("/a.sol", entry("abc"))

	content, ok := c.Get("/a.sol", epoch, 3)
	require.True(t, ok)
	assert.Equal(t, "abc", content)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate(), 0.0001)
}

func TestContentCache_StaleRevisionIsMiss(t *testing.T) {
	t.Parallel()

	c := cache.NewContentCache(4, 1024)
	c.Put("/a.sol", entry("abc"))

	_, ok := c.Get("/a.sol", epoch.Add(time.Second), 3)
	assert.False(t, ok)

	_, ok = c.Get("/a.sol", epoch, 3)
	assert.False(t, ok, "stale entry must be dropped")
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestContentCache_EvictsByCount(t *testing.T) {
	t.Parallel()

	c := cache.NewContentCache(2, 1024)
	c.Put("/a", entry("a"))
	c.Put("/b", entry("b"))
	c.Put("/c", entry("c"))

	_, ok := c.Get("/a", epoch, 1)
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(2), stats.CurrentSize)
}

func TestContentCache_EvictsBySize(t *testing.T) {
	t.Parallel()

	c := cache.NewContentCache(10, 10)
	c.Put("/a", entry("aaaa"))
	c.Put("/b", entry("bbbb"))
	c.Put("/c", entry("cccc"))

	stats := c.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.LessOrEqual(t, stats.CurrentSize, int64(10))

	_, ok := c.Get("/c", epoch, 4)
	assert.True(t, ok)
}

func TestContentCache_SkipsOversized(t *testing.T) {
	t.Parallel()

	c := cache.NewContentCache(10, 4)
	c.Put("/big", entry("too large"))

	assert.Equal(t, 0, c.Stats().Entries)
}

func TestContentCache_ReplaceKeepsSizeAccurate(t *testing.T) {
	t.Parallel()

	c := cache.NewContentCache(10, 100)
	c.Put("/a", entry("aaaa"))
	c.Put("/a", entry("aa"))

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(2), stats.CurrentSize)
}

func TestContentCache_Clear(t *testing.T) {
	t.Parallel()

	c := cache.NewContentCache(0, 0)
	c.Put("/a", entry("a"))
	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, int64(0), stats.CurrentSize)
	assert.Equal(t, int64(cache.DefaultMaxBytes), stats.MaxSize)
}

func TestContentCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.NewContentCache(8, 1024)

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			path := string(rune('a' + i%4))
			c.Put(path, entry(path))
			c.Get(path, epoch, 1)
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Entries, 8)
}
