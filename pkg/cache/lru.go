// Package cache holds file contents across resolver runs so that unchanged
// files are not read again.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries is the default number of files kept.
const DefaultMaxEntries = 512

// DefaultMaxBytes is the default total content size kept (64 MB).
const DefaultMaxBytes = 64 * 1024 * 1024

// Entry is one cached file. ModTime and Size identify the revision the
// content was read from.
type Entry struct {
	Content string
	ModTime time.Time
	Size    int64
}

// Matches reports whether the entry was read from a file with the given
// modification time and size.
func (e Entry) Matches(modTime time.Time, size int64) bool {
	return e.Size == size && e.ModTime.Equal(modTime)
}

// ContentCache is an LRU cache of file contents bounded both by entry count
// and by total content size. It is safe for concurrent use.
type ContentCache struct {
	mu          sync.Mutex
	entries     *lru.Cache[string, Entry]
	maxBytes    int64
	currentSize int64

	hits   atomic.Int64
	misses atomic.Int64
}

// NewContentCache creates a cache. Non-positive limits fall back to the defaults.
func NewContentCache(maxEntries int, maxBytes int64) *ContentCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	c := &ContentCache{maxBytes: maxBytes}

	// The size only fails for non-positive values, excluded above.
	entries, _ := lru.NewWithEvict(maxEntries, func(_ string, evicted Entry) {
		c.currentSize -= evicted.Size
	})
	c.entries = entries

	return c
}

// Get returns the entry for path if it was read from the same revision.
// A stale entry counts as a miss and is dropped.
func (c *ContentCache) Get(path string, modTime time.Time, size int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(path)
	if !ok {
		c.misses.Add(1)

		return "", false
	}

	if !entry.Matches(modTime, size) {
		c.entries.Remove(path)
		c.misses.Add(1)

		return "", false
	}

	c.hits.Add(1)

	return entry.Content, true
}

// Put stores an entry. Entries larger than the byte limit are not cached.
func (c *ContentCache) Put(path string, entry Entry) {
	if entry.Size > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Remove(path)

	for c.currentSize+entry.Size > c.maxBytes {
		if _, _, ok := c.entries.RemoveOldest(); !ok {
			break
		}
	}

	c.entries.Add(path, entry)
	c.currentSize += entry.Size
}

// Stats returns cache statistics.
func (c *ContentCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     c.entries.Len(),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxBytes,
	}
}

// Stats holds cache performance metrics.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}

	return float64(s.Hits) / float64(total)
}

// Clear removes all entries from the cache.
func (c *ContentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
	c.currentSize = 0
}
