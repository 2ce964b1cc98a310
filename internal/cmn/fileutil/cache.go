package fileutil

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// entry holds cached data alongside file metadata for staleness detection.
type entry[T any] struct {
	data    T
	size    int64
	modTime time.Time
}

// Cache is a file content cache backed by an LRU with TTL-based expiration.
// Entries remember the size and modification time of the file they were read
// from so that a file changed by another process is read again.
type Cache[T any] struct {
	name string
	lru  *expirable.LRU[string, entry[T]]
}

// NewCache creates a new cache with the specified capacity and time-to-live duration.
// A capacity of 0 means unlimited size.
func NewCache[T any](name string, capacity int, ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		name: name,
		lru:  expirable.NewLRU[string, entry[T]](capacity, nil, ttl),
	}
}

// Name returns the cache name.
func (c *Cache[T]) Name() string { return c.name }

// Size returns the current number of entries in the cache.
func (c *Cache[T]) Size() int { return c.lru.Len() }

// Store adds or updates an item in the cache with metadata from the file.
func (c *Cache[T]) Store(filePath string, data T, fi os.FileInfo) {
	c.lru.Add(filePath, entry[T]{
		data:    data,
		size:    fi.Size(),
		modTime: fi.ModTime(),
	})
}

// Invalidate removes an item from the cache.
func (c *Cache[T]) Invalidate(filePath string) {
	c.lru.Remove(filePath)
}

// LoadLatest returns the cached item for filePath, calling loader when the
// entry is missing or the file changed. Stat errors are returned wrapped, so
// errors.Is(err, fs.ErrNotExist) works for missing files.
func (c *Cache[T]) LoadLatest(filePath string, loader func() (T, error)) (T, error) {
	var zero T
	fi, err := os.Stat(filePath)
	if err != nil {
		c.lru.Remove(filePath)
		return zero, fmt.Errorf("failed to stat file %s: %w", filePath, err)
	}
	if e, ok := c.lru.Get(filePath); ok && e.size == fi.Size() && e.modTime.Equal(fi.ModTime()) {
		return e.data, nil
	}
	data, err := loader()
	if err != nil {
		return zero, err
	}
	c.Store(filePath, data, fi)
	return data, nil
}
