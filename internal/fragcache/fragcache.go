// Package fragcache provides a content-addressed LRU cache for parsed
// document fragments. Keys are blake3 hashes of the raw fragment bytes, so
// re-importing an unchanged file across builds reuses the parse.
package fragcache

import (
	"container/list"
	"encoding/hex"
	"sync"

	"github.com/zeebo/blake3"
)

// Key is the hex-encoded blake3 digest of a fragment's raw bytes.
type Key string

// KeyOf hashes raw fragment bytes into a cache key.
func KeyOf(data []byte) Key {
	sum := blake3.Sum256(data)
	return Key(hex.EncodeToString(sum[:]))
}

// Stats contains cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	MaxSize   int
}

// Cache is a thread-safe LRU cache keyed by content hash.
type Cache[V any] struct {
	mu        sync.Mutex
	maxSize   int
	entries   map[Key]*list.Element
	evictList *list.List
	stats     Stats
}

type entry[V any] struct {
	key   Key
	value V
}

// New creates a cache holding at most maxSize entries (0 = unlimited).
func New[V any](maxSize int) *Cache[V] {
	if maxSize < 0 {
		maxSize = 0
	}
	return &Cache[V]{
		maxSize:   maxSize,
		entries:   make(map[Key]*list.Element),
		evictList: list.New(),
	}
}

// Get retrieves a value and marks it most recently used.
func (c *Cache[V]) Get(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.evictList.MoveToFront(el)
	c.stats.Hits++
	return el.Value.(*entry[V]).value, true
}

// Put stores a value, evicting the least recently used entry when full.
func (c *Cache[V]) Put(key Key, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.evictList.MoveToFront(el)
		el.Value.(*entry[V]).value = value
		return
	}
	c.entries[key] = c.evictList.PushFront(&entry[V]{key: key, value: value})
	if c.maxSize > 0 && c.evictList.Len() > c.maxSize {
		oldest := c.evictList.Back()
		if oldest != nil {
			c.evictList.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry[V]).key)
			c.stats.Evictions++
		}
	}
}

// Remove drops a single entry.
func (c *Cache[V]) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.evictList.Remove(el)
		delete(c.entries, key)
	}
}

// Clear empties the cache. Statistics are preserved.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]*list.Element)
	c.evictList.Init()
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns a snapshot of cache statistics.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.evictList.Len()
	s.MaxSize = c.maxSize
	return s
}
