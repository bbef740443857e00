// Package cache provides an LRU cache with TTL support, used for compiled translations.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Stats represents cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	MaxSize   int
	Evictions int64
	HitRate   float64
}

// LRU is a size-bounded cache that evicts the least recently used entry.
// Entries older than the TTL are treated as missing.
type LRU[V any] struct {
	lru     *expirable.LRU[string, V]
	maxSize int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewLRU creates a cache holding at most maxSize entries. A zero ttl keeps
// entries until they are evicted.
func NewLRU[V any](maxSize int, ttl time.Duration) *LRU[V] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRU[V]{
		lru:     expirable.NewLRU[string, V](maxSize, nil, ttl),
		maxSize: maxSize,
	}
}

// Get retrieves a value from the cache.
func (c *LRU[V]) Get(key string) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores a value, evicting the least recently used entry when full.
func (c *LRU[V]) Set(key string, value V) {
	if c.lru.Add(key, value) {
		c.evictions.Add(1)
	}
}

// Invalidate removes a specific key from the cache.
func (c *LRU[V]) Invalidate(key string) {
	c.lru.Remove(key)
}

// InvalidatePrefix removes every key starting with prefix, e.g. one entity's entries.
func (c *LRU[V]) InvalidatePrefix(prefix string) int {
	removed := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) && c.lru.Remove(key) {
			removed++
		}
	}
	return removed
}

// Clear removes all entries and resets the statistics.
func (c *LRU[V]) Clear() {
	c.lru.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// Len returns the number of entries, expired ones included until they are reaped.
func (c *LRU[V]) Len() int {
	return c.lru.Len()
}

// GetStats returns cache statistics.
func (c *LRU[V]) GetStats() Stats {
	stats := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.lru.Len(),
		MaxSize:   c.maxSize,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}

// Key builds a cache key of the form "<scope>:<hash>", hashing parts so long
// expressions produce short keys.
func Key(scope string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return scope + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}
