// Package pricecache provides a small in-memory TTL cache for token
// price histories so repeated runs against the same anchor do not
// hammer the CLOB API.
package pricecache

import (
	"fmt"
	"sync"
	"time"

	"github.com/liamashdown/polyquant/internal/metrics"
	"github.com/liamashdown/polyquant/internal/series"
)

type entry struct {
	data    series.Series
	expires time.Time
}

// Cache is a TTL cache keyed by token ID and window length
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

// New creates a cache with the given entry lifetime
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// Get returns the cached series for (tokenID, days) if present and
// fresh
func (c *Cache) Get(tokenID string, days int) (series.Series, bool) {
	c.mu.RLock()
	e, ok := c.entries[key(tokenID, days)]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expires) {
		metrics.PriceCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.PriceCacheLookups.WithLabelValues("hit").Inc()
	return e.data, true
}

// Set stores a series for (tokenID, days)
func (c *Cache) Set(tokenID string, days int, data series.Series) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key(tokenID, days)] = entry{
		data:    data,
		expires: time.Now().Add(c.ttl),
	}
}

// Purge drops expired entries. Callers run this periodically; the
// cache never evicts on its own.
func (c *Cache) Purge() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of entries, expired or not
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func key(tokenID string, days int) string {
	return fmt.Sprintf("%s:%d", tokenID, days)
}
