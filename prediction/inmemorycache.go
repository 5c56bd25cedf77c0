package prediction

import (
	"context"
	"sync"
	"time"
)

// InMemoryResultsCache is a simple in-memory implementation of ResultsCache.
// Thread-safe for concurrent access.
type InMemoryResultsCache struct {
	entries map[int64]cachedResults
	config  CacheConfig
	now     func() time.Time
	mu      sync.RWMutex
}

type cachedResults struct {
	results  *Results
	cachedAt time.Time
}

// NewInMemoryResultsCache creates a new in-memory results cache.
func NewInMemoryResultsCache(config CacheConfig) *InMemoryResultsCache {
	return &InMemoryResultsCache{
		entries: make(map[int64]cachedResults),
		config:  config,
		now:     time.Now,
	}
}

// Get retrieves cached results.
// Returns false if the entry is missing or expired.
func (c *InMemoryResultsCache) Get(_ context.Context, uploadID int64) (*Results, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[uploadID]
	if !ok {
		return nil, false, nil
	}

	if c.config.TTL > 0 && c.now().Sub(entry.cachedAt) > c.config.TTL {
		return nil, false, nil
	}

	// Return copy to prevent external modifications
	return cloneResults(entry.results), true, nil
}

// Set stores results in cache.
func (c *InMemoryResultsCache) Set(_ context.Context, results *Results) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[results.UploadID] = cachedResults{
		results:  cloneResults(results),
		cachedAt: c.now(),
	}
	c.evictExpiredLocked()
	return nil
}

// Invalidate clears one entry.
func (c *InMemoryResultsCache) Invalidate(_ context.Context, uploadID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, uploadID)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *InMemoryResultsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemoryResultsCache) evictExpiredLocked() {
	if c.config.TTL <= 0 {
		return
	}
	now := c.now()
	for id, entry := range c.entries {
		if now.Sub(entry.cachedAt) > c.config.TTL {
			delete(c.entries, id)
		}
	}
}
