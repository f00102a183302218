// Package cache holds previously computed derived data keyed by cache key, so
// repeated requests for unchanged content skip the worker round-trip
// entirely. Entries are never invalidated explicitly; the cache key encodes
// every input the computation depends on, so stale entries simply stop being
// asked for and age out under LRU pressure.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/reviewdeck/pkg/models"
)

// DefaultCapacity bounds the cache when the caller does not configure one.
const DefaultCapacity = 40

// ResultCache is a bounded least-recently-used cache of derived data.
type ResultCache struct {
	lru *lru.Cache[string, *models.DerivedData]
}

// New creates a ResultCache with the given capacity. Capacity <= 0 falls back
// to DefaultCapacity.
func New(capacity int) (*ResultCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	inner, err := lru.New[string, *models.DerivedData](capacity)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &ResultCache{lru: inner}, nil
}

// Get returns the cached result for key, marking the entry most recently
// used. A miss is not a failure; it returns (nil, false).
func (c *ResultCache) Get(key string) (*models.DerivedData, bool) {
	return c.lru.Get(key)
}

// Set inserts or overwrites the entry for key, evicting the least recently
// used entry when at capacity.
func (c *ResultCache) Set(key string, value *models.DerivedData) {
	c.lru.Add(key, value)
}

// Len returns the current number of cached entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry. Used when the owning client is disposed.
func (c *ResultCache) Purge() {
	c.lru.Purge()
}
