// Package cache provides the bounded loading caches used for identity lookups.
//
// A LoadingCache wraps an otter cache: entries never expire, the cache is
// bounded by entry count, and concurrent loads of the same key are coalesced
// so the loader runs once per key.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
)

// DefaultMaxSize is the entry bound used when none is configured.
const DefaultMaxSize = 10000

// Loader computes the value of a missing key.
// A returned error is propagated to every waiting caller and nothing is cached.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Name   string
	Hits   uint64
	Misses uint64
	Size   int
}

// String renders the stats for log lines.
func (s Stats) String() string {
	return fmt.Sprintf("%s: %d hits, %d misses, %d entries", s.Name, s.Hits, s.Misses, s.Size)
}

// LoadingCache is a size-bounded cache with single-flight loading.
type LoadingCache[K comparable, V any] struct {
	name   string
	cache  *otter.Cache[K, V]
	loader otter.LoaderFunc[K, V]
}

// New creates a loading cache. maxSize <= 0 falls back to DefaultMaxSize.
func New[K comparable, V any](name string, maxSize int, load Loader[K, V]) (*LoadingCache[K, V], error) {
	if load == nil {
		return nil, errors.New("cache: loader is required")
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	c, err := otter.New(&otter.Options[K, V]{
		MaximumSize:   maxSize,
		StatsRecorder: stats.NewCounter(),
	})
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", name, err)
	}

	return &LoadingCache[K, V]{
		name:   name,
		cache:  c,
		loader: otter.LoaderFunc[K, V](load),
	}, nil
}

// Get returns the cached value for key, loading it on a miss.
func (c *LoadingCache[K, V]) Get(ctx context.Context, key K) (V, error) {
	return c.cache.Get(ctx, key, c.loader)
}

// GetIfPresent returns the cached value without loading.
func (c *LoadingCache[K, V]) GetIfPresent(key K) (V, bool) {
	return c.cache.GetIfPresent(key)
}

// Put stores a value directly.
func (c *LoadingCache[K, V]) Put(key K, value V) {
	c.cache.Set(key, value)
}

// Reset drops every entry.
func (c *LoadingCache[K, V]) Reset() {
	c.cache.InvalidateAll()
}

// Len returns the approximate number of entries.
func (c *LoadingCache[K, V]) Len() int {
	return c.cache.EstimatedSize()
}

// Stats returns hit/miss counters and the current size.
func (c *LoadingCache[K, V]) Stats() Stats {
	s := c.cache.Stats()
	return Stats{
		Name:   c.name,
		Hits:   s.Hits,
		Misses: s.Misses,
		Size:   c.cache.EstimatedSize(),
	}
}
