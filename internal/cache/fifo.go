// Package cache holds the bounded in-memory caches used by rendering and
// export. Entries are evicted oldest-inserted first; reads never refresh an
// entry's position.
package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// FIFO is a fixed-capacity, insertion-ordered cache safe for concurrent use.
type FIFO[K comparable, V any] struct {
	name  string
	inner *lru.Cache[K, V]

	// mu serialises writers so a re-put is atomic; readers go straight to
	// inner. quiet is set while entries are dropped on purpose, which the
	// eviction callback must not report.
	mu    sync.Mutex
	quiet bool
}

// New returns a FIFO holding at most capacity entries. name only tags log
// lines.
func New[K comparable, V any](name string, capacity int, log zerolog.Logger) (*FIFO[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache %s: capacity must be positive, got %d", name, capacity)
	}
	c := &FIFO[K, V]{name: name}
	inner, err := lru.NewWithEvict(capacity, func(key K, _ V) {
		// Callbacks run inside Put or Clear, under c.mu.
		if c.quiet {
			return
		}
		log.Debug().Str("cache", name).Interface("key", key).Msg("evicted oldest entry")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache %s: %w", name, err)
	}
	c.inner = inner
	return c, nil
}

// Get returns the value stored under key. It uses Peek so a hit does not
// change eviction order.
func (c *FIFO[K, V]) Get(key K) (V, bool) {
	return c.inner.Peek(key)
}

// Put stores value under key, evicting the oldest entry when full. Putting
// an existing key replaces its value and makes it the newest entry.
func (c *FIFO[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inner.Contains(key) {
		c.quiet = true
		c.inner.Remove(key)
		c.quiet = false
	}
	c.inner.Add(key, value)
}

// Clear drops every entry.
func (c *FIFO[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quiet = true
	c.inner.Purge()
	c.quiet = false
}

// Len reports the number of entries.
func (c *FIFO[K, V]) Len() int { return c.inner.Len() }

// Keys lists keys from oldest to newest.
func (c *FIFO[K, V]) Keys() []K { return c.inner.Keys() }

// Name returns the label given at construction.
func (c *FIFO[K, V]) Name() string { return c.name }
