// Package cache provides a generic bounded TTL cache with FIFO eviction
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	DefaultTTL      = time.Hour
	DefaultCapacity = 500
)

// entry wraps a cached value with its insertion time
type entry[T any] struct {
	key        string
	value      T
	insertedAt time.Time
	elem       *list.Element
}

// Options configures a Cache. Zero values take the defaults
type Options[T any] struct {
	TTL      time.Duration
	Capacity int

	// Now is the clock used for insertion and expiry checks
	Now func() time.Time

	// Copy, when set, is applied on the way in and on the way out so
	// callers never share mutable state with the cache
	Copy func(T) T

	Metrics Metrics
}

// Stats is a point-in-time view of cache counters
type Stats struct {
	Size        int    `json:"size"`
	Capacity    int    `json:"capacity"`
	TTLSeconds  int64  `json:"ttl_seconds"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
}

// Cache is a thread-safe cache with TTL expiry and a capacity bound.
// When full, the oldest inserted entry is evicted; reads do not
// change eviction order
type Cache[T any] struct {
	mu       sync.Mutex
	items    map[string]*entry[T]
	order    *list.List
	ttl      time.Duration
	capacity int
	now      func() time.Time
	copy     func(T) T
	metrics  Metrics

	hits, misses, evictions, expirations uint64
}

// New creates a cache with the given options
func New[T any](opts Options[T]) *Cache[T] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetrics{}
	}
	return &Cache[T]{
		items:    make(map[string]*entry[T]),
		order:    list.New(),
		ttl:      opts.TTL,
		capacity: opts.Capacity,
		now:      opts.Now,
		copy:     opts.Copy,
		metrics:  opts.Metrics,
	}
}

// Get returns (value, true) if key is present and not expired. An
// expired entry is removed as a side effect
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.items[key]
	if !ok {
		c.misses++
		c.metrics.Miss()
		return zero, false
	}

	if c.now().Sub(e.insertedAt) > c.ttl {
		c.remove(e)
		c.expirations++
		c.misses++
		c.metrics.Expire()
		c.metrics.Miss()
		c.metrics.Size(len(c.items))
		return zero, false
	}

	c.hits++
	c.metrics.Hit()
	return c.out(e.value), true
}

// Set stores value under key. Overwriting keeps the key's place in the
// eviction queue but resets its insertion time
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.items[key]; ok {
		e.value = c.in(value)
		e.insertedAt = now
		return
	}

	e := &entry[T]{key: key, value: c.in(value), insertedAt: now}
	e.elem = c.order.PushBack(e)
	c.items[key] = e

	if len(c.items) > c.capacity {
		if oldest := c.order.Front(); oldest != nil {
			c.remove(oldest.Value.(*entry[T]))
			c.evictions++
			c.metrics.Eviction()
		}
	}
	c.metrics.Size(len(c.items))
}

// Delete removes a key from the cache
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.remove(e)
		c.metrics.Size(len(c.items))
	}
}

// Clear removes all items from the cache
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry[T])
	c.order.Init()
	c.metrics.Size(0)
}

// Size returns the number of items (including expired ones not yet swept)
func (c *Cache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns keys from oldest to newest insertion
func (c *Cache[T]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[T]).key)
	}
	return keys
}

// Stats returns the current counters
func (c *Cache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:        len(c.items),
		Capacity:    c.capacity,
		TTLSeconds:  int64(c.ttl / time.Second),
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}

// Sweep removes every expired entry and returns how many were removed
func (c *Cache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry[T])
		if now.Sub(e.insertedAt) > c.ttl {
			c.remove(e)
			c.expirations++
			c.metrics.Expire()
			removed++
		}
		el = next
	}
	if removed > 0 {
		c.metrics.Size(len(c.items))
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is done
func (c *Cache[T]) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = c.ttl
	}
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// remove must be called with mu held
func (c *Cache[T]) remove(e *entry[T]) {
	c.order.Remove(e.elem)
	delete(c.items, e.key)
}

func (c *Cache[T]) in(v T) T {
	if c.copy != nil {
		return c.copy(v)
	}
	return v
}

func (c *Cache[T]) out(v T) T {
	if c.copy != nil {
		return c.copy(v)
	}
	return v
}
