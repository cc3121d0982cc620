// Package cache holds short-lived read caches that are invalidated on write.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Value caches a single value for a fixed TTL.
//
// Writers call Invalidate after every mutation. Readers that miss take a
// ticket with Begin before loading and store the result with Store; a load that
// raced with an invalidation is dropped, so a reader never sees data older
// than the last completed write.
type Value[T any] struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	gen       uint64
	data      T
	valid     bool
	expiresAt time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// Ticket identifies the cache generation a load started in.
type Ticket uint64

// Stats are the hit and miss counters since creation.
type Stats struct {
	Hits   int64
	Misses int64
}

// NewValue returns an empty cache. A ttl of zero or less disables caching.
func NewValue[T any](ttl time.Duration) *Value[T] {
	return &Value[T]{ttl: ttl, now: time.Now}
}

// Get returns the cached value if it is present and fresh.
func (c *Value[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if !c.valid || c.now().After(c.expiresAt) {
		c.valid = false
		c.data = zero
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return c.data, true
}

// Begin returns the ticket to pass to Store once the load completes.
func (c *Value[T]) Begin() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Ticket(c.gen)
}

// Store caches data unless the cache was invalidated after t was issued. It
// reports whether data was kept.
func (c *Value[T]) Store(t Ticket, data T) bool {
	if c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if uint64(t) != c.gen {
		return false
	}
	c.data = data
	c.valid = true
	c.expiresAt = c.now().Add(c.ttl)
	return true
}

// Invalidate drops the cached value and voids outstanding tickets.
func (c *Value[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.gen++
	c.data = zero
	c.valid = false
}

// Stats returns the hit and miss counters.
func (c *Value[T]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
