package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is well above the number of legal request shapes for any
// quantity (365 day counts, 15 currency sets), so entries are never evicted.
const DefaultSize = 1024

// Entry is the last successfully fetched value for one request shape.
type Entry[V any] struct {
	Key       string
	Value     V
	FetchedAt time.Time
}

// Cell holds the last good value per key for a single quantity.
// It is safe for concurrent use; concurrent writers race last-writer-wins.
type Cell[V any] struct {
	entries *lru.Cache[string, Entry[V]]
	now     func() time.Time
	mu      sync.Mutex // serialises Put so FetchedAt stays monotonic per key
}

// Option configures a Cell.
type Option func(*options)

type options struct {
	size int
	now  func() time.Time
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSize overrides DefaultSize.
func WithSize(n int) Option {
	return func(o *options) { o.size = n }
}

// NewCell creates an empty cell.
func NewCell[V any](opts ...Option) *Cell[V] {
	o := options{size: DefaultSize, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	entries, err := lru.New[string, Entry[V]](o.size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &Cell[V]{entries: entries, now: o.now}
}

// PeekFresh returns the entry for key if it is younger than ttl.
func (c *Cell[V]) PeekFresh(key string, ttl time.Duration) (Entry[V], bool) {
	e, ok := c.entries.Peek(key)
	if !ok {
		return Entry[V]{}, false
	}
	if c.now().Sub(e.FetchedAt) >= ttl {
		return Entry[V]{}, false
	}
	return e, true
}

// PeekAny returns the entry for key regardless of age.
func (c *Cell[V]) PeekAny(key string) (Entry[V], bool) {
	return c.entries.Peek(key)
}

// Put stores value under key stamped with the current time. Stamps are
// compared in whole milliseconds, the resolution clients see: if the clock
// has not reached the millisecond after the previous stamp for key, the new
// stamp is bumped to it.
func (c *Cell[V]) Put(key string, value V) Entry[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	at := c.now()
	if prev, ok := c.entries.Peek(key); ok && at.UnixMilli() <= prev.FetchedAt.UnixMilli() {
		at = prev.FetchedAt.Truncate(time.Millisecond).Add(time.Millisecond)
	}
	e := Entry[V]{Key: key, Value: value, FetchedAt: at}
	c.entries.Add(key, e)
	return e
}

// Len reports how many keys are held.
func (c *Cell[V]) Len() int {
	return c.entries.Len()
}
