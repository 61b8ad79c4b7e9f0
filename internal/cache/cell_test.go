package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestPeekFreshMiss(t *testing.T) {
	c := NewCell[float64]()
	_, ok := c.PeekFresh("price", 30*time.Second)
	assert.False(t, ok)
	_, ok = c.PeekAny("price")
	assert.False(t, ok)
}

func TestPutThenPeekFresh(t *testing.T) {
	clk := newClock()
	c := NewCell[float64](WithClock(clk.Now))

	put := c.Put("price", 3.42)
	e, ok := c.PeekFresh("price", 30*time.Second)
	require.True(t, ok)
	assert.Equal(t, 3.42, e.Value)
	assert.Equal(t, put.FetchedAt, e.FetchedAt)
	assert.Equal(t, "price", e.Key)
}

func TestPeekFreshExpiresAtTTL(t *testing.T) {
	clk := newClock()
	c := NewCell[float64](WithClock(clk.Now))
	c.Put("price", 1)

	clk.Advance(30*time.Second - time.Millisecond)
	_, ok := c.PeekFresh("price", 30*time.Second)
	assert.True(t, ok, "entry younger than ttl is fresh")

	clk.Advance(time.Millisecond)
	_, ok = c.PeekFresh("price", 30*time.Second)
	assert.False(t, ok, "entry exactly ttl old is not fresh")

	e, ok := c.PeekAny("price")
	require.True(t, ok, "expired entry is still visible to PeekAny")
	assert.Equal(t, 1.0, e.Value)
}

func TestPutOverwrites(t *testing.T) {
	clk := newClock()
	c := NewCell[string](WithClock(clk.Now))
	c.Put("k", "a")
	clk.Advance(time.Second)
	c.Put("k", "b")

	e, ok := c.PeekAny("k")
	require.True(t, ok)
	assert.Equal(t, "b", e.Value)
	assert.Equal(t, 1, c.Len())
}

func TestPutMonotonicWithFrozenClock(t *testing.T) {
	clk := newClock()
	c := NewCell[int](WithClock(clk.Now))

	first := c.Put("k", 1)
	second := c.Put("k", 2)
	third := c.Put("k", 3)

	assert.True(t, second.FetchedAt.After(first.FetchedAt))
	assert.True(t, third.FetchedAt.After(second.FetchedAt))
}

func TestPutMonotonicWhenClockGoesBack(t *testing.T) {
	clk := newClock()
	c := NewCell[int](WithClock(clk.Now))

	first := c.Put("k", 1)
	clk.Advance(-time.Minute)
	second := c.Put("k", 2)
	assert.Equal(t, first.FetchedAt.Add(time.Millisecond), second.FetchedAt)
}

func TestPutMonotonicInMilliseconds(t *testing.T) {
	clk := newClock()
	c := NewCell[int](WithClock(clk.Now))

	first := c.Put("k", 1)
	clk.Advance(300 * time.Microsecond)
	second := c.Put("k", 2)
	clk.Advance(300 * time.Microsecond)
	third := c.Put("k", 3)

	assert.Greater(t, second.FetchedAt.UnixMilli(), first.FetchedAt.UnixMilli())
	assert.Greater(t, third.FetchedAt.UnixMilli(), second.FetchedAt.UnixMilli())
}

func TestPutKeepsClockWhenMillisecondAdvanced(t *testing.T) {
	clk := newClock()
	c := NewCell[int](WithClock(clk.Now))

	c.Put("k", 1)
	clk.Advance(5 * time.Millisecond)
	second := c.Put("k", 2)
	assert.Equal(t, clk.Now(), second.FetchedAt)
}

func TestKeysAreIndependent(t *testing.T) {
	c := NewCell[int]()
	c.Put("history_1", 1)
	c.Put("history_7", 7)

	a, _ := c.PeekAny("history_1")
	b, _ := c.PeekAny("history_7")
	assert.Equal(t, 1, a.Value)
	assert.Equal(t, 7, b.Value)
}

func TestConcurrentPut(t *testing.T) {
	c := NewCell[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Put("k", i)
			c.PeekAny("k")
		}(i)
	}
	wg.Wait()

	_, ok := c.PeekAny("k")
	assert.True(t, ok)
}
