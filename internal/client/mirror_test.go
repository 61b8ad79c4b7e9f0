package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

var stamp = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// memStore is an in-memory Store; err, when set, fails every call.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, false, s.err
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = val
	return nil
}

func TestMirrorMemoryHit(t *testing.T) {
	clock := &fakeClock{t: stamp}
	m := NewMirrorCache(nil, quietLogger(), clock.Now)
	ctx := context.Background()

	if _, ok := m.Get(ctx, "price"); ok {
		t.Fatal("empty mirror should miss")
	}
	m.Set(ctx, "price", json.RawMessage(`{"price":3.4}`))
	clock.Advance(30 * time.Second)

	got, ok := m.Get(ctx, "price")
	if !ok || string(got) != `{"price":3.4}` {
		t.Errorf("Get = %s, %v", got, ok)
	}
}

func TestMirrorExpires(t *testing.T) {
	clock := &fakeClock{t: stamp}
	m := NewMirrorCache(newMemStore(), quietLogger(), clock.Now)
	ctx := context.Background()

	m.Set(ctx, "price", json.RawMessage(`1`))
	clock.Advance(MirrorTTL)

	if _, ok := m.Get(ctx, "price"); ok {
		t.Error("entry should expire at MirrorTTL")
	}
}

func TestMirrorSharedThroughStore(t *testing.T) {
	clock := &fakeClock{t: stamp}
	store := newMemStore()
	ctx := context.Background()

	NewMirrorCache(store, quietLogger(), clock.Now).Set(ctx, "fx", json.RawMessage(`{"rate":12700}`))
	clock.Advance(10 * time.Second)

	// A second process sees the entry through the store.
	got, ok := NewMirrorCache(store, quietLogger(), clock.Now).Get(ctx, "fx")
	if !ok || string(got) != `{"rate":12700}` {
		t.Errorf("Get = %s, %v", got, ok)
	}

	clock.Advance(MirrorTTL)
	if _, ok := NewMirrorCache(store, quietLogger(), clock.Now).Get(ctx, "fx"); ok {
		t.Error("stored entry older than MirrorTTL should miss")
	}
}

func TestMirrorStoreErrorIsMiss(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	clock := &fakeClock{t: stamp}
	m := NewMirrorCache(store, quietLogger(), clock.Now)
	ctx := context.Background()

	m.Set(ctx, "price", json.RawMessage(`1`))
	if _, ok := m.Get(ctx, "price"); !ok {
		t.Error("memory should still serve when the store fails")
	}
	if _, ok := NewMirrorCache(store, quietLogger(), clock.Now).Get(ctx, "price"); ok {
		t.Error("store error should read as a miss")
	}
}

func TestMirrorCorruptEntry(t *testing.T) {
	store := newMemStore()
	store.data["price"] = []byte("not json")
	m := NewMirrorCache(store, quietLogger(), (&fakeClock{t: stamp}).Now)

	if _, ok := m.Get(context.Background(), "price"); ok {
		t.Error("corrupt entry should miss")
	}
}
