package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/web3-frozen/ton-storefront/internal/cache"
)

// MirrorTTL is how long a quote answered by the server is reused locally.
const MirrorTTL = 60 * time.Second

// envelope is the persisted form of a mirror entry.
type envelope struct {
	StoredAt time.Time       `json:"stored_at"`
	Body     json.RawMessage `json:"body"`
}

// MirrorCache sits in front of the quote endpoints. It checks process
// memory first, then the Store; any store error is treated as a miss.
type MirrorCache struct {
	mem    *cache.Cell[json.RawMessage]
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewMirrorCache creates a mirror over store. A nil store means NopStore.
func NewMirrorCache(store Store, logger *slog.Logger, now func() time.Time) *MirrorCache {
	if store == nil {
		store = NopStore{}
	}
	if now == nil {
		now = time.Now
	}
	return &MirrorCache{
		mem:    cache.NewCell[json.RawMessage](cache.WithClock(now), cache.WithSize(256)),
		store:  store,
		ttl:    MirrorTTL,
		now:    now,
		logger: logger,
	}
}

// Get returns the body stored under key if it is younger than MirrorTTL.
func (m *MirrorCache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	if e, ok := m.mem.PeekFresh(key, m.ttl); ok {
		return e.Value, true
	}

	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.Warn("mirror store read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		m.logger.Warn("mirror entry corrupt", "key", key, "error", err)
		return nil, false
	}
	if m.now().Sub(env.StoredAt) >= m.ttl {
		return nil, false
	}
	return env.Body, true
}

// Set records body under key in memory and in the store.
func (m *MirrorCache) Set(ctx context.Context, key string, body json.RawMessage) {
	e := m.mem.Put(key, body)

	raw, err := json.Marshal(envelope{StoredAt: e.FetchedAt, Body: body})
	if err != nil {
		m.logger.Warn("mirror entry encode failed", "key", key, "error", err)
		return
	}
	if err := m.store.Set(ctx, key, raw, m.ttl); err != nil {
		m.logger.Warn("mirror store write failed", "key", key, "error", err)
	}
}
