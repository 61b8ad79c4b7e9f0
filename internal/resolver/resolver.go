// Package resolver answers "give me the current value of this quantity for
// these parameters" from a fresh cache entry, an upstream failover chain, a
// stale cache entry or a static fallback, in that order.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/web3-frozen/ton-storefront/internal/cache"
	"github.com/web3-frozen/ton-storefront/internal/metrics"
	"github.com/web3-frozen/ton-storefront/internal/upstream"
)

// Outcome records which tier produced a Result.
type Outcome int

const (
	Unavailable Outcome = iota
	Live                // fetched from an upstream during this call
	Cached              // fresh cache entry
	Stale               // expired cache entry, every source failed
	Fallback            // static default, nothing cached
)

func (o Outcome) String() string {
	switch o {
	case Live:
		return "live"
	case Cached:
		return "cached"
	case Stale:
		return "stale"
	case Fallback:
		return "fallback"
	default:
		return "unavailable"
	}
}

// Result is the answer to one Resolve call.
type Result[V any] struct {
	Value     V
	Outcome   Outcome
	FetchedAt time.Time // entry stamp; now for Fallback; zero for Unavailable
	Source    string    // winning source, set only for Live
}

// OK reports whether Value is usable.
func (r Result[V]) OK() bool { return r.Outcome != Unavailable }

// Config describes one quantity.
type Config[P, V any] struct {
	Name string

	// TTL is how long a cached value is served without asking upstream.
	// Zero disables the cache tier for this quantity.
	TTL time.Duration

	// Key maps parameters to the cache key. Nil means a single key.
	Key func(P) string

	Sources []upstream.Source[P, V]

	// Fallback builds a static default. Nil means the quantity has none.
	Fallback func(params P, now time.Time) V

	Cell   *cache.Cell[V]
	Logger *slog.Logger
	Now    func() time.Time
}

// Quantity resolves one configured quantity. It is safe for concurrent use.
type Quantity[P, V any] struct {
	cfg Config[P, V]
}

// New validates cfg and fills in defaults.
func New[P, V any](cfg Config[P, V]) *Quantity[P, V] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Key == nil {
		cfg.Key = func(P) string { return cfg.Name }
	}
	if cfg.TTL > 0 && cfg.Cell == nil {
		cfg.Cell = cache.NewCell[V](cache.WithClock(cfg.Now))
	}
	if cfg.TTL <= 0 {
		cfg.Cell = nil
	}
	cfg.Logger = cfg.Logger.With("quantity", cfg.Name)
	return &Quantity[P, V]{cfg: cfg}
}

func (q *Quantity[P, V]) Name() string { return q.cfg.Name }

// Resolve never fails: absence of every tier is reported as Unavailable.
// Upstream calls are detached from ctx cancellation so a client that
// disconnects mid-walk still leaves the cache warm for the next caller.
func (q *Quantity[P, V]) Resolve(ctx context.Context, params P) Result[V] {
	res := q.resolve(ctx, params, false)
	metrics.ResolveTotal.WithLabelValues(q.cfg.Name, res.Outcome.String()).Inc()
	return res
}

// Refresh is Resolve without the fresh-cache tier: it always walks the
// sources, so a background caller can renew an entry before it expires.
// When every source fails the cached entry is returned as is, Cached while
// it is still fresh and Stale after.
func (q *Quantity[P, V]) Refresh(ctx context.Context, params P) Result[V] {
	res := q.resolve(ctx, params, true)
	metrics.ResolveTotal.WithLabelValues(q.cfg.Name, res.Outcome.String()).Inc()
	return res
}

func (q *Quantity[P, V]) resolve(ctx context.Context, params P, force bool) Result[V] {
	key := q.cfg.Key(params)

	if q.cfg.Cell != nil && !force {
		if e, ok := q.cfg.Cell.PeekFresh(key, q.cfg.TTL); ok {
			return Result[V]{Value: e.Value, Outcome: Cached, FetchedAt: e.FetchedAt}
		}
	}

	walkCtx := context.WithoutCancel(ctx)
	for _, src := range q.cfg.Sources {
		if !src.Enabled() {
			metrics.UpstreamRequestsTotal.WithLabelValues(src.Name(), "skipped").Inc()
			continue
		}

		start := time.Now()
		v, ok := src.Fetch(walkCtx, params)
		metrics.UpstreamDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())
		if !ok {
			metrics.UpstreamRequestsTotal.WithLabelValues(src.Name(), "unavailable").Inc()
			q.cfg.Logger.Warn("upstream unavailable", "source", src.Name(), "key", key)
			continue
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(src.Name(), "ok").Inc()

		at := q.cfg.Now()
		if q.cfg.Cell != nil {
			at = q.cfg.Cell.Put(key, v).FetchedAt
			metrics.CacheEntries.WithLabelValues(q.cfg.Name).Set(float64(q.cfg.Cell.Len()))
			metrics.CacheLastWrite.WithLabelValues(q.cfg.Name).Set(float64(at.Unix()))
		}
		return Result[V]{Value: v, Outcome: Live, FetchedAt: at, Source: src.Name()}
	}

	if q.cfg.Cell != nil {
		if e, ok := q.cfg.Cell.PeekFresh(key, q.cfg.TTL); ok {
			return Result[V]{Value: e.Value, Outcome: Cached, FetchedAt: e.FetchedAt}
		}
		if e, ok := q.cfg.Cell.PeekAny(key); ok {
			q.cfg.Logger.Info("serving stale value", "key", key, "age", q.cfg.Now().Sub(e.FetchedAt).Round(time.Second))
			return Result[V]{Value: e.Value, Outcome: Stale, FetchedAt: e.FetchedAt}
		}
	}

	if q.cfg.Fallback != nil {
		now := q.cfg.Now()
		q.cfg.Logger.Warn("serving fallback value", "key", key)
		return Result[V]{Value: q.cfg.Fallback(params, now), Outcome: Fallback, FetchedAt: now}
	}

	q.cfg.Logger.Error("all sources unavailable", "key", key)
	return Result[V]{Outcome: Unavailable}
}
