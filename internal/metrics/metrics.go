package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── HTTP request metrics (RED method) ──────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ton_storefront",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ton_storefront",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ton_storefront",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})

	HTTPResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ton_storefront",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response body size in bytes.",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 7),
	}, []string{"path"})

	HTTPRateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ton_storefront",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-client rate limiter.",
	})
)

// ── Upstream provider metrics ──────────────────────────────────────────

var (
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ton_storefront",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Upstream provider calls by outcome (ok, unavailable, skipped).",
	}, []string{"source", "status"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ton_storefront",
		Subsystem: "upstream",
		Name:      "duration_seconds",
		Help:      "Duration of upstream provider calls in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	}, []string{"source"})
)

// ── Resolver / cache metrics ───────────────────────────────────────────

var (
	ResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ton_storefront",
		Subsystem: "resolve",
		Name:      "total",
		Help:      "Resolve outcomes per quantity (live, cached, stale, fallback, unavailable).",
	}, []string{"quantity", "outcome"})

	CacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ton_storefront",
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Number of cached request shapes per quantity.",
	}, []string{"quantity"})

	CacheLastWrite = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ton_storefront",
		Subsystem: "cache",
		Name:      "last_write_timestamp",
		Help:      "Unix timestamp of the last successful cache write per quantity.",
	}, []string{"quantity"})
)

// ── Warmer metrics ─────────────────────────────────────────────────────

var (
	WarmRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ton_storefront",
		Subsystem: "warm",
		Name:      "runs_total",
		Help:      "Background cache warm runs per task.",
	}, []string{"task", "status"})
)
