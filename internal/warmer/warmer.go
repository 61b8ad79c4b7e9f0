// Package warmer refreshes cached quotes in the background so that the
// first request after start, and most requests after, are cache hits.
package warmer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/web3-frozen/ton-storefront/internal/metrics"
	"github.com/web3-frozen/ton-storefront/internal/model"
	"github.com/web3-frozen/ton-storefront/internal/resolver"
)

// Task refreshes one quantity.
type Task func(ctx context.Context) error

// Engine runs registered tasks on a fixed interval.
type Engine struct {
	interval time.Duration
	logger   *slog.Logger
	mu       sync.RWMutex
	tasks    map[string]Task
}

// NewEngine creates an engine. An interval of zero or less disables Run.
func NewEngine(interval time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		interval: interval,
		logger:   logger,
		tasks:    make(map[string]Task),
	}
}

// Register adds a named task, replacing any task with the same name.
func (e *Engine) Register(name string, t Task) {
	e.mu.Lock()
	e.tasks[name] = t
	e.mu.Unlock()
	e.logger.Info("registered warm task", "task", name)
}

// TaskNames returns the registered task names in order.
func (e *Engine) TaskNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.tasks))
	for n := range e.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run warms once immediately and then on every tick until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	if e.interval <= 0 {
		e.logger.Info("cache warmer disabled")
		return
	}
	e.RunOnce(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.RunOnce(ctx)
		}
	}
}

// RunOnce runs every task once, sequentially. Failures are logged and
// counted; they never stop the other tasks.
func (e *Engine) RunOnce(ctx context.Context) {
	for _, name := range e.TaskNames() {
		if ctx.Err() != nil {
			return
		}
		e.mu.RLock()
		t := e.tasks[name]
		e.mu.RUnlock()

		if err := t(ctx); err != nil {
			metrics.WarmRunsTotal.WithLabelValues(name, "error").Inc()
			e.logger.Warn("warm task failed", "task", name, "error", err)
			continue
		}
		metrics.WarmRunsTotal.WithLabelValues(name, "ok").Inc()
		e.logger.Debug("warm task done", "task", name)
	}
}

// Quotes renews the cached market quantities ahead of their expiry.
type Quotes interface {
	RefreshPrice(ctx context.Context) resolver.Result[float64]
	RefreshPrices(ctx context.Context, currencies []model.Fiat) resolver.Result[model.Prices]
	RefreshUsdToUzs(ctx context.Context) resolver.Result[float64]
}

// RegisterQuotes adds the standard tasks for price, usd-to-uzs and the
// default prices set. Each run refetches even when the entry is still
// fresh, so with an interval below the TTL the entry never expires while
// the upstream is healthy.
func RegisterQuotes(e *Engine, q Quotes) {
	e.Register("price", func(ctx context.Context) error {
		return check(q.RefreshPrice(ctx).Outcome)
	})
	e.Register("usd-to-uzs", func(ctx context.Context) error {
		return check(q.RefreshUsdToUzs(ctx).Outcome)
	})
	e.Register("prices", func(ctx context.Context) error {
		return check(q.RefreshPrices(ctx, []model.Fiat{model.USD}).Outcome)
	})
}

// check reports an error unless a source answered during this run.
func check(o resolver.Outcome) error {
	if o == resolver.Live {
		return nil
	}
	return fmt.Errorf("resolved %s", o)
}
