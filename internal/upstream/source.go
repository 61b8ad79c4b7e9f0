// Package upstream holds one adapter per third-party provider. Adapters
// never return errors to their callers: every transport, status or shape
// problem is logged and reported as "not available".
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const (
	userAgent   = "TON-Storefront/1.0"
	maxBodySize = 4 << 20
)

// Source is one provider in a quantity's failover chain.
type Source[P, V any] interface {
	// Name identifies the provider in logs, metrics and responses.
	Name() string

	// Enabled is false when the provider needs an API key that is not
	// configured. Disabled sources are skipped, not counted as failures.
	Enabled() bool

	// Fetch performs one bounded call and reports whether a value was
	// obtained.
	Fetch(ctx context.Context, params P) (V, bool)
}

// Func adapts a plain function to Source.
type Func[P, V any] struct {
	name    string
	enabled bool
	fetch   func(ctx context.Context, params P) (V, bool)
}

var _ Source[string, float64] = Func[string, float64]{}

// NewFunc creates a Source named name.
func NewFunc[P, V any](name string, enabled bool, fetch func(ctx context.Context, params P) (V, bool)) Func[P, V] {
	return Func[P, V]{name: name, enabled: enabled, fetch: fetch}
}

func (f Func[P, V]) Name() string  { return f.name }
func (f Func[P, V]) Enabled() bool { return f.enabled }

func (f Func[P, V]) Fetch(ctx context.Context, params P) (V, bool) {
	return f.fetch(ctx, params)
}

// getJSON performs a GET bounded by timeout and returns the parsed body.
func getJSON(ctx context.Context, client *http.Client, timeout time.Duration, url string, header http.Header) (gjson.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, fmt.Errorf("status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid json body")
	}
	return gjson.ParseBytes(body), nil
}

// Per-quantity deadlines for a single upstream call.
const (
	PriceTimeout   = 10 * time.Second
	HistoryTimeout = 15 * time.Second
	BalanceTimeout = 10 * time.Second
	FXTimeout      = 8 * time.Second
)
