package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/web3-frozen/ton-storefront/internal/model"
	"github.com/web3-frozen/ton-storefront/internal/resolver"
)

// Quotes resolves the cached market quantities.
type Quotes interface {
	Price(ctx context.Context) resolver.Result[float64]
	Prices(ctx context.Context, currencies []model.Fiat) resolver.Result[model.Prices]
	History(ctx context.Context, days int) resolver.Result[[]model.PricePoint]
	UsdToUzs(ctx context.Context) resolver.Result[float64]
}

// freshness is embedded in every quote response.
type freshness struct {
	Cached    bool   `json:"cached"`
	Stale     bool   `json:"stale,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

func freshnessOf[V any](res resolver.Result[V], hint string) freshness {
	f := freshness{Timestamp: res.FetchedAt.UnixMilli()}
	switch res.Outcome {
	case resolver.Cached:
		f.Cached = true
	case resolver.Stale:
		f.Cached = true
		f.Stale = true
	case resolver.Fallback:
		f.Fallback = true
		f.Error = hint
	}
	return f
}

func TonPrice(q Quotes) http.HandlerFunc {
	type response struct {
		Price float64 `json:"price"`
		freshness
	}

	return func(w http.ResponseWriter, r *http.Request) {
		res := q.Price(r.Context())
		if !res.OK() {
			writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		writeJSON(w, http.StatusOK, response{
			Price:     res.Value,
			freshness: freshnessOf(res, "Unable to fetch current price"),
		})
	}
}

func TonPriceHistory(q Quotes) http.HandlerFunc {
	type response struct {
		History []model.PricePoint `json:"history"`
		freshness
	}

	return func(w http.ResponseWriter, r *http.Request) {
		days := 1
		if raw := r.URL.Query().Get("days"); raw != "" {
			if n, ok := leadingInt(raw); ok {
				days = n
			}
		}

		res := q.History(r.Context(), model.ClampDays(days))
		if !res.OK() {
			writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		history := res.Value
		if history == nil {
			history = []model.PricePoint{}
		}
		writeJSON(w, http.StatusOK, response{
			History:   history,
			freshness: freshnessOf(res, "Unable to fetch current price history"),
		})
	}
}

func TonPrices(q Quotes) http.HandlerFunc {
	type response struct {
		Prices model.Prices `json:"prices"`
		freshness
	}

	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("currencies")
		if raw == "" {
			raw = string(model.USD)
		}

		res := q.Prices(r.Context(), model.ParseCurrencies(raw))
		if !res.OK() {
			writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		prices := res.Value
		if prices == nil {
			prices = model.Prices{}
		}
		writeJSON(w, http.StatusOK, response{
			Prices:    prices,
			freshness: freshnessOf(res, "Unable to fetch current prices"),
		})
	}
}

func UsdToUzs(q Quotes) http.HandlerFunc {
	type response struct {
		Rate float64 `json:"rate"`
		freshness
		Source string `json:"source,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		res := q.UsdToUzs(r.Context())
		if !res.OK() {
			writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		writeJSON(w, http.StatusOK, response{
			Rate:      res.Value,
			freshness: freshnessOf(res, "Unable to fetch current exchange rate"),
			Source:    res.Source,
		})
	}
}

// leadingInt parses an optional sign and the leading decimal digits of s,
// ignoring anything after them, so "7d" reads as 7.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n, digits := 0, 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		// Anything this long is clamped anyway.
		if digits < 9 {
			n = n*10 + int(c-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
