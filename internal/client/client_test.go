package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/web3-frozen/ton-storefront/internal/model"
	"github.com/web3-frozen/ton-storefront/internal/transfer"
)

const recipient = "EQBq5z4N_GeJyBdvNh4tPjMpSkA08p8vWyiAX6LNbr3aLjI0"

// apiStub answers the storefront routes. When down is set every route
// replies 502 like a server whose upstreams are all failing.
type apiStub struct {
	srv   *httptest.Server
	down  atomic.Bool
	price atomic.Int64
}

func newAPIStub(t *testing.T) *apiStub {
	t.Helper()
	a := &apiStub{}
	routes := map[string]string{
		"/api/ton-price":         `{"price":3.42,"cached":false,"timestamp":1}`,
		"/api/ton-prices":        `{"prices":{"usd":3.42,"eur":3.1},"cached":false,"timestamp":1}`,
		"/api/ton-price-history": `{"history":[{"t":1,"p":3.4},{"t":2,"p":3.5}],"cached":false,"timestamp":1}`,
		"/api/usd-to-uzs":        `{"rate":12700,"cached":false,"timestamp":1,"source":"er-api"}`,
		"/api/balance":           `{"balance":1.5,"cached":false,"timestamp":1}`,
		"/api/jetton-balance":    `{"balance":42,"cached":false,"timestamp":1}`,
	}
	mux := http.NewServeMux()
	for path, body := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if path == "/api/ton-price" {
				a.price.Add(1)
			}
			if a.down.Load() {
				w.WriteHeader(http.StatusBadGateway)
				io.WriteString(w, `{"error":"Unable to fetch balance"}`)
				return
			}
			io.WriteString(w, body)
		})
	}
	a.srv = httptest.NewServer(mux)
	t.Cleanup(a.srv.Close)
	return a
}

func newTestClient(t *testing.T, baseURL string, mirror *MirrorCache) *Client {
	t.Helper()
	c, err := New(baseURL, mirror, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.now = (&fakeClock{t: stamp}).Now
	return c
}

func TestClientQuotes(t *testing.T) {
	a := newAPIStub(t)
	c := newTestClient(t, a.srv.URL, nil)
	ctx := context.Background()

	if got := c.TonPrice(ctx); got != 3.42 {
		t.Errorf("TonPrice = %v", got)
	}
	if got := c.UsdToUzs(ctx); got != 12700 {
		t.Errorf("UsdToUzs = %v", got)
	}
	prices := c.TonPrices(ctx, []model.Fiat{model.USD, model.EUR})
	if prices[model.USD] != 3.42 || prices[model.EUR] != 3.1 {
		t.Errorf("TonPrices = %v", prices)
	}
	if h := c.TonPriceHistory(ctx, 1); len(h) != 2 || h[1].P != 3.5 {
		t.Errorf("TonPriceHistory = %v", h)
	}
}

func TestClientQuotesFallBackWhenDown(t *testing.T) {
	a := newAPIStub(t)
	a.down.Store(true)
	c := newTestClient(t, a.srv.URL, nil)
	ctx := context.Background()

	if got := c.TonPrice(ctx); got != model.DefaultTonPriceUSD {
		t.Errorf("TonPrice = %v, want default", got)
	}
	if got := c.UsdToUzs(ctx); got != model.DefaultUsdToUzs {
		t.Errorf("UsdToUzs = %v, want default", got)
	}
	prices := c.TonPrices(ctx, []model.Fiat{model.USD, model.EUR})
	if prices[model.USD] != 2.5 || prices[model.EUR] != 2.3 || len(prices) != 2 {
		t.Errorf("TonPrices = %v", prices)
	}
	h := c.TonPriceHistory(ctx, 2)
	if len(h) != 49 || h[len(h)-1].T != stamp.UnixMilli() {
		t.Errorf("history len = %d", len(h))
	}
}

func TestClientQuotesFallBackWhenServerGone(t *testing.T) {
	a := newAPIStub(t)
	c := newTestClient(t, a.srv.URL, nil)
	a.srv.Close()

	if got := c.TonPrice(context.Background()); got != model.DefaultTonPriceUSD {
		t.Errorf("TonPrice = %v, want default", got)
	}
}

func TestClientMirrorsQuotes(t *testing.T) {
	a := newAPIStub(t)
	clock := &fakeClock{t: stamp}
	c := newTestClient(t, a.srv.URL, NewMirrorCache(newMemStore(), quietLogger(), clock.Now))
	ctx := context.Background()

	c.TonPrice(ctx)
	c.TonPrice(ctx)
	if n := a.price.Load(); n != 1 {
		t.Errorf("server hit %d times within the mirror TTL, want 1", n)
	}

	clock.Advance(MirrorTTL)
	c.TonPrice(ctx)
	if n := a.price.Load(); n != 2 {
		t.Errorf("server hit %d times after expiry, want 2", n)
	}
}

func TestClientDoesNotMirrorDegradedQuotes(t *testing.T) {
	tests := []struct {
		name  string
		first string
	}{
		{"fallback", `{"price":2.5,"cached":false,"fallback":true,"timestamp":1}`},
		{"stale", `{"price":2.9,"cached":true,"stale":true,"timestamp":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int64
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if hits.Add(1) == 1 {
					io.WriteString(w, tt.first)
					return
				}
				io.WriteString(w, `{"price":3.42,"cached":false,"timestamp":2}`)
			}))
			t.Cleanup(srv.Close)
			clock := &fakeClock{t: stamp}
			c := newTestClient(t, srv.URL, NewMirrorCache(newMemStore(), quietLogger(), clock.Now))
			ctx := context.Background()

			c.TonPrice(ctx)
			if got := c.TonPrice(ctx); got != 3.42 {
				t.Errorf("TonPrice after recovery = %v, want 3.42", got)
			}
			if n := hits.Load(); n != 2 {
				t.Errorf("server hit %d times, want 2", n)
			}
			// The live answer is mirrored.
			c.TonPrice(ctx)
			if n := hits.Load(); n != 2 {
				t.Errorf("server hit %d times after a live answer, want 2", n)
			}
		})
	}
}

func TestClientEmptyCurrencySetSkipsServer(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{"prices":{"usd":3.42},"cached":false,"timestamp":1}`)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv.URL, nil)
	ctx := context.Background()

	for _, in := range [][]model.Fiat{nil, {}, {"gbp", "jpy"}} {
		if got := c.TonPrices(ctx, in); len(got) != 0 {
			t.Errorf("TonPrices(%v) = %v, want empty", in, got)
		}
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server hit %d times for empty sets, want 0", n)
	}
}

func TestClientBalances(t *testing.T) {
	a := newAPIStub(t)
	c := newTestClient(t, a.srv.URL, nil)
	ctx := context.Background()

	if b, err := c.Balance(ctx, "EQabc", model.Mainnet); err != nil || b != 1.5 {
		t.Errorf("Balance = %v, %v", b, err)
	}
	if b, err := c.JettonBalance(ctx, "EQo", "EQm", model.Testnet); err != nil || b != 42 {
		t.Errorf("JettonBalance = %v, %v", b, err)
	}
}

func TestClientBalanceUnavailable(t *testing.T) {
	a := newAPIStub(t)
	a.down.Store(true)
	c := newTestClient(t, a.srv.URL, nil)

	_, err := c.Balance(context.Background(), "EQabc", model.Mainnet)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway || apiErr.Message != "Unable to fetch balance" {
		t.Errorf("err = %#v", err)
	}
}

func TestAPIErrorClientErrorNotUnavailable(t *testing.T) {
	err := &APIError{Status: http.StatusBadRequest, Message: "Missing address"}
	if errors.Is(err, ErrUnavailable) {
		t.Error("4xx should not read as unavailable")
	}
	if err.Error() != "api error: status 400: Missing address" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestPurchase(t *testing.T) {
	c := newTestClient(t, "http://unused", nil)
	var sent transfer.Request
	conn := transfer.ConnectorFunc(func(_ context.Context, req transfer.Request) error {
		sent = req
		return nil
	})

	req, err := c.Purchase(context.Background(), conn, "cyber-art-001-neo-001", recipient)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if len(sent.Messages) != 1 || sent.Messages[0].Amount != "1700000000" || sent.Messages[0].Address != recipient {
		t.Errorf("sent = %+v", sent)
	}
	if req.ValidUntil != stamp.Unix()+600 {
		t.Errorf("validUntil = %d", req.ValidUntil)
	}
}

func TestPurchaseDeclined(t *testing.T) {
	c := newTestClient(t, "http://unused", nil)
	conn := transfer.ConnectorFunc(func(context.Context, transfer.Request) error {
		return transfer.ErrUserDeclined
	})

	_, err := c.Purchase(context.Background(), conn, "cyber-art-001-neo-001", recipient)
	if !errors.Is(err, transfer.ErrUserDeclined) {
		t.Errorf("err = %v, want ErrUserDeclined", err)
	}
}

func TestPurchaseRejectsBeforeSending(t *testing.T) {
	c := newTestClient(t, "http://unused", nil)
	called := false
	conn := transfer.ConnectorFunc(func(context.Context, transfer.Request) error {
		called = true
		return nil
	})
	ctx := context.Background()

	if _, err := c.Purchase(ctx, conn, "cyber-art-001-neo-001", "EQshort"); !errors.Is(err, transfer.ErrInvalidRecipient) {
		t.Errorf("bad recipient err = %v", err)
	}
	if _, err := c.Purchase(ctx, conn, "missing", recipient); err == nil {
		t.Error("unknown nft should fail")
	}
	if called {
		t.Error("connector must not be called for rejected purchases")
	}
}
