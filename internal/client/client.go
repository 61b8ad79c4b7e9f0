// Package client calls the storefront API. Quote helpers never fail: on any
// error they fall back to the same static values the server would serve.
// Balance helpers surface errors.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/web3-frozen/ton-storefront/internal/catalog"
	"github.com/web3-frozen/ton-storefront/internal/model"
	"github.com/web3-frozen/ton-storefront/internal/transfer"
)

var ErrUnavailable = errors.New("service unavailable")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Unwrap maps 5xx responses to ErrUnavailable.
func (e *APIError) Unwrap() error {
	if e.Status >= http.StatusInternalServerError {
		return ErrUnavailable
	}
	return nil
}

type Client struct {
	baseURL string
	http    *http.Client
	mirror  *MirrorCache
	catalog *catalog.Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a client for the API at baseURL. mirror may be nil, which
// disables quote mirroring.
func New(baseURL string, mirror *MirrorCache, logger *slog.Logger) (*Client, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 20 * time.Second},
		mirror:  mirror,
		catalog: cat,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// get fetches path and returns the raw body of a 2xx response.
func (c *Client) get(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, errors.Join(err, ErrUnavailable))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return nil, &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	return body, nil
}

// degraded reports whether a quote body came from the server's stale or
// fallback tier.
func degraded(body json.RawMessage) bool {
	var f struct {
		Stale    bool `json:"stale"`
		Fallback bool `json:"fallback"`
	}
	if err := json.Unmarshal(body, &f); err != nil {
		return true
	}
	return f.Stale || f.Fallback
}

// mirrored serves key from the mirror or fetches it. Only fresh answers are
// recorded: a stale or fallback body would otherwise outlive the upstream
// outage that produced it.
func (c *Client) mirrored(ctx context.Context, key, path string, q url.Values) (json.RawMessage, error) {
	if c.mirror != nil {
		if body, ok := c.mirror.Get(ctx, key); ok {
			return body, nil
		}
	}
	body, err := c.get(ctx, path, q)
	if err != nil {
		return nil, err
	}
	if c.mirror != nil && !degraded(body) {
		c.mirror.Set(ctx, key, body)
	}
	return body, nil
}

func decodeInto[T any](body json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

// TonPrice returns the USD price, or the static default on error.
func (c *Client) TonPrice(ctx context.Context) float64 {
	body, err := c.mirrored(ctx, "price", "/api/ton-price", nil)
	if err == nil {
		r, derr := decodeInto[struct {
			Price *float64 `json:"price"`
		}](body)
		if derr == nil && r.Price != nil {
			return *r.Price
		}
		err = derr
	}
	c.logger.Warn("ton price unavailable, using default", "error", err)
	return model.DefaultTonPriceUSD
}

// TonPrices returns prices for the requested currencies, or the static
// defaults for them on error.
func (c *Client) TonPrices(ctx context.Context, currencies []model.Fiat) model.Prices {
	set := model.ParseCurrencies(model.CurrencyKey(currencies))
	if len(set) == 0 {
		return model.Prices{}
	}
	key := model.CurrencyKey(set)
	body, err := c.mirrored(ctx, "prices:"+key, "/api/ton-prices", url.Values{"currencies": {key}})
	if err == nil {
		r, derr := decodeInto[struct {
			Prices model.Prices `json:"prices"`
		}](body)
		if derr == nil && r.Prices != nil {
			return r.Prices
		}
		err = derr
	}
	c.logger.Warn("ton prices unavailable, using defaults", "error", err)
	return model.FallbackPrices(set)
}

// TonPriceHistory returns hourly history, or a synthetic series on error.
func (c *Client) TonPriceHistory(ctx context.Context, days int) []model.PricePoint {
	days = model.ClampDays(days)
	d := strconv.Itoa(days)
	body, err := c.mirrored(ctx, "history:"+d, "/api/ton-price-history", url.Values{"days": {d}})
	if err == nil {
		r, derr := decodeInto[struct {
			History []model.PricePoint `json:"history"`
		}](body)
		if derr == nil {
			if r.History == nil {
				return []model.PricePoint{}
			}
			return r.History
		}
		err = derr
	}
	c.logger.Warn("price history unavailable, using synthetic series", "error", err)
	return model.SyntheticHistory(days, c.now())
}

// UsdToUzs returns how many UZS one USD buys, or the static default.
func (c *Client) UsdToUzs(ctx context.Context) float64 {
	body, err := c.mirrored(ctx, "usd-to-uzs", "/api/usd-to-uzs", nil)
	if err == nil {
		r, derr := decodeInto[struct {
			Rate *float64 `json:"rate"`
		}](body)
		if derr == nil && r.Rate != nil {
			return *r.Rate
		}
		err = derr
	}
	c.logger.Warn("usd to uzs rate unavailable, using default", "error", err)
	return model.DefaultUsdToUzs
}

type balanceBody struct {
	Balance *float64 `json:"balance"`
}

func (c *Client) balance(ctx context.Context, path string, q url.Values) (float64, error) {
	body, err := c.get(ctx, path, q)
	if err != nil {
		return 0, err
	}
	r, err := decodeInto[balanceBody](body)
	if err != nil {
		return 0, err
	}
	if r.Balance == nil {
		return 0, fmt.Errorf("%s: balance missing from response", path)
	}
	return *r.Balance, nil
}

// Balance returns a wallet's native balance. It is never mirrored.
func (c *Client) Balance(ctx context.Context, address string, chain model.Chain) (float64, error) {
	return c.balance(ctx, "/api/balance", url.Values{
		"address": {address},
		"chain":   {string(chain)},
	})
}

// JettonBalance returns a wallet's holding of master. It is never mirrored.
func (c *Client) JettonBalance(ctx context.Context, owner, master string, chain model.Chain) (float64, error) {
	return c.balance(ctx, "/api/jetton-balance", url.Values{
		"owner":  {owner},
		"master": {master},
		"chain":  {string(chain)},
	})
}

// Purchase charges the list price of nftID to the wallet behind connector,
// paying to. The returned request is what the wallet was asked to sign.
func (c *Client) Purchase(ctx context.Context, connector transfer.Connector, nftID, to string) (transfer.Request, error) {
	item, err := c.catalog.Item(nftID)
	if err != nil {
		return transfer.Request{}, err
	}
	if !transfer.ValidRecipient(to) {
		return transfer.Request{}, fmt.Errorf("%q: %w", to, transfer.ErrInvalidRecipient)
	}
	intent, err := transfer.NewIntent(to, item.PriceTon, c.now())
	if err != nil {
		return transfer.Request{}, err
	}

	req := intent.Request()
	if err := connector.SendTransaction(ctx, req); err != nil {
		return req, fmt.Errorf("send transaction for %s: %w", nftID, err)
	}
	c.logger.Info("transaction submitted", "nft", nftID, "to", to, "amount_nano", intent.AmountNano)
	return req, nil
}
