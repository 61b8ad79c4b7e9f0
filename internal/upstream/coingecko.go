package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/web3-frozen/ton-storefront/internal/model"
)

const (
	CoinGeckoAPI = "https://api.coingecko.com/api/v3"

	// tonAssetID is CoinGecko's id for Toncoin.
	tonAssetID = "the-open-network"
)

// CoinGecko fetches spot prices and price history for Toncoin.
type CoinGecko struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

func NewCoinGecko(baseURL string, logger *slog.Logger) *CoinGecko {
	return &CoinGecko{
		client:  &http.Client{},
		baseURL: baseURL,
		logger:  logger,
	}
}

func (c *CoinGecko) Name() string { return "coingecko" }

// Prices returns the spot price in every requested currency that the
// response carries as a number. Currencies missing from the response are
// left out; a response with none of them is not available.
func (c *CoinGecko) Prices(ctx context.Context, currencies []model.Fiat) (model.Prices, bool) {
	if len(currencies) == 0 {
		return model.Prices{}, true
	}

	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		c.baseURL, tonAssetID, url.QueryEscape(model.CurrencyKey(currencies)))
	doc, err := getJSON(ctx, c.client, PriceTimeout, u, nil)
	if err != nil {
		c.logger.Debug("coingecko price unavailable", "error", err)
		return nil, false
	}

	asset := doc.Get(tonAssetID)
	if !asset.IsObject() {
		c.logger.Debug("coingecko price unavailable", "error", "missing asset object")
		return nil, false
	}

	prices := make(model.Prices, len(currencies))
	for _, cur := range currencies {
		v := asset.Get(string(cur))
		if v.Type == gjson.Number {
			prices[cur] = v.Float()
		}
	}
	if len(prices) == 0 {
		c.logger.Debug("coingecko price unavailable", "error", "no requested currency in response")
		return nil, false
	}
	return prices, true
}

// Price returns the USD spot price.
func (c *CoinGecko) Price(ctx context.Context) (float64, bool) {
	prices, ok := c.Prices(ctx, []model.Fiat{model.USD})
	if !ok {
		return 0, false
	}
	p, ok := prices[model.USD]
	return p, ok
}

// History returns hourly USD prices covering the last days days.
func (c *CoinGecko) History(ctx context.Context, days int) ([]model.PricePoint, bool) {
	u := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%s&interval=hourly",
		c.baseURL, tonAssetID, strconv.Itoa(days))
	doc, err := getJSON(ctx, c.client, HistoryTimeout, u, nil)
	if err != nil {
		c.logger.Debug("coingecko history unavailable", "error", err)
		return nil, false
	}

	points, err := parseHistory(doc.Get("prices"))
	if err != nil {
		c.logger.Debug("coingecko history unavailable", "error", err)
		return nil, false
	}
	return points, true
}

// parseHistory maps [[ms, usd], ...] to price points, preserving order.
func parseHistory(prices gjson.Result) ([]model.PricePoint, error) {
	if !prices.IsArray() {
		return nil, fmt.Errorf("prices is not an array")
	}
	rows := prices.Array()
	out := make([]model.PricePoint, 0, len(rows))
	for i, row := range rows {
		pair := row.Array()
		if len(pair) != 2 || pair[0].Type != gjson.Number || pair[1].Type != gjson.Number {
			return nil, fmt.Errorf("malformed price pair at index %d", i)
		}
		out = append(out, model.PricePoint{T: pair[0].Int(), P: pair[1].Float()})
	}
	return out, nil
}
