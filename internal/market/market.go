// Package market wires the upstream adapters into one resolver per quantity
// and exposes them to the HTTP layer.
package market

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/web3-frozen/ton-storefront/internal/config"
	"github.com/web3-frozen/ton-storefront/internal/model"
	"github.com/web3-frozen/ton-storefront/internal/resolver"
	"github.com/web3-frozen/ton-storefront/internal/upstream"
)

// Cache lifetimes per quantity. Balances are never cached server side.
const (
	PriceTTL   = 30 * time.Second
	PricesTTL  = 30 * time.Second
	HistoryTTL = 5 * time.Minute
	FXTTL      = 60 * time.Second
)

type none = struct{}

// Market holds the configured quantities.
type Market struct {
	price   *resolver.Quantity[none, float64]
	prices  *resolver.Quantity[[]model.Fiat, model.Prices]
	history *resolver.Quantity[int, []model.PricePoint]
	fx      *resolver.Quantity[none, float64]

	balance map[model.Chain]*resolver.Quantity[string, float64]
	jetton  map[model.Chain]*resolver.Quantity[model.JettonQuery, float64]
}

// Option configures a Market.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for every cache and fallback.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds every quantity from cfg.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) *Market {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	cg := upstream.NewCoinGecko(cfg.CoinGeckoURL, logger)
	tonapi := upstream.NewTonAPI(cfg.TonAPIURL, cfg.TonAPIKey, logger)
	tonapiPublic := upstream.NewTonAPI(cfg.TonAPIURL, "", logger)
	tonapiTest := upstream.NewTonAPI(cfg.TonAPITestnetURL, cfg.TonAPIKey, logger)
	toncenter := upstream.NewTonCenter(cfg.TonCenterURL, cfg.TonCenterAPIKey, logger)
	toncenterTest := upstream.NewTonCenter(cfg.TonCenterTestnetURL, cfg.TonCenterAPIKey, logger)

	m := &Market{
		balance: make(map[model.Chain]*resolver.Quantity[string, float64]),
		jetton:  make(map[model.Chain]*resolver.Quantity[model.JettonQuery, float64]),
	}

	m.price = resolver.New(resolver.Config[none, float64]{
		Name: "price",
		TTL:  PriceTTL,
		Sources: []upstream.Source[none, float64]{
			upstream.NewFunc("coingecko", true, func(ctx context.Context, _ none) (float64, bool) {
				return cg.Price(ctx)
			}),
		},
		Fallback: func(none, time.Time) float64 { return model.DefaultTonPriceUSD },
		Logger:   logger,
		Now:      o.now,
	})

	m.prices = resolver.New(resolver.Config[[]model.Fiat, model.Prices]{
		Name: "prices",
		TTL:  PricesTTL,
		Key:  model.CurrencyKey,
		Sources: []upstream.Source[[]model.Fiat, model.Prices]{
			upstream.NewFunc("coingecko", true, cg.Prices),
		},
		Fallback: func(c []model.Fiat, _ time.Time) model.Prices { return model.FallbackPrices(c) },
		Logger:   logger,
		Now:      o.now,
	})

	m.history = resolver.New(resolver.Config[int, []model.PricePoint]{
		Name: "history",
		TTL:  HistoryTTL,
		Key:  strconv.Itoa,
		Sources: []upstream.Source[int, []model.PricePoint]{
			upstream.NewFunc("coingecko", true, cg.History),
		},
		Fallback: model.SyntheticHistory,
		Logger:   logger,
		Now:      o.now,
	})

	m.fx = resolver.New(resolver.Config[none, float64]{
		Name: "usd-to-uzs",
		TTL:  FXTTL,
		Sources: []upstream.Source[none, float64]{
			upstream.NewFXRate("er-api", cfg.ERAPIURL, logger),
			upstream.NewFXRate("exchangerate.host", cfg.ExchangeRateHostURL, logger),
		},
		Fallback: func(none, time.Time) float64 { return model.DefaultUsdToUzs },
		Logger:   logger,
		Now:      o.now,
	})

	m.balance[model.Mainnet] = resolver.New(resolver.Config[string, float64]{
		Name: "balance-mainnet",
		Sources: []upstream.Source[string, float64]{
			upstream.NewFunc("tonapi", tonapi.HasToken(), tonapi.Balance),
			upstream.NewFunc("toncenter", toncenter.HasKey(), toncenter.Balance),
			upstream.NewFunc("tonapi-public", true, tonapiPublic.Balance),
		},
		Logger: logger,
		Now:    o.now,
	})
	m.balance[model.Testnet] = resolver.New(resolver.Config[string, float64]{
		Name: "balance-testnet",
		Sources: []upstream.Source[string, float64]{
			upstream.NewFunc("toncenter-testnet", true, toncenterTest.Balance),
			upstream.NewFunc("tonapi-testnet", true, tonapiTest.Balance),
		},
		Logger: logger,
		Now:    o.now,
	})

	m.jetton[model.Mainnet] = resolver.New(resolver.Config[model.JettonQuery, float64]{
		Name: "jetton-mainnet",
		Sources: []upstream.Source[model.JettonQuery, float64]{
			upstream.NewFunc("tonapi", true, tonapi.JettonBalance),
		},
		Logger: logger,
		Now:    o.now,
	})
	m.jetton[model.Testnet] = resolver.New(resolver.Config[model.JettonQuery, float64]{
		Name: "jetton-testnet",
		Sources: []upstream.Source[model.JettonQuery, float64]{
			upstream.NewFunc("tonapi-testnet", true, tonapiTest.JettonBalance),
		},
		Logger: logger,
		Now:    o.now,
	})

	return m
}

// Price resolves the USD spot price.
func (m *Market) Price(ctx context.Context) resolver.Result[float64] {
	return m.price.Resolve(ctx, none{})
}

// Prices resolves spot prices for a normalised currency set.
func (m *Market) Prices(ctx context.Context, currencies []model.Fiat) resolver.Result[model.Prices] {
	return m.prices.Resolve(ctx, currencies)
}

// History resolves hourly USD history; days must already be clamped.
func (m *Market) History(ctx context.Context, days int) resolver.Result[[]model.PricePoint] {
	return m.history.Resolve(ctx, days)
}

// UsdToUzs resolves how many UZS one USD buys.
func (m *Market) UsdToUzs(ctx context.Context) resolver.Result[float64] {
	return m.fx.Resolve(ctx, none{})
}

// RefreshPrice fetches the spot price even when the cached one is fresh.
func (m *Market) RefreshPrice(ctx context.Context) resolver.Result[float64] {
	return m.price.Refresh(ctx, none{})
}

// RefreshPrices fetches spot prices for currencies even when cached.
func (m *Market) RefreshPrices(ctx context.Context, currencies []model.Fiat) resolver.Result[model.Prices] {
	return m.prices.Refresh(ctx, currencies)
}

// RefreshUsdToUzs fetches the FX rate even when the cached one is fresh.
func (m *Market) RefreshUsdToUzs(ctx context.Context) resolver.Result[float64] {
	return m.fx.Refresh(ctx, none{})
}

// Balance resolves a wallet's native balance in TON.
func (m *Market) Balance(ctx context.Context, address string, chain model.Chain) resolver.Result[float64] {
	q, ok := m.balance[chain]
	if !ok {
		q = m.balance[model.Mainnet]
	}
	return q.Resolve(ctx, address)
}

// JettonBalance resolves a wallet's holding of one token.
func (m *Market) JettonBalance(ctx context.Context, q model.JettonQuery, chain model.Chain) resolver.Result[float64] {
	jq, ok := m.jetton[chain]
	if !ok {
		jq = m.jetton[model.Testnet]
	}
	return jq.Resolve(ctx, q)
}
