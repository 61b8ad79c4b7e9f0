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
	TonAPIMainnet    = "https://tonapi.io"
	TonAPITestnet    = "https://testnet.tonapi.io"
	TonCenterMainnet = "https://toncenter.com"
	TonCenterTestnet = "https://testnet.toncenter.com"

	defaultJettonDecimals = 9
)

// TonAPI reads account and jetton balances from a tonapi.io deployment.
// The token is optional; without it requests go out unauthenticated.
type TonAPI struct {
	client  *http.Client
	baseURL string
	token   string
	logger  *slog.Logger
}

func NewTonAPI(baseURL, token string, logger *slog.Logger) *TonAPI {
	return &TonAPI{
		client:  &http.Client{},
		baseURL: baseURL,
		token:   token,
		logger:  logger,
	}
}

// HasToken reports whether requests carry a bearer token.
func (t *TonAPI) HasToken() bool { return t.token != "" }

func (t *TonAPI) header() http.Header {
	if t.token == "" {
		return nil
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+t.token)
	return h
}

// Balance returns the native balance in TON. tonapi reports a top-level
// numeric balance in nanoton.
func (t *TonAPI) Balance(ctx context.Context, address string) (float64, bool) {
	u := fmt.Sprintf("%s/v2/accounts/%s", t.baseURL, url.PathEscape(address))
	doc, err := getJSON(ctx, t.client, BalanceTimeout, u, t.header())
	if err != nil {
		t.logger.Debug("tonapi balance unavailable", "base", t.baseURL, "error", err)
		return 0, false
	}

	bal := doc.Get("balance")
	if bal.Type != gjson.Number {
		t.logger.Debug("tonapi balance unavailable", "base", t.baseURL, "error", "balance is not a number")
		return 0, false
	}
	return model.NanoToTon(bal.Float()), true
}

// Jettons returns the owner's token holdings.
func (t *TonAPI) Jettons(ctx context.Context, owner string) ([]model.JettonHolding, bool) {
	u := fmt.Sprintf("%s/v2/accounts/%s/jettons?limit=100", t.baseURL, url.PathEscape(owner))
	doc, err := getJSON(ctx, t.client, BalanceTimeout, u, t.header())
	if err != nil {
		t.logger.Debug("tonapi jettons unavailable", "base", t.baseURL, "error", err)
		return nil, false
	}
	return parseJettons(doc), true
}

// JettonBalance returns the owner's holding of master, 0 when absent.
func (t *TonAPI) JettonBalance(ctx context.Context, q model.JettonQuery) (float64, bool) {
	holdings, ok := t.Jettons(ctx, q.Owner)
	if !ok {
		return 0, false
	}
	return model.FindJetton(holdings, q.Master), true
}

// parseJettons reads either the "balances" or the "jettons" list. Entries
// without a string address are skipped.
func parseJettons(doc gjson.Result) []model.JettonHolding {
	list := doc.Get("balances")
	if !list.IsArray() {
		list = doc.Get("jettons")
	}

	var out []model.JettonHolding
	for _, item := range list.Array() {
		addr := firstString(item, "jetton.address", "jetton.master", "address")
		if addr == "" {
			continue
		}
		out = append(out, model.JettonHolding{
			Address:  addr,
			Raw:      firstNumber(item, 0, "balance", "quantity"),
			Decimals: int(firstNumber(item, defaultJettonDecimals, "jetton.decimals", "metadata.decimals")),
		})
	}
	return out
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Type == gjson.String {
			return v.Str
		}
	}
	return ""
}

// firstNumber returns the first present path as a number, accepting
// numeric strings. A present but non-numeric value yields def.
func firstNumber(r gjson.Result, def float64, paths ...string) float64 {
	for _, p := range paths {
		v := r.Get(p)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		switch v.Type {
		case gjson.Number:
			return v.Float()
		case gjson.String:
			if f, err := strconv.ParseFloat(v.Str, 64); err == nil {
				return f
			}
		}
		return def
	}
	return def
}

// TonCenter reads native balances from a toncenter v2 deployment.
type TonCenter struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

func NewTonCenter(baseURL, apiKey string, logger *slog.Logger) *TonCenter {
	return &TonCenter{
		client:  &http.Client{},
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
	}
}

// HasKey reports whether an API key is configured.
func (t *TonCenter) HasKey() bool { return t.apiKey != "" }

// Balance returns the native balance in TON. toncenter reports
// result.balance as a decimal string of nanoton.
func (t *TonCenter) Balance(ctx context.Context, address string) (float64, bool) {
	q := url.Values{}
	q.Set("address", address)
	if t.apiKey != "" {
		q.Set("api_key", t.apiKey)
	}
	u := t.baseURL + "/api/v2/getAddressInformation?" + q.Encode()

	doc, err := getJSON(ctx, t.client, BalanceTimeout, u, nil)
	if err != nil {
		t.logger.Debug("toncenter balance unavailable", "base", t.baseURL, "error", err)
		return 0, false
	}

	bal := doc.Get("result.balance")
	if bal.Type != gjson.String {
		t.logger.Debug("toncenter balance unavailable", "base", t.baseURL, "error", "result.balance is not a string")
		return 0, false
	}
	nano, err := strconv.ParseInt(bal.Str, 10, 64)
	if err != nil {
		t.logger.Debug("toncenter balance unavailable", "base", t.baseURL, "error", err)
		return 0, false
	}
	return model.NanoToTon(float64(nano)), true
}
