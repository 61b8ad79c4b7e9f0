package upstream

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"
)

const (
	ERAPIURL            = "https://open.er-api.com/v6/latest/USD"
	ExchangeRateHostURL = "https://api.exchangerate.host/latest?base=USD&symbols=UZS"
)

// FXRate reads the USD→UZS rate from any provider that reports it at
// rates.UZS.
type FXRate struct {
	name   string
	client *http.Client
	url    string
	logger *slog.Logger
}

func NewFXRate(name, url string, logger *slog.Logger) *FXRate {
	return &FXRate{
		name:   name,
		client: &http.Client{},
		url:    url,
		logger: logger,
	}
}

func (f *FXRate) Name() string  { return f.name }
func (f *FXRate) Enabled() bool { return true }

// Fetch returns how many UZS one USD buys.
func (f *FXRate) Fetch(ctx context.Context, _ struct{}) (float64, bool) {
	doc, err := getJSON(ctx, f.client, FXTimeout, f.url, nil)
	if err != nil {
		f.logger.Debug("fx rate unavailable", "source", f.name, "error", err)
		return 0, false
	}
	rate := doc.Get("rates.UZS")
	if rate.Type != gjson.Number {
		f.logger.Debug("fx rate unavailable", "source", f.name, "error", "rates.UZS is not a number")
		return 0, false
	}
	return rate.Float(), true
}
