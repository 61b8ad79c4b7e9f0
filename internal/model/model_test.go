package model

import (
	"reflect"
	"testing"
	"time"
)

func TestParseCurrencies(t *testing.T) {
	tests := []struct {
		raw  string
		want []Fiat
	}{
		{"usd", []Fiat{USD}},
		{"usd,xyz", []Fiat{USD}},
		{"uzs,eur,usd,eur", []Fiat{EUR, USD, UZS}},
		{"USD", nil},
		{"", nil},
		{" rub , usd", []Fiat{RUB, USD}},
	}
	for _, tt := range tests {
		got := ParseCurrencies(tt.raw)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseCurrencies(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestCurrencyKey(t *testing.T) {
	if got := CurrencyKey(ParseCurrencies("usd,eur")); got != "eur,usd" {
		t.Errorf("CurrencyKey = %q, want %q", got, "eur,usd")
	}
	if got := CurrencyKey(nil); got != "" {
		t.Errorf("CurrencyKey(nil) = %q, want empty", got)
	}
}

func TestClampDays(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {-5, 1}, {1, 1}, {30, 30}, {365, 365}, {9999, 365},
	}
	for _, tt := range tests {
		if got := ClampDays(tt.in); got != tt.want {
			t.Errorf("ClampDays(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	if got := NormalizeAddress("EQ:abc-1"); got != "EQabc-1" {
		t.Errorf("NormalizeAddress = %q, want %q", got, "EQabc-1")
	}
	if got := NormalizeAddress("0:ab/cd+ef_g"); got != "0abcdef_g" {
		t.Errorf("NormalizeAddress = %q, want %q", got, "0abcdef_g")
	}
}

func TestFindJetton(t *testing.T) {
	holdings := []JettonHolding{
		{Address: "EQother", Raw: 5, Decimals: 0},
		{Address: "EQ:abc-1", Raw: 1_500_000_000, Decimals: 9},
		{Address: "EQusdt", Raw: 2_000_000, Decimals: 6},
	}
	if got := FindJetton(holdings, "EQabc-1"); got != 1.5 {
		t.Errorf("FindJetton(EQabc-1) = %v, want 1.5", got)
	}
	if got := FindJetton(holdings, "EQusdt"); got != 2 {
		t.Errorf("FindJetton(EQusdt) = %v, want 2", got)
	}
	if got := FindJetton(holdings, "EQmissing"); got != 0 {
		t.Errorf("FindJetton(missing) = %v, want 0", got)
	}
	if got := FindJetton(nil, "EQabc-1"); got != 0 {
		t.Errorf("FindJetton(nil) = %v, want 0", got)
	}
}

func TestFallbackPrices(t *testing.T) {
	got := FallbackPrices([]Fiat{EUR, USD})
	want := Prices{USD: 2.5, EUR: 2.3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FallbackPrices = %v, want %v", got, want)
	}
	if got := FallbackPrices(nil); len(got) != 0 {
		t.Errorf("FallbackPrices(nil) = %v, want empty", got)
	}
}

func TestSyntheticHistory(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	h := SyntheticHistory(2, now)

	if len(h) != 49 {
		t.Fatalf("len = %d, want 49", len(h))
	}
	if h[len(h)-1].T != now.UnixMilli() {
		t.Errorf("last point = %d, want %d", h[len(h)-1].T, now.UnixMilli())
	}
	for i, p := range h {
		if p.P < 2.25 || p.P >= 2.75 {
			t.Errorf("point %d price %v outside ±10%% of 2.5", i, p.P)
		}
		if i > 0 && p.T-h[i-1].T != time.Hour.Milliseconds() {
			t.Errorf("point %d not one hour after previous", i)
		}
	}

	again := SyntheticHistory(2, now)
	if !reflect.DeepEqual(h, again) {
		t.Error("SyntheticHistory should be deterministic for the same inputs")
	}
}

func TestNanoToTon(t *testing.T) {
	if got := NanoToTon(1_234_000_000); got != 1.234 {
		t.Errorf("NanoToTon = %v, want 1.234", got)
	}
}
