package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	infisical "github.com/infisical/go-sdk"

	"github.com/web3-frozen/ton-storefront/internal/upstream"
)

type Config struct {
	Port           string
	FrontendOrigin string
	LogLevel       slog.Level

	TonAPIKey       string
	TonCenterAPIKey string

	CoinGeckoURL        string
	TonAPIURL           string
	TonAPITestnetURL    string
	TonCenterURL        string
	TonCenterTestnetURL string
	ERAPIURL            string
	ExchangeRateHostURL string

	RateLimitRPS   float64
	RateLimitBurst int
	WarmInterval   time.Duration

	// Used by tonctl.
	APIBaseURL    string
	RedisURL      string
	RedisPassword string
}

func Load() Config {
	cfg := Config{
		Port:           envOr("PORT", "8080"),
		FrontendOrigin: envOr("FRONTEND_ORIGIN", "*"),
		LogLevel:       parseLevel(os.Getenv("LOG_LEVEL")),

		TonAPIKey:       os.Getenv("TONAPI_KEY"),
		TonCenterAPIKey: os.Getenv("TONCENTER_API_KEY"),

		CoinGeckoURL:        envOr("COINGECKO_URL", upstream.CoinGeckoAPI),
		TonAPIURL:           envOr("TONAPI_URL", upstream.TonAPIMainnet),
		TonAPITestnetURL:    envOr("TONAPI_TESTNET_URL", upstream.TonAPITestnet),
		TonCenterURL:        envOr("TONCENTER_URL", upstream.TonCenterMainnet),
		TonCenterTestnetURL: envOr("TONCENTER_TESTNET_URL", upstream.TonCenterTestnet),
		ERAPIURL:            envOr("ER_API_URL", upstream.ERAPIURL),
		ExchangeRateHostURL: envOr("EXCHANGERATE_HOST_URL", upstream.ExchangeRateHostURL),

		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 40),
		WarmInterval:   envDuration("WARM_INTERVAL", 25*time.Second),

		APIBaseURL:    envOr("API_BASE_URL", "http://localhost:8080"),
		RedisURL:      os.Getenv("REDIS_URL"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}

	// If Infisical credentials are available, fetch secrets from Infisical
	clientID := os.Getenv("INFISICAL_CLIENT_ID")
	clientSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		loadFromInfisical(&cfg, clientID, clientSecret)
	}

	return cfg
}

// secretTargets lists the config fields that may be filled from Infisical.
func secretTargets(cfg *Config) map[string]*string {
	return map[string]*string{
		"TONAPI_KEY":        &cfg.TonAPIKey,
		"TONCENTER_API_KEY": &cfg.TonCenterAPIKey,
		"REDIS_PASSWORD":    &cfg.RedisPassword,
	}
}

func loadFromInfisical(cfg *Config, clientID, clientSecret string) {
	siteURL := envOr("INFISICAL_SITE_URL", "https://app.infisical.com")
	projectID := os.Getenv("INFISICAL_PROJECT_ID")
	envSlug := envOr("INFISICAL_ENV", "prod")

	if projectID == "" {
		slog.Warn("INFISICAL_PROJECT_ID not set, skipping Infisical")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := infisical.NewInfisicalClient(ctx, infisical.Config{
		SiteUrl:          siteURL,
		AutoTokenRefresh: false,
	})

	_, err := client.Auth().UniversalAuthLogin(clientID, clientSecret)
	if err != nil {
		slog.Error("infisical auth failed", "error", err)
		return
	}

	for key, target := range secretTargets(cfg) {
		if *target != "" {
			continue // env var already set, skip
		}
		secret, err := client.Secrets().Retrieve(infisical.RetrieveSecretOptions{
			SecretKey:   key,
			Environment: envSlug,
			ProjectID:   projectID,
			SecretPath:  "/",
		})
		if err != nil {
			slog.Warn("failed to retrieve secret from infisical", "key", key, "error", err)
			continue
		}
		*target = secret.SecretValue
		slog.Info("loaded secret from infisical", "key", key)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// envDuration accepts Go durations ("30s") or bare seconds ("30").
// "0" disables whatever the duration drives.
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	slog.Warn("invalid duration, using default", "key", key, "value", raw)
	return fallback
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
