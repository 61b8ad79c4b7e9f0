// Command tonctl queries the storefront API from a terminal and prepares
// NFT purchases for a wallet to sign.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/web3-frozen/ton-storefront/internal/client"
	"github.com/web3-frozen/ton-storefront/internal/config"
)

func main() {
	os.Exit(tonctl())
}

func tonctl() int {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	var store client.Store = client.NopStore{}
	if cfg.RedisURL != "" {
		rs, err := client.NewRedisStore(cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			logger.Warn("redis unavailable, mirroring in memory only", "error", err)
		} else {
			defer rs.Close()
			store = rs
		}
	}

	c, err := client.New(strings.TrimRight(cfg.APIBaseURL, "/"), client.NewMirrorCache(store, logger, nil), logger)
	if err != nil {
		logger.Error("failed to create client", "error", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return run(ctx, c, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}
