package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/web3-frozen/ton-storefront/internal/catalog"
	"github.com/web3-frozen/ton-storefront/internal/config"
	"github.com/web3-frozen/ton-storefront/internal/handler"
	"github.com/web3-frozen/ton-storefront/internal/market"
	"github.com/web3-frozen/ton-storefront/internal/middleware"
	"github.com/web3-frozen/ton-storefront/internal/warmer"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	cat, err := catalog.Load()
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded", "collections", len(cat.Collections()))

	if cfg.TonAPIKey == "" {
		logger.Warn("TONAPI_KEY not set, mainnet balances use the public endpoint")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := market.New(cfg, logger)

	engine := warmer.NewEngine(cfg.WarmInterval, logger)
	warmer.RegisterQuotes(engine, m)
	go engine.Run(ctx)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health())
	r.Get("/readyz", handler.Ready(func(context.Context) error {
		_, err := catalog.Load()
		return err
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Handler)

		r.Get("/ton-price", handler.TonPrice(m))
		r.Get("/ton-price-history", handler.TonPriceHistory(m))
		r.Get("/ton-prices", handler.TonPrices(m))
		r.Get("/usd-to-uzs", handler.UsdToUzs(m))
		r.Get("/balance", handler.Balance(m))
		r.Get("/jetton-balance", handler.JettonBalance(m))

		r.Get("/collections", handler.ListCollections(cat))
		r.Get("/collections/{slug}", handler.GetCollection(cat))
		r.Get("/nfts/{id}", handler.GetNFT(cat))
		r.Get("/transfer-intent", handler.TransferIntent(cat, time.Now))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "warm_interval", cfg.WarmInterval.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
