package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/caremesh/erpbridge/internal/api/router"
	appconfig "github.com/caremesh/erpbridge/internal/config"
	"github.com/caremesh/erpbridge/internal/erp/registry"
	"github.com/caremesh/erpbridge/internal/extraction"
	"github.com/caremesh/erpbridge/internal/insurance"
	"github.com/caremesh/erpbridge/internal/integration"
	"github.com/caremesh/erpbridge/internal/observability/metrics"
	"github.com/caremesh/erpbridge/internal/refdata"
	"github.com/caremesh/erpbridge/internal/schedule"
	"github.com/caremesh/erpbridge/internal/scheduling"
	"github.com/caremesh/erpbridge/pkg/logging"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting erpbridge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, refdata cache degrades to vendor-direct reads", "error", err)
		}
	}

	promRegistry := prometheus.NewRegistry()
	integrationMetrics := metrics.NewIntegrationMetrics(promRegistry)

	// Stores and domain services
	integrations := integration.NewStore(pool)
	schedules := schedule.NewStore(pool)
	runs := extraction.NewStore(pool)

	adapters := registry.New(registry.Options{
		DefaultTimeout: cfg.VendorTimeout,
		Metrics:        integrationMetrics,
		Tracer:         otel.Tracer("erpbridge"),
	})

	dispatcher := scheduling.NewService(adapters, schedules, logger)
	tracker := extraction.NewTracker(runs, schedules, adapters, integrationMetrics, logger.With("component", "extraction"))
	catalogs := refdata.NewCache(rdb, adapters, cfg.RefdataTTL, logger)

	carriers := map[insurance.Provider]insurance.Carrier{}
	if cfg.VidacareBaseURL != "" {
		carriers[insurance.ProviderVidacare] = insurance.NewVidacareClient(
			cfg.VidacareBaseURL, cfg.VidacareToken, nil, cfg.InsuranceTimeout)
	}
	if cfg.PlanmedBaseURL != "" {
		carriers[insurance.ProviderPlanmed] = insurance.NewPlanmedClient(
			cfg.PlanmedBaseURL, cfg.PlanmedClientID, cfg.PlanmedSecret, nil, cfg.InsuranceTimeout)
	}
	lookup := insurance.NewLookup(carriers)

	r := router.New(&router.Config{
		Logger:         logger,
		Scheduling:     scheduling.NewHandler(integrations, dispatcher, logger),
		Extractions:    extraction.NewHandler(integrations, tracker, runs, logger),
		Schedules:      schedule.NewHandler(schedules, logger),
		Refdata:        refdata.NewHandler(integrations, catalogs, logger),
		Insurance:      insurance.NewHandler(lookup, logger),
		MetricsHandler: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
