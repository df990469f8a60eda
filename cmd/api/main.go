package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/bluerock/sales-hub/internal/agents"
	"github.com/bluerock/sales-hub/internal/api/router"
	appconfig "github.com/bluerock/sales-hub/internal/config"
	"github.com/bluerock/sales-hub/internal/observability/metrics"
	"github.com/bluerock/sales-hub/internal/requests"
	"github.com/bluerock/sales-hub/internal/stats"
	"github.com/bluerock/sales-hub/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sales-hub API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewIntakeMetrics(nil)

	var (
		requestRepo requests.Repository
		directory   agents.Directory
		statsSvc    *stats.Service
	)

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		requestRepo = requests.NewPostgresRepository(pool)
		directory = agents.NewPostgresDirectory(pool)

		statsRepo := stats.NewRepository(pool)
		statsSvc = stats.NewService(statsRepo, buildStatsCache(ctx, cfg, logger), logger, m)
	} else {
		// Development fallback keeps the API runnable without postgres.
		logger.Warn("DATABASE_URL not set, using in-memory store")
		requestRepo = requests.NewInMemoryRepository()
		directory = agents.NewInMemoryDirectory()
	}

	requestSvc := requests.NewService(requestRepo, directory, logger, m)
	requestsHandler := requests.NewHandler(requestSvc, logger)

	routerCfg := &router.Config{
		Logger:          logger,
		RequestsHandler: requestsHandler,
		AdminAuthSecret: cfg.AdminJWTSecret,
		MetricsHandler:  promhttp.Handler(),
		SubmitRateLimit: float64(cfg.SubmitRateLimit),
		SubmitRateBurst: cfg.SubmitRateBurst,
	}
	if statsSvc != nil {
		routerCfg.StatsHandler = stats.NewHandler(statsSvc, logger)
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// buildStatsCache returns a snapshot cache, or nil when redis is not
// configured or unreachable. Stats reads fall through to postgres either way.
func buildStatsCache(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *stats.Cache {
	if cfg.RedisAddr == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, stats cache disabled", "error", err)
		return nil
	}
	return stats.NewCache(client, cfg.StatsCacheTTL)
}
