package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bluerock/sales-hub/internal/config"
	"github.com/bluerock/sales-hub/internal/dashboard"
	"github.com/bluerock/sales-hub/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DashboardToken == "" {
		logger.Error("dashboard worker requires DASHBOARD_TOKEN")
		os.Exit(1)
	}

	client := dashboard.NewClient(nil, cfg.DashboardBaseURL, cfg.DashboardToken)
	renderer := dashboard.NewTextRenderer(os.Stdout)
	poller := dashboard.NewPoller(client, renderer, logger).
		WithFetchInterval(cfg.DashboardFetchEvery).
		WithRelabelInterval(cfg.DashboardRelabelEvery)

	go poller.Run(ctx)
	logger.Info("dashboard worker started",
		"base_url", cfg.DashboardBaseURL,
		"fetch_interval", cfg.DashboardFetchEvery.String(),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("dashboard worker stopping")
	cancel()
}
