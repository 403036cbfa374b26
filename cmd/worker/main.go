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

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oris-services/servicedesk/internal/app"
	"github.com/oris-services/servicedesk/internal/inventory"
	jobmetrics "github.com/oris-services/servicedesk/internal/jobs"
	"github.com/oris-services/servicedesk/internal/platform/cache"
	"github.com/oris-services/servicedesk/internal/platform/db"
	"github.com/oris-services/servicedesk/internal/shared"
	"github.com/oris-services/servicedesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	defaults := jobs.Defaults{
		IdempotencyRetention: cfg.IdempotencyTTL,
		LowStockThreshold:    int64(cfg.LowStockThreshold),
	}
	runner := &jobs.Runner{
		Keys:      shared.NewIdempotencyStore(pool),
		Stock:     inventory.NewService(inventory.NewRepository(pool), nil, nil, nil, logger),
		Dashboard: cache.NewVersioned(redisClient, "dashboard", cfg.DashboardCacheTTL),
		Defaults:  defaults,
		Logger:    logger,
		Metrics:   jobmetrics.NewMetrics(nil),
	}

	cron, err := schedule(defaults)
	if err != nil {
		logger.Error("build cron tasks", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  runner.Handlers(),
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

// schedule registers the periodic tasks: key cleanup hourly, the low stock
// scan every morning and a dashboard refresh every fifteen minutes.
func schedule(defaults jobs.Defaults) ([]jobs.CronRegistration, error) {
	cleanup, err := jobs.NewIdempotencyCleanupTask(defaults.IdempotencyRetention)
	if err != nil {
		return nil, err
	}
	lowStock, err := jobs.NewLowStockScanTask(defaults.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	refresh, err := jobs.NewDashboardRefreshTask("cron")
	if err != nil {
		return nil, err
	}
	retry := []asynq.Option{asynq.MaxRetry(3)}
	return []jobs.CronRegistration{
		{Spec: "0 * * * *", Task: cleanup, Options: retry},
		{Spec: "0 7 * * *", Task: lowStock, Options: retry},
		{Spec: "*/15 * * * *", Task: refresh, Options: retry},
	}, nil
}
