package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/oris-services/servicedesk/internal/inventory"
	jobmetrics "github.com/oris-services/servicedesk/internal/jobs"
)

// ErrUnknownTask is returned when a manual trigger names no known task.
var ErrUnknownTask = errors.New("jobs: unknown task")

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// KeyPurger removes idempotency keys older than a retention window.
type KeyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// StockScanner lists products at or below a threshold.
type StockScanner interface {
	LowStock(ctx context.Context, threshold int64) ([]inventory.StockLevel, error)
}

// CacheBumper invalidates a versioned cache namespace.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Runner holds the dependencies of every task handler.
type Runner struct {
	Keys      KeyPurger
	Stock     StockScanner
	Dashboard CacheBumper
	Defaults  Defaults
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handlers lists the task handlers for worker registration.
func (r *Runner) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskIdempotencyCleanup, Handler: r.HandleIdempotencyCleanup},
		{Type: TaskLowStockScan, Handler: r.HandleLowStockScan},
		{Type: TaskDashboardRefresh, Handler: r.HandleDashboardRefresh},
	}
}

// HandleIdempotencyCleanup purges expired idempotency keys.
func (r *Runner) HandleIdempotencyCleanup(ctx context.Context, t *asynq.Task) (resultErr error) {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if r.Keys == nil {
		return errors.New("idempotency cleanup: store not configured")
	}
	retention := time.Duration(payload.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = r.Defaults.IdempotencyRetention
	}
	if retention <= 0 {
		retention = 72 * time.Hour
	}

	tracker := r.metrics().Track(TaskIdempotencyCleanup)
	defer func() { resultErr = tracker.End(resultErr) }()

	purged, err := r.Keys.Cleanup(ctx, retention)
	if err != nil {
		r.logger(TaskIdempotencyCleanup).Error("purge keys", slog.Any("error", err))
		return err
	}
	r.metrics().AddPurgedKeys(purged)
	r.logger(TaskIdempotencyCleanup).Info("purged idempotency keys",
		slog.Int64("count", purged),
		slog.Duration("retention", retention),
	)
	return nil
}

// HandleLowStockScan records how many products are running out.
func (r *Runner) HandleLowStockScan(ctx context.Context, t *asynq.Task) (resultErr error) {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if r.Stock == nil {
		return errors.New("low stock scan: inventory not configured")
	}
	threshold := payload.Threshold
	if threshold <= 0 {
		threshold = r.Defaults.LowStockThreshold
	}

	tracker := r.metrics().Track(TaskLowStockScan)
	defer func() { resultErr = tracker.End(resultErr) }()

	logger := r.logger(TaskLowStockScan).With(slog.Int64("threshold", threshold))
	levels, err := r.Stock.LowStock(ctx, threshold)
	if err != nil {
		logger.Error("scan stock", slog.Any("error", err))
		return err
	}
	for _, level := range levels {
		logger.Warn("product low on stock",
			slog.Int64("product_id", level.ProductID),
			slog.String("name", level.Name),
			slog.Int64("quantity", level.Quantity),
		)
	}
	r.metrics().SetLowStock(len(levels))
	logger.Info("completed low stock scan", slog.Int("products", len(levels)))
	return nil
}

// HandleDashboardRefresh invalidates the cached dashboard summary.
func (r *Runner) HandleDashboardRefresh(ctx context.Context, t *asynq.Task) (resultErr error) {
	var payload DashboardRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	tracker := r.metrics().Track(TaskDashboardRefresh)
	defer func() { resultErr = tracker.End(resultErr) }()

	if r.Dashboard == nil {
		return nil
	}
	if err := r.Dashboard.Bump(ctx); err != nil {
		return fmt.Errorf("bump dashboard cache: %w", err)
	}
	r.logger(TaskDashboardRefresh).Info("dashboard cache invalidated", slog.String("reason", payload.Reason))
	return nil
}

func (r *Runner) logger(job string) *slog.Logger {
	if r.Logger != nil {
		return r.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (r *Runner) metrics() *jobmetrics.Metrics {
	if r.Metrics != nil {
		return r.Metrics
	}
	return defaultJobMetrics
}
