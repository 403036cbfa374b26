package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// QueueDefault is the default queue name for background jobs.
const QueueDefault = "default"

// Task types handled by the worker.
const (
	TaskIdempotencyCleanup = "idempotency:cleanup"
	TaskLowStockScan       = "inventory:low_stock_scan"
	TaskDashboardRefresh   = "dashboard:refresh"
)

// IdempotencyCleanupPayload configures how old a key must be before it is purged.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// LowStockScanPayload carries the threshold to scan with. Zero uses the worker default.
type LowStockScanPayload struct {
	Threshold int64 `json:"threshold"`
}

// DashboardRefreshPayload records why the refresh was requested.
type DashboardRefreshPayload struct {
	Reason string `json:"reason"`
}

// NewIdempotencyCleanupTask builds the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	hours := int(retention / time.Hour)
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: hours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

// NewLowStockScanTask builds the low stock scan task.
func NewLowStockScanTask(threshold int64) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{Threshold: threshold})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// NewDashboardRefreshTask builds the dashboard cache refresh task.
func NewDashboardRefreshTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "manual"
	}
	body, err := json.Marshal(DashboardRefreshPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardRefresh, body, asynq.Queue(QueueDefault)), nil
}

// NewTask builds a task by type using default payloads. It backs manual triggers.
func NewTask(name string, defaults Defaults) (*asynq.Task, error) {
	switch name {
	case TaskIdempotencyCleanup:
		return NewIdempotencyCleanupTask(defaults.IdempotencyRetention)
	case TaskLowStockScan:
		return NewLowStockScanTask(defaults.LowStockThreshold)
	case TaskDashboardRefresh:
		return NewDashboardRefreshTask("manual")
	default:
		return nil, ErrUnknownTask
	}
}

// Defaults carries configuration used when a task payload omits a value.
type Defaults struct {
	IdempotencyRetention time.Duration
	LowStockThreshold    int64
}
