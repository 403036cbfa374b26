package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oris-services/servicedesk/jobs"
	_ "github.com/oris-services/servicedesk/testing"
)

func TestScheduleCoversEveryTask(t *testing.T) {
	cron, err := schedule(jobs.Defaults{IdempotencyRetention: 48 * time.Hour, LowStockThreshold: 3})
	require.NoError(t, err)

	types := map[string]string{}
	for _, entry := range cron {
		types[entry.Task.Type()] = entry.Spec
	}
	require.Equal(t, "0 * * * *", types[jobs.TaskIdempotencyCleanup])
	require.Contains(t, types, jobs.TaskLowStockScan)
	require.Contains(t, types, jobs.TaskDashboardRefresh)
	require.JSONEq(t, `{"retention_hours":48}`, string(cron[0].Task.Payload()))
}
