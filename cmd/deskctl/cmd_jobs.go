package main

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/oris-services/servicedesk/internal/app"
	"github.com/oris-services/servicedesk/jobs"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	cmd.AddCommand(newJobsTriggerCmd(), newJobsStatsCmd())
	return cmd
}

func newJobsTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "trigger <task>",
		Short:     "Enqueue a task with default payload",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{jobs.TaskIdempotencyCleanup, jobs.TaskLowStockScan, jobs.TaskDashboardRefresh},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := jobs.NewTask(args[0], jobs.Defaults{}); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			if err != nil {
				return err
			}
			defer client.Close()
			info, err := client.Trigger(cmd.Context(), args[0], jobs.Defaults{
				IdempotencyRetention: cfg.IdempotencyTTL,
				LowStockThreshold:    int64(cfg.LowStockThreshold),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
}

func newJobsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print default queue statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer inspector.Close()
			stats, err := jobs.Stats(inspector)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
