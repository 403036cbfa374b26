package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/oris-services/servicedesk/internal/app"
	"github.com/oris-services/servicedesk/internal/platform/db"
	"github.com/oris-services/servicedesk/internal/shared"
	"github.com/oris-services/servicedesk/internal/users"
	"github.com/oris-services/servicedesk/migrations"
)

// bootDB loads config and opens the database pool.
func bootDB(ctx context.Context) (*app.Config, *pgxpool.Pool, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, pool, err := bootDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			applied, err := db.Migrate(cmd.Context(), pool, migrations.FS)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
			}
			return nil
		},
	}
}

func newSeedAdminCmd() *cobra.Command {
	var in users.CreateInput
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Role = string(shared.RoleAdmin)
			if len(in.Password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}
			cfg, pool, err := bootDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			logger := app.NewLogger(cfg)
			svc := users.NewService(users.NewRepository(pool), shared.NewAuditLogger(pool), logger)
			user, err := svc.Create(cmd.Context(), shared.Actor{}, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created with id %d\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&in.Name, "name", "Administrador", "display name")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
