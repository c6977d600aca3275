package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/workdesk/internal/app"
	"github.com/odyssey-erp/workdesk/internal/platform/db"
)

var rootCmd = &cobra.Command{
	Use:           "workdeskctl",
	Short:         "Operator tools for Workdesk",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "workdeskctl: %v\n", err)
		os.Exit(1)
	}
}

func loadRuntime(ctx context.Context) (*app.Config, *slog.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, app.NewLogger(cfg), nil
}

func openPool(ctx context.Context, cfg *app.Config) (*pgxpool.Pool, error) {
	return db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2})
}
