package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/checkvibe/gatekeeper/internal/clock"
	"github.com/checkvibe/gatekeeper/internal/usage/repository"
	"github.com/checkvibe/gatekeeper/internal/usage/retention"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newUsageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Maintain the API key usage log",
	}
	cmd.AddCommand(newUsagePruneCmd())
	return cmd
}

func newUsagePruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete usage log entries older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--older-than-days must be at least 1")
			}

			var (
				conn *gorm.DB
				log  *zap.Logger
				clk  clock.Clock
			)
			return withApp(func(ctx context.Context) error {
				worker := retention.NewWorker(retention.Params{
					DB:     conn,
					Log:    log,
					Repo:   repository.Provide(),
					Config: retention.Config{MaxAge: time.Duration(days) * 24 * time.Hour},
					Clock:  clk,
				})
				deleted, err := worker.RunOnce(ctx)
				if err != nil {
					return fmt.Errorf("prune usage log: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d usage log entries older than %d days.\n", deleted, days)
				return nil
			}, &conn, &log, &clk)
		},
	}

	cmd.Flags().IntVar(&days, "older-than-days", 90, "Delete entries older than this many days")
	return cmd
}
