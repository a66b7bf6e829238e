package cli

import (
	"context"
	"fmt"

	"github.com/checkvibe/gatekeeper/internal/config"
	"github.com/checkvibe/gatekeeper/internal/migration"
	"github.com/checkvibe/gatekeeper/internal/observability"
	"github.com/checkvibe/gatekeeper/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var conn *gorm.DB
			app := fx.New(
				config.Module,
				observability.Module,
				db.Module,
				fx.Populate(&conn),
				fx.NopLogger,
			)
			ctx, cancel := context.WithTimeout(cmd.Context(), appTimeout)
			defer cancel()
			if err := app.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = app.Stop(context.Background()) }()

			if err := migration.Run(conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}
