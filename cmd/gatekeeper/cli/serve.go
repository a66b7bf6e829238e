package cli

import (
	"github.com/checkvibe/gatekeeper/internal/clock"
	"github.com/checkvibe/gatekeeper/internal/config"
	"github.com/checkvibe/gatekeeper/internal/migration"
	"github.com/checkvibe/gatekeeper/internal/observability"
	"github.com/checkvibe/gatekeeper/internal/server"
	"github.com/checkvibe/gatekeeper/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Start the HTTP API. Configuration is read from the environment (and .env when present).",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				config.Module,
				observability.Module,
				db.Module,
				clock.Module,
				migration.Module,
				server.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}
