package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/checkvibe/gatekeeper/internal/apikey"
	"github.com/checkvibe/gatekeeper/internal/audit"
	auditdomain "github.com/checkvibe/gatekeeper/internal/audit/domain"
	"github.com/checkvibe/gatekeeper/internal/auth"
	"github.com/checkvibe/gatekeeper/internal/clock"
	"github.com/checkvibe/gatekeeper/internal/config"
	"github.com/checkvibe/gatekeeper/internal/migration"
	"github.com/checkvibe/gatekeeper/internal/observability"
	"github.com/checkvibe/gatekeeper/pkg/db"
	"go.uber.org/fx"
)

const appTimeout = 30 * time.Second

// withApp starts the storage and domain modules without the HTTP server,
// fills targets via fx.Populate and runs fn before stopping everything.
func withApp(fn func(ctx context.Context) error, targets ...any) error {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		migration.Module,
		auth.Module,
		apikey.Module,
		audit.Module,
		fx.Populate(targets...),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), appTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), appTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	ctx, cancelRun := context.WithTimeout(context.Background(), appTimeout)
	defer cancelRun()
	return fn(ctx)
}

// recordCLIAudit attributes an operator action to the system actor. A failed
// audit write is reported but does not undo the action.
func recordCLIAudit(ctx context.Context, audits auditdomain.Service, entry auditdomain.Entry) {
	if audits == nil {
		return
	}
	entry.ActorType = auditdomain.ActorTypeSystem
	entry.ActorID = "cli"
	if err := audits.AuditLog(ctx, entry); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log write failed: %v\n", err)
	}
}
