package retention

import (
	"context"
	"time"

	"github.com/checkvibe/gatekeeper/internal/clock"
	usagedomain "github.com/checkvibe/gatekeeper/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Repo   usagedomain.Repository
	Config Config      `optional:"true"`
	Clock  clock.Clock `optional:"true"`
}

// Worker deletes usage log entries older than the configured age.
type Worker struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  usagedomain.Repository
	clock clock.Clock
	cfg   Config
}

func NewWorker(p Params) *Worker {
	clk := p.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &Worker{
		db:    p.DB,
		log:   p.Log.Named("usage.retention"),
		repo:  p.Repo,
		clock: clk,
		cfg:   p.Config.withDefaults(),
	}
}

func (w *Worker) Enabled() bool {
	return w.cfg.MaxAge > 0
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Warn("usage retention run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce prunes expired entries batch by batch until none remain or the run
// times out. It returns the number of deleted rows.
func (w *Worker) RunOnce(parentCtx context.Context) (int64, error) {
	if !w.Enabled() {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(parentCtx, w.cfg.RunTimeout)
	defer cancel()

	cutoff := w.clock.Now().UTC().Add(-w.cfg.MaxAge)
	var total int64
	for {
		deleted, err := w.repo.DeleteBefore(ctx, w.db, cutoff, w.cfg.BatchSize)
		total += deleted
		if err != nil {
			return total, err
		}
		if deleted < int64(w.cfg.BatchSize) {
			break
		}
	}

	if total > 0 {
		w.log.Info("pruned usage log entries",
			zap.Int64("deleted", total),
			zap.Time("cutoff", cutoff),
		)
	}
	return total, nil
}
