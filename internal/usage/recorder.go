package usage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/checkvibe/gatekeeper/internal/clock"
	"github.com/checkvibe/gatekeeper/internal/config"
	"github.com/checkvibe/gatekeeper/internal/observability/metrics"
	usagedomain "github.com/checkvibe/gatekeeper/internal/usage/domain"
	"github.com/checkvibe/gatekeeper/internal/usage/liveevents"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultBuffer = 1024
	maxBatch      = 64
)

type RecorderParams struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    usagedomain.Repository
	Clock   clock.Clock          `optional:"true"`
	Metrics *metrics.GateMetrics `optional:"true"`
	Hub     *liveevents.Hub      `optional:"true"`
}

// Recorder appends usage entries from a bounded queue drained by one
// background writer. Record never blocks; entries are dropped when the queue
// is full and write failures are only logged.
type Recorder struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    usagedomain.Repository
	clock   clock.Clock
	metrics *metrics.GateMetrics
	hub     *liveevents.Hub

	mu      sync.RWMutex
	closed  bool
	started bool
	queue   chan usagedomain.Entry
	done    chan struct{}
}

func NewRecorder(p RecorderParams) *Recorder {
	size := p.Config.UsageLogBuffer
	if size <= 0 {
		size = defaultBuffer
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &Recorder{
		db:      p.DB,
		log:     p.Log.Named("usage.recorder"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   clk,
		metrics: p.Metrics,
		hub:     p.Hub,
		queue:   make(chan usagedomain.Entry, size),
		done:    make(chan struct{}),
	}
}

// Start launches the writer; calling it twice is a no-op.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true
	go r.run()
}

// Record enqueues entry and reports whether it was accepted.
func (r *Recorder) Record(entry usagedomain.Entry) bool {
	if entry.KeyID == 0 || entry.UserID == 0 {
		return false
	}
	if entry.ID == 0 {
		entry.ID = r.genID.Generate()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.clock.Now().UTC()
	}
	entry.Method = strings.ToUpper(entry.Method)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.queue <- entry:
		r.metrics.SetUsageLogQueueDepth(len(r.queue))
		r.publish(entry)
		return true
	default:
		r.metrics.ObserveUsageLog(metrics.UsageLogOutcomeBufferFull)
		r.log.Warn("usage log buffer full, entry dropped",
			zap.String("key_id", entry.KeyID.String()),
			zap.String("endpoint", entry.Endpoint),
		)
		return false
	}
}

func (r *Recorder) publish(entry usagedomain.Entry) {
	if r.hub == nil {
		return
	}
	r.hub.Publish(entry.UserID.String(), liveevents.LiveEvent{
		KeyID:      entry.KeyID.String(),
		Endpoint:   entry.Endpoint,
		Method:     entry.Method,
		StatusCode: entry.StatusCode,
		IPAddress:  entry.IPAddress,
		RecordedAt: entry.CreatedAt.Format(time.RFC3339),
	})
}

// Close stops accepting entries and waits for queued ones to be written.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	close(r.queue)
	r.mu.Unlock()

	if !started {
		r.drain(ctx)
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	r.drain(context.Background())
}

func (r *Recorder) drain(ctx context.Context) {
	batch := make([]usagedomain.Entry, 0, maxBatch)
	for entry := range r.queue {
		batch = append(batch[:0], entry)
	fill:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-r.queue:
				if !ok {
					break fill
				}
				batch = append(batch, next)
			default:
				break fill
			}
		}
		r.metrics.SetUsageLogQueueDepth(len(r.queue))
		r.write(ctx, batch)
	}
}

func (r *Recorder) write(ctx context.Context, batch []usagedomain.Entry) {
	if err := r.repo.InsertBatch(ctx, r.db, batch); err != nil {
		for range batch {
			r.metrics.ObserveUsageLog(metrics.UsageLogOutcomeFailed)
		}
		r.log.Error("usage log write failed", zap.Int("entries", len(batch)), zap.Error(err))
		return
	}
	for range batch {
		r.metrics.ObserveUsageLog(metrics.UsageLogOutcomeWritten)
	}
}
