package provisioning

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aevon-lab/tenantflow/internal/core/workflow"
)

// maxConsecutiveClaims bounds one tick so a busy queue cannot pin it.
const maxConsecutiveClaims = 100

// SchedulerOptions tunes the polling loop.
type SchedulerOptions struct {
	PollInterval time.Duration
	Lease        time.Duration
	BatchSize    int
	Retention    time.Duration // terminal runs older than this are purged; 0 keeps them
}

func (o SchedulerOptions) normalized() SchedulerOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.Lease <= 0 {
		o.Lease = 2 * time.Minute
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	return o
}

// Scheduler claims due runs and advances each by one step, persisting after
// every step. A restarted process resumes from the persisted records.
type Scheduler struct {
	store  workflow.Store
	engine *Engine
	opts   SchedulerOptions
	wake   chan struct{}
	now    func() time.Time
}

// NewScheduler creates a scheduler over store.
func NewScheduler(store workflow.Store, engine *Engine, opts SchedulerOptions) *Scheduler {
	return &Scheduler{
		store:  store,
		engine: engine,
		opts:   opts.normalized(),
		wake:   make(chan struct{}, 1),
		now:    engine.now,
	}
}

// Wake asks the loop to tick now instead of at the next interval.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start runs the loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	slog.Info("[Saga] Starting provisioning scheduler",
		"poll_interval", s.opts.PollInterval,
		"lease", s.opts.Lease,
		"batch_size", s.opts.BatchSize)

	s.Tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
			s.purge(ctx)
		case <-s.wake:
			s.Tick(ctx)
		case <-ctx.Done():
			slog.Info("[Saga] Stopping scheduler (context cancelled)")
			return nil
		}
	}
}

// Tick advances every due run, re-claiming until nothing is due, and returns
// the number of transitions performed.
func (s *Scheduler) Tick(ctx context.Context) int {
	advanced := 0

	for batch := 0; batch < maxConsecutiveClaims; batch++ {
		if ctx.Err() != nil {
			return advanced
		}

		runs, err := s.store.ClaimRunnable(ctx, s.now(), s.opts.Lease, s.opts.BatchSize)
		if err != nil {
			slog.Error("[Saga] Failed to claim runs", "error", err)
			return advanced
		}
		if len(runs) == 0 {
			return advanced
		}

		for _, run := range runs {
			s.engine.Advance(ctx, run)
			if err := s.store.Save(ctx, run); err != nil {
				if errors.Is(err, workflow.ErrStaleRun) {
					slog.Warn("[Saga] Run changed while advancing, dropping transition", "run_id", run.ID)
					continue
				}
				slog.Error("[Saga] Failed to persist run", "run_id", run.ID, "step", run.Step, "error", err)
				continue
			}
			advanced++
		}
	}

	slog.Warn("[Saga] Max consecutive claims reached, pausing",
		"max_claims", maxConsecutiveClaims,
		"note", "Will resume on next tick")
	return advanced
}

func (s *Scheduler) purge(ctx context.Context) {
	if s.opts.Retention <= 0 {
		return
	}
	n, err := s.store.PurgeTerminal(ctx, s.now().Add(-s.opts.Retention))
	if err != nil {
		slog.Error("[Saga] Failed to purge finished runs", "error", err)
		return
	}
	if n > 0 {
		slog.Info("[Saga] Purged finished runs", "count", n)
	}
}
