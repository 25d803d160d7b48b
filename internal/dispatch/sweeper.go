package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/aevon-lab/tenantflow/internal/core/storage"
)

// maxConsecutiveBatches bounds one drain so a flood of stuck events cannot pin it.
const maxConsecutiveBatches = 100

// Sweeper re-dispatches events whose dispatch was interrupted, for example by a
// crash between append and dispatch or a database error. Events failing with a
// fatal error are logged and left unprocessed for inspection.
type Sweeper struct {
	interval   time.Duration
	batchSize  int
	store      storage.EventStore
	dispatcher *Dispatcher
}

// NewSweeper creates a redelivery sweeper.
func NewSweeper(interval time.Duration, batchSize int, store storage.EventStore, dispatcher *Dispatcher) *Sweeper {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Sweeper{
		interval:   interval,
		batchSize:  batchSize,
		store:      store,
		dispatcher: dispatcher,
	}
}

// Start drains the backlog once, then on every tick until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Sweeper] Starting redelivery sweeper",
		"interval", s.interval,
		"batch_size", s.batchSize)

	s.Drain(ctx)

	for {
		select {
		case <-ticker.C:
			s.Drain(ctx)
		case <-ctx.Done():
			slog.Info("[Sweeper] Stopping (context cancelled)")
			return nil
		}
	}
}

// DrainStats summarises one drain.
type DrainStats struct {
	Seen      int
	Applied   int
	Fatal     int
	Transient int
}

// Drain walks every unprocessed event once, oldest first, and dispatches it.
func (s *Sweeper) Drain(ctx context.Context) DrainStats {
	var (
		stats  DrainStats
		cursor int64
	)

	for batch := 0; batch < maxConsecutiveBatches; batch++ {
		if ctx.Err() != nil {
			slog.Info("[Sweeper] Drain interrupted by context cancellation", "seen", stats.Seen)
			return stats
		}

		events, err := s.store.ListUnprocessed(ctx, cursor, s.batchSize)
		if err != nil {
			slog.Error("[Sweeper] Failed to list unprocessed events", "error", err)
			return stats
		}

		for _, evt := range events {
			cursor = evt.Seq
			stats.Seen++

			err := s.dispatcher.Dispatch(ctx, evt)
			switch {
			case err == nil:
				stats.Applied++
			case IsFatal(err):
				stats.Fatal++
				slog.Error("[Sweeper] Event left unprocessed",
					"event_id", evt.ID,
					"event_type", evt.EventType,
					"stream_id", evt.StreamID,
					"stream_version", evt.StreamVersion,
					"error", err)
			default:
				stats.Transient++
				slog.Warn("[Sweeper] Redelivery failed, will retry next drain",
					"event_id", evt.ID,
					"error", err)
			}
		}

		if len(events) < s.batchSize {
			if stats.Seen > 0 {
				slog.Info("[Sweeper] Backlog drained",
					"seen", stats.Seen,
					"applied", stats.Applied,
					"fatal", stats.Fatal,
					"transient", stats.Transient)
			}
			return stats
		}
	}

	slog.Warn("[Sweeper] Max consecutive batches reached, pausing drain",
		"max_batches", maxConsecutiveBatches,
		"note", "Will resume on next tick")
	return stats
}
