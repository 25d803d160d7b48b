// Package dispatch is the single write path into the projection store. It routes
// an appended event to its category's router and marks it processed in the same
// stream-scoped transaction.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/aevon-lab/tenantflow/internal/projection"
)

var (
	// ErrInvalidEnvelope is returned when an event fails envelope validation.
	ErrInvalidEnvelope = errors.New("invalid event envelope")

	// ErrUnknownStreamType is returned when no router serves an event's stream_type.
	ErrUnknownStreamType = errors.New("unknown stream type")

	// ErrNotAppended is returned when the event is not in the event store.
	ErrNotAppended = errors.New("event has not been appended")
)

// UnknownStreamTypeError carries the stream_type that has no router.
type UnknownStreamTypeError struct {
	StreamType string
}

func (e *UnknownStreamTypeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownStreamType, e.StreamType)
}

func (e *UnknownStreamTypeError) Unwrap() error {
	return ErrUnknownStreamType
}

// IsFatal reports whether err is a wiring or ordering failure that retrying
// the same event cannot fix.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidEnvelope) ||
		errors.Is(err, ErrUnknownStreamType) ||
		errors.Is(err, projection.ErrUnhandledEventType) ||
		errors.Is(err, projection.ErrOrderingViolation) ||
		errors.Is(err, projection.ErrMissingTarget)
}

// Notifier is told about every event a dispatch applied, after commit.
type Notifier interface {
	Publish(ctx context.Context, evt *v1.Event) error
}

// Dispatcher applies appended events to projections.
type Dispatcher struct {
	uow      storage.UnitOfWork
	routers  map[projection.Category]*projection.Router
	notifier Notifier
	now      func() time.Time
}

// NewDispatcher creates a dispatcher over uow. notifier may be nil.
func NewDispatcher(uow storage.UnitOfWork, notifier Notifier) *Dispatcher {
	if uow == nil {
		panic("dispatch: unit of work must not be nil")
	}
	return &Dispatcher{
		uow:      uow,
		routers:  projection.Routers(),
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Categories returns the stream types this dispatcher can route.
func (d *Dispatcher) Categories() []projection.Category {
	out := make([]projection.Category, 0, len(d.routers))
	for c := range d.routers {
		out = append(out, c)
	}
	return out
}

// Dispatch applies evt, which must already be appended, and marks it processed.
//
// Unprocessed events earlier in the same stream are applied first, in
// stream_version order, inside the same transaction. An event that is already
// processed is a no-op. Any error rolls the whole transaction back and leaves
// processed_at NULL.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *v1.Event) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if evt.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidEnvelope)
	}

	router, err := d.router(evt)
	if err != nil {
		return err
	}
	if !router.Accepts(evt) {
		return &projection.UnhandledEventTypeError{Category: router.Category(), EventType: evt.EventType}
	}

	var applied []*v1.Event
	err = d.uow.InStream(ctx, evt.StreamID, func(tx storage.StreamTx) error {
		applied = applied[:0]

		stored, err := tx.Event(ctx, evt.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotAppended, evt.ID)
		}
		if err != nil {
			return err
		}
		if stored.IsProcessed() {
			return nil
		}

		pending, err := tx.PendingEvents(ctx, stored.StreamVersion)
		if err != nil {
			return err
		}
		for _, p := range pending {
			if err := d.apply(ctx, tx, p); err != nil {
				return err
			}
			applied = append(applied, p)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		slog.Debug("[Dispatcher] Event already processed", "event_id", evt.ID)
		return nil
	}

	for _, a := range applied {
		if a.ID == evt.ID {
			evt.ProcessedAt = a.ProcessedAt
		}
		slog.Debug("[Dispatcher] Event applied",
			"event_id", a.ID,
			"event_type", a.EventType,
			"stream_id", a.StreamID,
			"stream_version", a.StreamVersion)
		d.notify(ctx, a)
	}
	if len(applied) > 1 {
		slog.Info("[Dispatcher] Caught up stream",
			"stream_id", evt.StreamID,
			"applied", len(applied),
			"up_to_version", applied[len(applied)-1].StreamVersion)
	}
	return nil
}

func (d *Dispatcher) router(evt *v1.Event) (*projection.Router, error) {
	router, ok := d.routers[projection.Category(evt.StreamType)]
	if !ok {
		return nil, &UnknownStreamTypeError{StreamType: evt.StreamType}
	}
	return router, nil
}

func (d *Dispatcher) apply(ctx context.Context, tx storage.StreamTx, evt *v1.Event) error {
	router, err := d.router(evt)
	if err != nil {
		return fmt.Errorf("stream %s version %d (event %s): %w", evt.StreamID, evt.StreamVersion, evt.ID, err)
	}
	if err := router.Route(ctx, tx, evt); err != nil {
		return fmt.Errorf("stream %s version %d (event %s): %w", evt.StreamID, evt.StreamVersion, evt.ID, err)
	}
	at := d.now()
	if err := tx.MarkProcessed(ctx, evt.ID, at); err != nil {
		return err
	}
	evt.ProcessedAt = &at
	return nil
}

func (d *Dispatcher) notify(ctx context.Context, evt *v1.Event) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Publish(ctx, evt); err != nil {
		slog.Warn("[Dispatcher] Change notification failed",
			"event_id", evt.ID,
			"error", err)
	}
}
