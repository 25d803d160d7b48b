// Package ingestion is the write entry point: an event is appended to the event
// store and then dispatched to the projections.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/aevon-lab/tenantflow/internal/dispatch"
	"github.com/gin-gonic/gin"
)

// maxVersionRetries bounds re-appends of auto-versioned events that lost a race
// for the next stream version.
const maxVersionRetries = 3

// Dispatcher applies an appended event.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt *v1.Event) error
}

type Service struct {
	store            storage.EventStore
	dispatcher       Dispatcher
	maxBodySizeBytes int
}

func NewService(store storage.EventStore, dispatcher Dispatcher, maxBodySizeMB int) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if dispatcher == nil {
		panic("ingestion: dispatcher must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            store,
		dispatcher:       dispatcher,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events", s.IngestHandler)
	r.GET("/v1/streams/:stream_id/events", s.ListStreamHandler)
}

// Ingest appends evt and dispatches it. Append errors are returned unwrapped
// from the store (storage.ErrDuplicate, storage.ErrVersionConflict). A dispatch
// failure leaves the event appended but unprocessed.
func (s *Service) Ingest(ctx context.Context, evt *v1.Event) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("%w: %v", dispatch.ErrInvalidEnvelope, err)
	}
	if err := s.append(ctx, evt); err != nil {
		return err
	}
	return s.dispatcher.Dispatch(ctx, evt)
}

// Emit is Ingest for internal producers that retry. An event whose id is
// already stored is dispatched from its stored copy instead of failing, so a
// producer repeating a step after a crash converges on the same state.
func (s *Service) Emit(ctx context.Context, evt *v1.Event) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("%w: %v", dispatch.ErrInvalidEnvelope, err)
	}

	err := s.append(ctx, evt)
	if errors.Is(err, storage.ErrDuplicate) && evt.ID != "" {
		stored, getErr := s.store.Get(ctx, evt.ID)
		if getErr != nil {
			return fmt.Errorf("load emitted event %s: %w", evt.ID, getErr)
		}
		if stored.StreamID != evt.StreamID || stored.EventType != evt.EventType {
			return fmt.Errorf("event %s already stored as %s on stream %s: %w",
				evt.ID, stored.EventType, stored.StreamID, storage.ErrDuplicate)
		}
		slog.Debug("[Ingestion] Re-emitting stored event", "event_id", evt.ID)
		*evt = *stored
		err = nil
	}
	if err != nil {
		return err
	}
	return s.dispatcher.Dispatch(ctx, evt)
}

// append stores evt. An event without a producer-chosen version is retried on a
// version conflict; an explicit version is the producer's claim and is not.
func (s *Service) append(ctx context.Context, evt *v1.Event) error {
	auto := evt.StreamVersion == 0

	var err error
	for attempt := 1; attempt <= maxVersionRetries; attempt++ {
		err = s.store.Append(ctx, evt)
		if err == nil || !auto || !errors.Is(err, storage.ErrVersionConflict) {
			return err
		}
		slog.Debug("[Ingestion] Lost race for stream version, retrying",
			"stream_id", evt.StreamID,
			"attempt", attempt)
		evt.StreamVersion = 0
	}
	return err
}
