package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
)

var (
	// ErrDuplicate is returned when an event with the same id already exists.
	ErrDuplicate = errors.New("event already exists")

	// ErrVersionConflict is returned when an appended stream_version is not exactly
	// one past the stream's current version.
	ErrVersionConflict = errors.New("stream version conflict")

	// ErrNotFound is returned by keyed lookups that match nothing.
	ErrNotFound = errors.New("not found")

	// ErrUnknownTable is returned when a projection table is not in the catalog.
	ErrUnknownTable = errors.New("unknown projection table")

	// ErrUnknownColumn is returned when a row references a column the table does not declare.
	ErrUnknownColumn = errors.New("unknown projection column")
)

// EventStore is the append-only event ledger.
// Events are never mutated after Append; processed_at is written only through StreamTx.
type EventStore interface {
	// Append persists an event. It assigns ID when empty and StreamVersion when zero.
	// Returns ErrDuplicate for a known ID and ErrVersionConflict for a non-contiguous version.
	Append(ctx context.Context, event *v1.Event) error

	// Get returns one event by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*v1.Event, error)

	// ListStream returns events of one stream with stream_version > afterVersion, in version order.
	ListStream(ctx context.Context, streamID string, afterVersion int64, limit int) ([]*v1.Event, error)

	// ListUnprocessed returns events with no processed_at and Seq > afterSeq, oldest first.
	ListUnprocessed(ctx context.Context, afterSeq int64, limit int) ([]*v1.Event, error)
}

// Row is one projection record: column name -> value.
// Values are string, bool, int64, time.Time or nil (SQL NULL).
type Row map[string]interface{}

// ProjectionReader is the read side of the projection store.
// External consumers only ever read through this interface.
type ProjectionReader interface {
	Get(ctx context.Context, table string, key Row) (Row, error)
	Find(ctx context.Context, table string, filter Row, limit int) ([]Row, error)
}

// ProjectionWriter mutates projection records.
// Only available inside a StreamTx, so every write shares the dispatcher's transaction.
type ProjectionWriter interface {
	// Upsert inserts row or, on key conflict, overwrites the given non-key columns.
	// Tables with updated_at never move backwards: an older row does not replace a newer one.
	Upsert(ctx context.Context, table string, row Row) error

	// Update sets columns on the row matching key and returns the number of rows changed.
	Update(ctx context.Context, table string, key Row, set Row) (int64, error)

	// Delete removes rows matching key (junction rows, provisional children).
	Delete(ctx context.Context, table string, key Row) (int64, error)
}

// ProjectionTx is what a handler sees: reads and writes in one transaction.
type ProjectionTx interface {
	ProjectionReader
	ProjectionWriter
}

// StreamTx is the dispatcher's unit of work for one stream. It holds the stream's
// write lock for its whole lifetime.
type StreamTx interface {
	ProjectionTx

	// Event loads one event of the locked stream by id, or ErrNotFound.
	Event(ctx context.Context, id string) (*v1.Event, error)

	// PendingEvents returns unprocessed events of the locked stream with
	// stream_version <= upToVersion, in version order.
	PendingEvents(ctx context.Context, upToVersion int64) ([]*v1.Event, error)

	// MarkProcessed sets processed_at on an unprocessed event.
	MarkProcessed(ctx context.Context, eventID string, at time.Time) error
}

// UnitOfWork opens stream-scoped transactions. Writes for one stream_id are
// serialized; different streams may proceed in parallel.
type UnitOfWork interface {
	// InStream runs fn in one transaction. fn's error rolls everything back.
	InStream(ctx context.Context, streamID string, fn func(tx StreamTx) error) error
}
