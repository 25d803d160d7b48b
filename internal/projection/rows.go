package projection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/eventdata"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/google/uuid"
)

// childNamespace seeds ids of nested rows that arrive without one, so
// re-delivering the same event rewrites the same rows.
var childNamespace = uuid.MustParse("6f1c2d8e-4b7a-4e0f-9a52-3c1d7e9b5a10")

func payload(evt *v1.Event) eventdata.Payload {
	return eventdata.Payload(evt.EventData)
}

func metadata(evt *v1.Event) eventdata.Payload {
	return eventdata.Payload(evt.EventMetadata)
}

// eventTime is the timestamp every projection write derives from.
func eventTime(evt *v1.Event) time.Time {
	return evt.CreatedAt.UTC()
}

// targetID returns the payload-supplied target at key, or the stream id.
func targetID(evt *v1.Event, key string) string {
	if id := payload(evt).ID(key); id != "" {
		return id
	}
	return evt.StreamID
}

// setText copies the string at key into set[col] when the payload carries it.
func setText(set storage.Row, p eventdata.Payload, key, col string) {
	if v := p.OptionalText(key); v != nil {
		set[col] = *v
	}
}

// nullableText returns the string at key, or nil for SQL NULL when absent or blank.
func nullableText(p eventdata.Payload, key string) interface{} {
	if s := p.Text(key); s != "" {
		return s
	}
	return nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// updateByID applies set to one row. A row that does not exist is only a
// warning, unless the row belongs to this stream and earlier events of the
// stream must have created it.
func updateByID(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event, table, id string, set storage.Row) error {
	n, err := tx.Update(ctx, table, storage.Row{"id": id}, set)
	if err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}
	if n > 0 {
		return nil
	}
	return missingRow(evt, table, id)
}

func missingRow(evt *v1.Event, table, id string) error {
	if id == evt.StreamID && evt.StreamVersion > 1 {
		return &OrderingViolationError{
			Table:         table,
			ID:            id,
			EventID:       evt.ID,
			StreamVersion: evt.StreamVersion,
		}
	}
	slog.Warn("[Projection] Target row not found",
		"event_type", evt.EventType,
		"event_id", evt.ID,
		"table", table,
		"id", id)
	return nil
}

// childRows turns a nested collection into labelled rows owned by parentID.
// build maps one element onto its table columns.
func childRows(evt *v1.Event, kind, parentID string, items []eventdata.Payload, build func(p eventdata.Payload, row storage.Row)) []storage.Row {
	at := eventTime(evt)
	rows := make([]storage.Row, 0, len(items))
	for i, item := range items {
		id := item.ID("id")
		if id == "" {
			id = uuid.NewSHA1(childNamespace, []byte(fmt.Sprintf("%s/%s/%d", evt.ID, kind, i))).String()
		}
		row := storage.Row{
			"id":              id,
			"organization_id": parentID,
			"label":           item.TextOr("label", "primary"),
			"created_at":      at,
			"updated_at":      at,
		}
		build(item, row)
		rows = append(rows, row)
	}
	return rows
}
