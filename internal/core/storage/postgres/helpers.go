package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// marshalEventJSON marshals an event's data and metadata fields to JSON text.
//
// Empty metadata produces nil (SQL NULL) rather than JSON "null".
func marshalEventJSON(event *v1.Event) (dataJSON string, metadataJSON interface{}, err error) {
	data := event.EventData
	if data == nil {
		data = map[string]interface{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal event_data: %w", err)
	}

	if len(event.EventMetadata) > 0 {
		meta, err := json.Marshal(event.EventMetadata)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal event_metadata: %w", err)
		}
		metadataJSON = string(meta)
	}

	return string(raw), metadataJSON, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventRow scans one events row in eventColumns order.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanEventRow(row scanner) (*v1.Event, error) {
	var evt v1.Event
	var dataJSON, metadataJSON []byte
	var processedAt sql.NullTime

	err := row.Scan(
		&evt.ID,
		&evt.StreamID,
		&evt.StreamType,
		&evt.StreamVersion,
		&evt.EventType,
		&dataJSON,
		&metadataJSON,
		&evt.CreatedAt,
		&processedAt,
		&evt.Seq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	if err := json.Unmarshal(dataJSON, &evt.EventData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event_data: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &evt.EventMetadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event_metadata: %w", err)
		}
	}
	if processedAt.Valid {
		at := processedAt.Time.UTC()
		evt.ProcessedAt = &at
	}

	return &evt, nil
}

func scanEvents(rows *sql.Rows) ([]*v1.Event, error) {
	defer rows.Close()

	var events []*v1.Event
	for rows.Next() {
		evt, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// limitArg maps a non-positive limit to NULL, which Postgres reads as LIMIT ALL.
func limitArg(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	return limit
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
