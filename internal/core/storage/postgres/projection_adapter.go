package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ProjectionAdapter implements storage.UnitOfWork over PostgreSQL. Each stream
// transaction takes a transaction-scoped advisory lock on the stream id, so the
// projection writes and processed_at markers of one stream commit in order and
// all together.
type ProjectionAdapter struct {
	db *sql.DB
}

// NewProjectionAdapter creates a new ProjectionAdapter sharing the given connection.
func NewProjectionAdapter(db *sql.DB) *ProjectionAdapter {
	return &ProjectionAdapter{db: db}
}

func (a *ProjectionAdapter) InStream(ctx context.Context, streamID string, fn func(tx storage.StreamTx) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("stream %s: begin tx: %w", streamID, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, queryLockStream, streamID); err != nil {
		return fmt.Errorf("stream %s: lock: %w", streamID, err)
	}

	if err := fn(&streamTx{reader: reader{q: tx}, streamID: streamID}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("stream %s: commit: %w", streamID, err)
	}
	return nil
}

// Reader returns a storage.ProjectionReader over committed state.
func (a *ProjectionAdapter) Reader() storage.ProjectionReader {
	return reader{q: a.db}
}

type reader struct {
	q queryer
}

func (r reader) Get(ctx context.Context, table string, key storage.Row) (storage.Row, error) {
	spec, err := storage.Lookup(table)
	if err != nil {
		return nil, err
	}
	k, err := spec.KeyOf(key)
	if err != nil {
		return nil, err
	}

	rows, err := r.find(ctx, spec, k, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}
	return rows[0], nil
}

func (r reader) Find(ctx context.Context, table string, filter storage.Row, limit int) ([]storage.Row, error) {
	spec, err := storage.Lookup(table)
	if err != nil {
		return nil, err
	}
	if err := spec.CheckRow(filter); err != nil {
		return nil, err
	}
	return r.find(ctx, spec, filter, limit)
}

func (r reader) find(ctx context.Context, spec storage.TableSpec, filter storage.Row, limit int) ([]storage.Row, error) {
	query, args := buildSelect(spec, filter, limit)
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: select: %w", spec.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s: columns: %w", spec.Name, err)
	}

	var result []storage.Row
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", spec.Name, err)
		}

		row := make(storage.Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", spec.Name, err)
	}
	return result, nil
}

// normalizeValue turns driver text ([]byte) into string and times into UTC.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}

type streamTx struct {
	reader
	streamID string
}

func (tx *streamTx) Event(ctx context.Context, id string) (*v1.Event, error) {
	evt, err := scanEventRow(tx.q.QueryRowContext(ctx, queryGetStreamEvent, id, tx.streamID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return evt, err
}

func (tx *streamTx) PendingEvents(ctx context.Context, upToVersion int64) ([]*v1.Event, error) {
	rows, err := tx.q.QueryContext(ctx, queryPendingStreamEvents, tx.streamID, upToVersion)
	if err != nil {
		return nil, fmt.Errorf("stream %s: pending events: %w", tx.streamID, err)
	}
	return scanEvents(rows)
}

func (tx *streamTx) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	res, err := tx.q.ExecContext(ctx, queryMarkProcessed, eventID, at.UTC())
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", eventID, err)
	}
	if n == 0 {
		return fmt.Errorf("mark processed %s: event missing or already processed", eventID)
	}
	return nil
}

func (tx *streamTx) Upsert(ctx context.Context, table string, row storage.Row) error {
	spec, err := storage.Lookup(table)
	if err != nil {
		return err
	}
	if err := spec.CheckRow(row); err != nil {
		return err
	}
	if _, err := spec.KeyOf(row); err != nil {
		return err
	}

	query, args := buildUpsert(spec, row)
	if _, err := tx.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: upsert: %w", table, err)
	}
	return nil
}

func (tx *streamTx) Update(ctx context.Context, table string, key storage.Row, set storage.Row) (int64, error) {
	spec, err := storage.Lookup(table)
	if err != nil {
		return 0, err
	}
	if err := spec.CheckRow(key); err != nil {
		return 0, err
	}
	if err := spec.CheckRow(set); err != nil {
		return 0, err
	}
	if len(set) == 0 {
		return 0, fmt.Errorf("%s: update without columns", table)
	}

	query, args := buildUpdate(spec, key, set)
	res, err := tx.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: update: %w", table, err)
	}
	return res.RowsAffected()
}

func (tx *streamTx) Delete(ctx context.Context, table string, key storage.Row) (int64, error) {
	spec, err := storage.Lookup(table)
	if err != nil {
		return 0, err
	}
	if err := spec.CheckRow(key); err != nil {
		return 0, err
	}
	if len(key) == 0 {
		return 0, fmt.Errorf("%s: refusing to delete without a filter", table)
	}

	query, args := buildDelete(spec, key)
	res, err := tx.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: delete: %w", table, err)
	}
	return res.RowsAffected()
}
