package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
)

// streamTx stages projection writes (nil row = deleted) and processed markers.
type streamTx struct {
	s         *Store
	streamID  string
	rows      map[string]map[string]storage.Row
	processed map[string]time.Time
}

func newStreamTx(s *Store, streamID string) *streamTx {
	return &streamTx{
		s:         s,
		streamID:  streamID,
		rows:      make(map[string]map[string]storage.Row),
		processed: make(map[string]time.Time),
	}
}

func (tx *streamTx) Event(ctx context.Context, id string) (*v1.Event, error) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()

	evt, ok := tx.s.events[id]
	if !ok || evt.StreamID != tx.streamID {
		return nil, storage.ErrNotFound
	}
	c := copyEvent(evt)
	if at, staged := tx.processed[id]; staged {
		c.ProcessedAt = &at
	}
	return c, nil
}

func (tx *streamTx) PendingEvents(ctx context.Context, upToVersion int64) ([]*v1.Event, error) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()

	var result []*v1.Event
	for _, id := range tx.s.streams[tx.streamID] {
		evt := tx.s.events[id]
		if evt.StreamVersion > upToVersion {
			break
		}
		if evt.ProcessedAt != nil {
			continue
		}
		if _, staged := tx.processed[id]; staged {
			continue
		}
		result = append(result, copyEvent(evt))
	}
	return result, nil
}

func (tx *streamTx) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	evt, err := tx.Event(ctx, eventID)
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", eventID, err)
	}
	if evt.ProcessedAt != nil {
		return fmt.Errorf("mark processed %s: already processed", eventID)
	}
	tx.processed[eventID] = at.UTC()
	return nil
}

func (tx *streamTx) Get(ctx context.Context, table string, key storage.Row) (storage.Row, error) {
	spec, err := storage.Lookup(table)
	if err != nil {
		return nil, err
	}
	k, err := spec.KeyOf(key)
	if err != nil {
		return nil, err
	}
	row, ok := tx.current(table, rowKey(spec, k))
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyRow(row), nil
}

func (tx *streamTx) Find(ctx context.Context, table string, filter storage.Row, limit int) ([]storage.Row, error) {
	spec, err := storage.Lookup(table)
	if err != nil {
		return nil, err
	}
	if err := spec.CheckRow(filter); err != nil {
		return nil, err
	}

	view := tx.view(table)
	keys := make([]string, 0, len(view))
	for key, row := range view {
		if matches(row, filter) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	result := make([]storage.Row, 0, len(keys))
	for _, key := range keys {
		result = append(result, copyRow(view[key]))
	}
	return result, nil
}

func (tx *streamTx) Upsert(ctx context.Context, table string, row storage.Row) error {
	spec, err := storage.Lookup(table)
	if err != nil {
		return err
	}
	if err := spec.CheckRow(row); err != nil {
		return err
	}
	k, err := spec.KeyOf(row)
	if err != nil {
		return err
	}

	key := rowKey(spec, k)
	existing, ok := tx.current(table, key)
	if !ok {
		tx.stage(table, key, copyRow(row))
		return nil
	}
	if spec.HasUpdatedAt() && isNewer(existing["updated_at"], row["updated_at"]) {
		return nil
	}

	merged := copyRow(existing)
	for col, v := range row {
		merged[col] = v
	}
	tx.stage(table, key, merged)
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

	var affected int64
	for k, row := range tx.view(table) {
		if !matches(row, key) {
			continue
		}
		merged := copyRow(row)
		for col, v := range set {
			merged[col] = v
		}
		tx.stage(table, k, merged)
		affected++
	}
	return affected, nil
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

	var affected int64
	for k, row := range tx.view(table) {
		if matches(row, key) {
			tx.stage(table, k, nil)
			affected++
		}
	}
	return affected, nil
}

func (tx *streamTx) stage(table, key string, row storage.Row) {
	staged, ok := tx.rows[table]
	if !ok {
		staged = make(map[string]storage.Row)
		tx.rows[table] = staged
	}
	staged[key] = row
}

func (tx *streamTx) current(table, key string) (storage.Row, bool) {
	if staged, ok := tx.rows[table][key]; ok {
		return staged, staged != nil
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	row, ok := tx.s.tables[table][key]
	return row, ok
}

// view merges committed rows with staged writes.
func (tx *streamTx) view(table string) map[string]storage.Row {
	tx.s.mu.RLock()
	out := make(map[string]storage.Row, len(tx.s.tables[table]))
	for k, row := range tx.s.tables[table] {
		out[k] = row
	}
	tx.s.mu.RUnlock()

	for k, row := range tx.rows[table] {
		if row == nil {
			delete(out, k)
			continue
		}
		out[k] = row
	}
	return out
}

func rowKey(spec storage.TableSpec, key storage.Row) string {
	parts := make([]string, 0, len(spec.Key))
	for _, col := range spec.Key {
		parts = append(parts, fmt.Sprint(key[col]))
	}
	return strings.Join(parts, "\x1f")
}

func matches(row, filter storage.Row) bool {
	for col, want := range filter {
		if !valuesEqual(row[col], want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Equal(bt)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// isNewer reports whether the stored updated_at is strictly after the incoming one.
func isNewer(stored, incoming interface{}) bool {
	st, ok := stored.(time.Time)
	if !ok {
		return false
	}
	in, ok := incoming.(time.Time)
	if !ok {
		return false
	}
	return st.After(in)
}

func copyRow(row storage.Row) storage.Row {
	c := make(storage.Row, len(row))
	for k, v := range row {
		c[k] = v
	}
	return c
}
