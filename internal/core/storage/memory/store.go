package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/partition"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of storage.EventStore, storage.UnitOfWork
// and storage.ProjectionReader. Useful for testing and development.
//
// Stream transactions stage their writes and apply them on commit under the
// global lock, so a failed handler leaves no trace. Writes for one stream are
// serialized on that stream's stripe lock.
type Store struct {
	mu      sync.RWMutex
	seq     int64
	events  map[string]*v1.Event
	streams map[string][]string // stream_id -> event ids in version order
	order   []string            // event ids in append order
	tables  map[string]map[string]storage.Row

	stripes [partition.Count]sync.Mutex
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		events:  make(map[string]*v1.Event),
		streams: make(map[string][]string),
		tables:  make(map[string]map[string]storage.Row),
	}
}

func (s *Store) Append(ctx context.Context, event *v1.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if _, exists := s.events[event.ID]; exists {
		return storage.ErrDuplicate
	}

	current := int64(len(s.streams[event.StreamID]))
	switch {
	case event.StreamVersion == 0:
		event.StreamVersion = current + 1
	case event.StreamVersion != current+1:
		return fmt.Errorf("%w: stream %s is at version %d, got %d",
			storage.ErrVersionConflict, event.StreamID, current, event.StreamVersion)
	}

	s.seq++
	event.Seq = s.seq
	event.ProcessedAt = nil

	s.events[event.ID] = copyEvent(event)
	s.streams[event.StreamID] = append(s.streams[event.StreamID], event.ID)
	s.order = append(s.order, event.ID)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*v1.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evt, exists := s.events[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyEvent(evt), nil
}

func (s *Store) ListStream(ctx context.Context, streamID string, afterVersion int64, limit int) ([]*v1.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*v1.Event
	for _, id := range s.streams[streamID] {
		evt := s.events[id]
		if evt.StreamVersion <= afterVersion {
			continue
		}
		result = append(result, copyEvent(evt))
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) ListUnprocessed(ctx context.Context, afterSeq int64, limit int) ([]*v1.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*v1.Event
	for _, id := range s.order {
		evt := s.events[id]
		if evt.ProcessedAt != nil || evt.Seq <= afterSeq {
			continue
		}
		result = append(result, copyEvent(evt))
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// InStream runs fn against a staged transaction and applies it only if fn succeeds.
func (s *Store) InStream(ctx context.Context, streamID string, fn func(tx storage.StreamTx) error) error {
	stripe := &s.stripes[partition.For(streamID)]
	stripe.Lock()
	defer stripe.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := newStreamTx(s, streamID)
	if err := fn(tx); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

func (s *Store) commit(tx *streamTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for table, rows := range tx.rows {
		live := s.tableLocked(table)
		for key, row := range rows {
			if row == nil {
				delete(live, key)
				continue
			}
			live[key] = row
		}
	}
	for id, at := range tx.processed {
		if evt, ok := s.events[id]; ok {
			processedAt := at
			evt.ProcessedAt = &processedAt
		}
	}
}

func (s *Store) tableLocked(table string) map[string]storage.Row {
	rows, ok := s.tables[table]
	if !ok {
		rows = make(map[string]storage.Row)
		s.tables[table] = rows
	}
	return rows
}

// Reader exposes committed projection state as a storage.ProjectionReader.
func (s *Store) Reader() storage.ProjectionReader {
	return s.reader()
}

func (s *Store) reader() *committedReader {
	return &committedReader{s: s}
}

type committedReader struct {
	s *Store
}

func (r *committedReader) Get(ctx context.Context, table string, key storage.Row) (storage.Row, error) {
	spec, err := storage.Lookup(table)
	if err != nil {
		return nil, err
	}
	k, err := spec.KeyOf(key)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.tables[table][rowKey(spec, k)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyRow(row), nil
}

func (r *committedReader) Find(ctx context.Context, table string, filter storage.Row, limit int) ([]storage.Row, error) {
	spec, err := storage.Lookup(table)
	if err != nil {
		return nil, err
	}
	if err := spec.CheckRow(filter); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	keys := make([]string, 0, len(r.s.tables[table]))
	for key, row := range r.s.tables[table] {
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
		result = append(result, copyRow(r.s.tables[table][key]))
	}
	return result, nil
}

func copyEvent(e *v1.Event) *v1.Event {
	c := *e
	if e.EventData != nil {
		c.EventData = make(map[string]interface{}, len(e.EventData))
		for k, v := range e.EventData {
			c.EventData[k] = v
		}
	}
	if e.EventMetadata != nil {
		c.EventMetadata = make(map[string]interface{}, len(e.EventMetadata))
		for k, v := range e.EventMetadata {
			c.EventMetadata[k] = v
		}
	}
	if e.ProcessedAt != nil {
		at := *e.ProcessedAt
		c.ProcessedAt = &at
	}
	return &c
}
