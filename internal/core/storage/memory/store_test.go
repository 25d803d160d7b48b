package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/aevon-lab/tenantflow/internal/core/workflow"
	"github.com/stretchr/testify/require"
)

func newEvent(streamID string, version int64) *v1.Event {
	return &v1.Event{
		StreamID:      streamID,
		StreamType:    "organization",
		StreamVersion: version,
		EventType:     "organization.updated",
		EventData:     map[string]interface{}{"name": "n"},
		CreatedAt:     time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_AppendAssignsIDAndVersion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first := newEvent("org-1", 0)
	require.NoError(t, s.Append(ctx, first))
	require.NotEmpty(t, first.ID)
	require.Equal(t, int64(1), first.StreamVersion)

	second := newEvent("org-1", 2)
	require.NoError(t, s.Append(ctx, second))

	gap := newEvent("org-1", 4)
	require.ErrorIs(t, s.Append(ctx, gap), storage.ErrVersionConflict)

	dup := newEvent("org-1", 0)
	dup.ID = first.ID
	require.ErrorIs(t, s.Append(ctx, dup), storage.ErrDuplicate)

	events, err := s.ListStream(ctx, "org-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(1), events[0].StreamVersion)
	require.Equal(t, int64(2), events[1].StreamVersion)
}

func TestStore_InStreamRollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	evt := newEvent("org-1", 0)
	require.NoError(t, s.Append(ctx, evt))

	boom := errors.New("handler failed")
	err := s.InStream(ctx, "org-1", func(tx storage.StreamTx) error {
		require.NoError(t, tx.Upsert(ctx, storage.TableOrganizations, storage.Row{"id": "org-1", "name": "Acme"}))
		require.NoError(t, tx.MarkProcessed(ctx, evt.ID, time.Now()))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Reader().Get(ctx, storage.TableOrganizations, storage.Row{"id": "org-1"})
	require.ErrorIs(t, err, storage.ErrNotFound)

	stored, err := s.Get(ctx, evt.ID)
	require.NoError(t, err)
	require.Nil(t, stored.ProcessedAt)
}

func TestStore_UpsertNeverMovesUpdatedAtBackwards(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	require.NoError(t, s.InStream(ctx, "org-1", func(tx storage.StreamTx) error {
		if err := tx.Upsert(ctx, storage.TableOrganizations, storage.Row{"id": "org-1", "name": "New", "updated_at": newer}); err != nil {
			return err
		}
		return tx.Upsert(ctx, storage.TableOrganizations, storage.Row{"id": "org-1", "name": "Old", "updated_at": older})
	}))

	row, err := s.Reader().Get(ctx, storage.TableOrganizations, storage.Row{"id": "org-1"})
	require.NoError(t, err)
	require.Equal(t, "New", row["name"])
}

func TestStore_DeleteAndFindByFilter(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.InStream(ctx, "org-1", func(tx storage.StreamTx) error {
		for _, id := range []string{"c-1", "c-2"} {
			if err := tx.Upsert(ctx, storage.TableOrganizationContacts, storage.Row{"id": id, "organization_id": "org-1", "label": "primary"}); err != nil {
				return err
			}
		}
		return tx.Upsert(ctx, storage.TableOrganizationContacts, storage.Row{"id": "c-3", "organization_id": "org-2", "label": "billing"})
	}))

	rows, err := s.Reader().Find(ctx, storage.TableOrganizationContacts, storage.Row{"organization_id": "org-1"}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, s.InStream(ctx, "org-1", func(tx storage.StreamTx) error {
		n, err := tx.Delete(ctx, storage.TableOrganizationContacts, storage.Row{"organization_id": "org-1"})
		require.Equal(t, int64(2), n)
		return err
	}))

	rows, err = s.Reader().Find(ctx, storage.TableOrganizationContacts, storage.Row{}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "c-3", rows[0]["id"])
}

func TestStore_PendingEventsSkipsProcessed(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(ctx, newEvent("org-1", 0)))
	}

	require.NoError(t, s.InStream(ctx, "org-1", func(tx storage.StreamTx) error {
		pending, err := tx.PendingEvents(ctx, 2)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		return tx.MarkProcessed(ctx, pending[0].ID, time.Now())
	}))

	require.NoError(t, s.InStream(ctx, "org-1", func(tx storage.StreamTx) error {
		pending, err := tx.PendingEvents(ctx, 3)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		require.Equal(t, int64(2), pending[0].StreamVersion)
		return nil
	}))

	unprocessed, err := s.ListUnprocessed(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, unprocessed, 2)

	tail, err := s.ListUnprocessed(ctx, unprocessed[0].Seq, 10)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	require.Equal(t, unprocessed[1].ID, tail[0].ID)
}

func TestRunStore_ClaimSaveAndCancel(t *testing.T) {
	ctx := context.Background()
	rs := NewRunStore()
	now := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	run := &workflow.Run{ID: "run-1", Step: workflow.StepStarted, Status: workflow.StatusRunning, NextAttemptAt: now, UpdatedAt: now}
	require.NoError(t, rs.Create(ctx, run))

	claimed, err := rs.ClaimRunnable(ctx, now, time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	again, err := rs.ClaimRunnable(ctx, now, time.Minute, 10)
	require.NoError(t, err)
	require.Empty(t, again, "leased run must not be claimed twice")

	require.NoError(t, rs.RequestCancel(ctx, "run-1", now))

	claimedVersion := claimed[0].Version
	claimed[0].Step = workflow.StepOrganizationCreated
	claimed[0].NextAttemptAt = now.Add(time.Hour)
	require.NoError(t, rs.Save(ctx, claimed[0]))

	stored, err := rs.Get(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, stored.CancelRequested)
	require.True(t, stored.NextAttemptAt.Equal(now))

	claimed[0].Version = claimedVersion
	require.ErrorIs(t, rs.Save(ctx, claimed[0]), workflow.ErrStaleRun)
}
