package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/aevon-lab/tenantflow/internal/core/storage/memory"
	dispatchmocks "github.com/aevon-lab/tenantflow/internal/mocks/dispatch"
	"github.com/aevon-lab/tenantflow/internal/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	t0    = time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	clock atomic.Int64
)

func appendEvent(t *testing.T, store *memory.Store, streamType, streamID, eventType string, data map[string]interface{}) *v1.Event {
	t.Helper()
	evt := &v1.Event{
		StreamID:   streamID,
		StreamType: streamType,
		EventType:  eventType,
		EventData:  data,
		CreatedAt:  t0.Add(time.Duration(clock.Add(1)) * time.Minute),
	}
	require.NoError(t, store.Append(context.Background(), evt))
	return evt
}

func requireUnprocessed(t *testing.T, store *memory.Store, id string) {
	t.Helper()
	stored, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Nil(t, stored.ProcessedAt)
}

func TestDispatch_FatalWiringErrorsLeaveEventUnprocessed(t *testing.T) {
	tests := []struct {
		name       string
		streamType string
		eventType  string
		wantErr    error
	}{
		{name: "unknown stream type", streamType: "billing_account", eventType: "billing_account.opened", wantErr: ErrUnknownStreamType},
		{name: "unknown action", streamType: "organization", eventType: "organization.renamed", wantErr: projection.ErrUnhandledEventType},
		{name: "prefix outside category", streamType: "invitation", eventType: "organization.created", wantErr: projection.ErrUnhandledEventType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore()
			notifier := dispatchmocks.NewNotifier(t)
			d := NewDispatcher(store, notifier)

			evt := appendEvent(t, store, tc.streamType, "s-1", tc.eventType, nil)
			err := d.Dispatch(context.Background(), evt)

			require.ErrorIs(t, err, tc.wantErr)
			require.True(t, IsFatal(err))
			requireUnprocessed(t, store, evt.ID)
			notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestDispatch_IsIdempotentOnRedelivery(t *testing.T) {
	store := memory.NewStore()
	notifier := dispatchmocks.NewNotifier(t)
	notifier.EXPECT().Publish(mock.Anything, mock.MatchedBy(func(e *v1.Event) bool {
		return e.EventType == "organization.created"
	})).Return(nil).Once()

	d := NewDispatcher(store, notifier)
	evt := appendEvent(t, store, "organization", "org-1", "organization.created", map[string]interface{}{
		"name":     "Acme",
		"contacts": []interface{}{map[string]interface{}{"email": "a@acme.test"}},
	})

	require.NoError(t, d.Dispatch(context.Background(), evt))
	require.NotNil(t, evt.ProcessedAt)
	first := snapshot(t, store)

	require.NoError(t, d.Dispatch(context.Background(), evt))
	assert.Equal(t, first, snapshot(t, store))
	notifier.AssertExpectations(t)
}

func TestDispatch_AppliesStreamInVersionOrder(t *testing.T) {
	store := memory.NewStore()
	d := NewDispatcher(store, nil)

	created := appendEvent(t, store, "organization_unit", "ou-1", "organization_unit.created", map[string]interface{}{"name": "A"})
	second := appendEvent(t, store, "organization_unit", "ou-1", "organization_unit.updated", map[string]interface{}{"name": "B"})
	third := appendEvent(t, store, "organization_unit", "ou-1", "organization_unit.updated", map[string]interface{}{"name": "C"})

	// Submitted newest first.
	require.NoError(t, d.Dispatch(context.Background(), third))
	require.NoError(t, d.Dispatch(context.Background(), second))
	require.NoError(t, d.Dispatch(context.Background(), created))

	row, err := store.Reader().Get(context.Background(), storage.TableOrganizationUnits, storage.Row{"id": "ou-1"})
	require.NoError(t, err)
	assert.Equal(t, "C", row["name"])

	for _, evt := range []*v1.Event{created, second, third} {
		stored, err := store.Get(context.Background(), evt.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.ProcessedAt, "version %d", evt.StreamVersion)
	}
}

func TestDispatch_ConcurrentSubmissionsMatchSequentialApplication(t *testing.T) {
	store := memory.NewStore()
	d := NewDispatcher(store, nil)

	const streams = 20
	var all []*v1.Event
	for i := 0; i < streams; i++ {
		id := fmt.Sprintf("ou-%d", i)
		all = append(all,
			appendEvent(t, store, "organization_unit", id, "organization_unit.created", map[string]interface{}{"name": "v1"}),
			appendEvent(t, store, "organization_unit", id, "organization_unit.updated", map[string]interface{}{"name": "v2"}),
			appendEvent(t, store, "organization_unit", id, "organization_unit.deactivated", nil),
		)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(evt *v1.Event) {
			defer wg.Done()
			errs <- d.Dispatch(context.Background(), evt)
		}(all[i])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rows, err := store.Reader().Find(context.Background(), storage.TableOrganizationUnits, storage.Row{}, 0)
	require.NoError(t, err)
	require.Len(t, rows, streams)
	for _, row := range rows {
		assert.Equal(t, "v2", row["name"])
		assert.Equal(t, false, row["is_active"])
	}
}

func TestDispatch_FailingEarlierEventRollsBackWholeStream(t *testing.T) {
	store := memory.NewStore()
	d := NewDispatcher(store, nil)

	created := appendEvent(t, store, "organization", "org-1", "organization.created", map[string]interface{}{"name": "Acme"})
	broken := appendEvent(t, store, "organization", "org-1", "organization.renamed", nil)
	later := appendEvent(t, store, "organization", "org-1", "organization.activated", nil)

	err := d.Dispatch(context.Background(), later)
	require.ErrorIs(t, err, projection.ErrUnhandledEventType)
	require.ErrorContains(t, err, fmt.Sprintf("event %s", broken.ID))

	_, err = store.Reader().Get(context.Background(), storage.TableOrganizations, storage.Row{"id": "org-1"})
	require.ErrorIs(t, err, storage.ErrNotFound)
	for _, evt := range []*v1.Event{created, broken, later} {
		requireUnprocessed(t, store, evt.ID)
	}
}

func TestDispatch_RejectsEnvelopeProblems(t *testing.T) {
	store := memory.NewStore()
	d := NewDispatcher(store, nil)

	invalid := &v1.Event{ID: "evt-1", StreamType: "organization", EventType: "organization.created", CreatedAt: t0}
	require.ErrorIs(t, d.Dispatch(context.Background(), invalid), ErrInvalidEnvelope)

	notAppended := &v1.Event{
		ID: "evt-404", StreamID: "org-1", StreamType: "organization",
		EventType: "organization.created", CreatedAt: t0,
	}
	err := d.Dispatch(context.Background(), notAppended)
	require.ErrorIs(t, err, ErrNotAppended)
	require.False(t, IsFatal(err))
}

func TestDispatch_NotificationFailureIsNotFatal(t *testing.T) {
	store := memory.NewStore()
	notifier := dispatchmocks.NewNotifier(t)
	notifier.EXPECT().Publish(mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

	d := NewDispatcher(store, notifier)
	evt := appendEvent(t, store, "role_permission", "role-1", "role.created", map[string]interface{}{"name": "admin"})

	require.NoError(t, d.Dispatch(context.Background(), evt))
	notifier.AssertExpectations(t)
}

func snapshot(t *testing.T, store *memory.Store) map[string][]storage.Row {
	t.Helper()
	out := make(map[string][]storage.Row)
	for _, table := range storage.Tables() {
		rows, err := store.Reader().Find(context.Background(), table, storage.Row{}, 0)
		require.NoError(t, err)
		out[table] = rows
	}
	return out
}
