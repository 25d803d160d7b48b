package projection

import (
	"context"
	"sort"
	"testing"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/aevon-lab/tenantflow/internal/core/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// declaredEventTypes is the published event catalog, per category.
var declaredEventTypes = map[Category][]string{
	CategoryOrganization: {
		"organization.created", "organization.updated", "organization.activated",
		"organization.deactivated", "organization.reactivated", "organization.deleted",
		"organization.dns_configured", "organization.dns_verified", "organization.dns_removed",
		"organization.provisional_data_removed",
	},
	CategoryOrganizationUnit: {
		"organization_unit.created", "organization_unit.updated", "organization_unit.deactivated",
		"organization_unit.reactivated", "organization_unit.deleted",
	},
	CategoryRolePermission: {
		"role.created", "role.updated", "role.deleted",
		"role.permission_granted", "role.permission_revoked", "permission.defined",
	},
	CategoryInvitation: {
		"invitation.created", "invitation.accepted", "invitation.revoked", "invitation.expired",
	},
	CategoryAccessGrant: {
		"access_grant.created", "access_grant.revoked", "access_grant.suspended", "access_grant.reactivated",
	},
	CategoryJunction: {
		"user_role.assigned", "user_role.revoked",
	},
	CategorySchedule: {
		"schedule.created", "schedule.updated", "schedule.deactivated", "schedule.reactivated",
		"schedule_assignment.created", "schedule_assignment.ended",
	},
}

func TestRouters_CoverEveryCategoryAndNothingElse(t *testing.T) {
	routers := Routers()

	require.Len(t, routers, len(Categories()))
	for _, category := range Categories() {
		r, ok := routers[category]
		require.True(t, ok, "no router for category %q", category)
		assert.Equal(t, category, r.Category())
	}
	for category := range routers {
		assert.Contains(t, Categories(), category)
	}
	for category := range declaredEventTypes {
		assert.Contains(t, Categories(), category, "catalog category %q unknown to dispatch", category)
	}
}

func TestRouters_EveryDeclaredEventTypeRoutes(t *testing.T) {
	routers := Routers()

	for category, types := range declaredEventTypes {
		want := append([]string(nil), types...)
		sort.Strings(want)
		assert.Equal(t, want, routers[category].EventTypes(), "router %q table drifted from catalog", category)

		for _, eventType := range types {
			evt := &v1.Event{StreamType: string(category), EventType: eventType}
			assert.True(t, routers[category].Accepts(evt), "%s rejects %s", category, eventType)
		}
	}
}

func TestRouter_UnhandledEventTypes(t *testing.T) {
	store := memory.NewStore()
	routers := Routers()

	tests := []struct {
		name     string
		category Category
		event    string
	}{
		{name: "unknown action", category: CategoryOrganization, event: "organization.renamed"},
		{name: "prefix from another category", category: CategoryOrganization, event: "role.created"},
		{name: "action of a sibling prefix", category: CategorySchedule, event: "schedule_assignment.deactivated"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			evt := &v1.Event{ID: "evt-1", StreamID: "s-1", StreamType: string(tc.category), EventType: tc.event}
			err := store.InStream(context.Background(), evt.StreamID, func(tx storage.StreamTx) error {
				return routers[tc.category].Route(context.Background(), tx, evt)
			})
			require.ErrorIs(t, err, ErrUnhandledEventType)

			var unhandled *UnhandledEventTypeError
			require.ErrorAs(t, err, &unhandled)
			assert.Equal(t, tc.category, unhandled.Category)
			assert.Equal(t, tc.event, unhandled.EventType)
		})
	}
}

func TestRouters_ActionsBelongToTheirCategory(t *testing.T) {
	routers := Routers()

	tests := []struct {
		category Category
		action   Action
	}{
		{CategoryOrganization, ActionOrganizationCreated},
		{CategoryOrganization, ActionOrganizationDNSConfigured},
		{CategoryOrganization, ActionOrganizationProvisionalDataRemoved},
		{CategoryOrganizationUnit, ActionOrganizationUnitDeleted},
		{CategoryRolePermission, ActionPermissionDefined},
		{CategoryInvitation, ActionInvitationCreated},
		{CategoryInvitation, ActionInvitationRevoked},
		{CategoryAccessGrant, ActionAccessGrantSuspended},
		{CategoryJunction, ActionUserRoleAssigned},
		{CategorySchedule, ActionScheduleAssignmentEnded},
	}

	for _, tc := range tests {
		evt := &v1.Event{StreamType: string(tc.category), EventType: string(tc.action)}
		assert.True(t, routers[tc.category].Accepts(evt), "%s rejects %s", tc.category, tc.action)
		assert.Contains(t, routers[tc.category].EventTypes(), string(tc.action))
		for category, r := range routers {
			if category != tc.category {
				assert.NotContains(t, r.EventTypes(), string(tc.action), "%s also handled by %s", tc.action, category)
			}
		}
	}
}

func TestRouter_RoutesTypedAction(t *testing.T) {
	store := memory.NewStore()
	evt := &v1.Event{
		ID:         "evt-1",
		StreamID:   "inv-1",
		StreamType: string(CategoryInvitation),
		EventType:  string(ActionInvitationCreated),
		EventData:  map[string]interface{}{"organization_id": "org-1", "email": "a@acme.test"},
		CreatedAt:  t0,
	}
	require.NoError(t, store.InStream(context.Background(), evt.StreamID, func(tx storage.StreamTx) error {
		return Routers()[CategoryInvitation].Route(context.Background(), tx, evt)
	}))

	row, err := store.Reader().Get(context.Background(), storage.TableInvitations, storage.Row{"id": "inv-1"})
	require.NoError(t, err)
	assert.Equal(t, InvitationPending, row["status"])
	assert.Equal(t, "a@acme.test", row["email"])
}
