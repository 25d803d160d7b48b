//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/workflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func organizationCreated(orgID string) v1.Event {
	return v1.Event{
		StreamID:      orgID,
		StreamType:    "organization",
		StreamVersion: 1,
		EventType:     "organization.created",
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
		EventData: map[string]interface{}{
			"name":     "Integration Org",
			"type":     "provider",
			"timezone": "UTC",
			"contacts": []interface{}{
				map[string]interface{}{"label": "primary", "first_name": "Ada", "last_name": "L", "email": "ada@example.test"},
			},
		},
	}
}

func TestEventsAPI_AppliesAndReadsProjection(t *testing.T) {
	h := startHarness(t)
	defer h.close(t)

	orgID := uuid.NewString()
	status, body := postJSON(t, h.client, h.baseURL+"/v1/events", organizationCreated(orgID))
	require.Equal(t, http.StatusAccepted, status, string(body))

	var org map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, h.client, h.baseURL+"/v1/projections/organizations/"+orgID, &org))
	assert.Equal(t, "Integration Org", org["name"])
	assert.Equal(t, "provisioning", org["status"])

	var contacts struct {
		Count int `json:"count"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, h.client, h.baseURL+"/v1/projections/organization_contacts?organization_id="+orgID, &contacts))
	assert.Equal(t, 1, contacts.Count)

	activated := v1.Event{
		StreamID:      orgID,
		StreamType:    "organization",
		StreamVersion: 2,
		EventType:     "organization.activated",
		CreatedAt:     time.Now().UTC().Truncate(time.Second).Add(time.Second),
		EventData:     map[string]interface{}{},
	}
	status, body = postJSON(t, h.client, h.baseURL+"/v1/events", activated)
	require.Equal(t, http.StatusAccepted, status, string(body))

	require.Equal(t, http.StatusOK, getJSON(t, h.client, h.baseURL+"/v1/projections/organizations/"+orgID, &org))
	assert.Equal(t, "active", org["status"])
}

func TestEventsAPI_ConflictsAndUnknownTypes(t *testing.T) {
	h := startHarness(t)
	defer h.close(t)

	orgID := uuid.NewString()
	evt := organizationCreated(orgID)
	evt.ID = uuid.NewString()
	status, body := postJSON(t, h.client, h.baseURL+"/v1/events", evt)
	require.Equal(t, http.StatusAccepted, status, string(body))

	status, body = postJSON(t, h.client, h.baseURL+"/v1/events", evt)
	require.Equal(t, http.StatusConflict, status, string(body))

	unknown := v1.Event{
		StreamID:   uuid.NewString(),
		StreamType: "spaceship",
		EventType:  "spaceship.launched",
		CreatedAt:  time.Now().UTC(),
		EventData:  map[string]interface{}{},
	}
	status, body = postJSON(t, h.client, h.baseURL+"/v1/events", unknown)
	require.Equal(t, http.StatusUnprocessableEntity, status, string(body))

	var count int
	require.NoError(t, h.db.QueryRow(`SELECT COUNT(*) FROM events WHERE stream_id=$1 AND processed_at IS NULL`, unknown.StreamID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSweeper_AppliesEventsAppendedWithoutDispatch(t *testing.T) {
	h := startHarness(t)
	defer h.close(t)

	orgID := uuid.NewString()
	evt := organizationCreated(orgID)
	require.NoError(t, h.adapter.Append(context.Background(), &evt))

	require.Equal(t, http.StatusNotFound, getJSON(t, h.client, h.baseURL+"/v1/projections/organizations/"+orgID, nil))

	stats := h.sweeper.Drain(context.Background())
	assert.Equal(t, 1, stats.Applied)

	require.Equal(t, http.StatusOK, getJSON(t, h.client, h.baseURL+"/v1/projections/organizations/"+orgID, nil))
}

func TestProvisioning_WithoutSubdomainCompletes(t *testing.T) {
	h := startHarness(t)
	defer h.close(t)

	params := workflow.Params{
		OrganizationName: fmt.Sprintf("Integration %d", time.Now().UnixNano()),
		OrganizationType: "provider",
		Users: []workflow.InvitedUser{
			{Email: "first@example.test", FirstName: "First", Role: "admin"},
			{Email: "second@example.test", FirstName: "Second"},
		},
	}
	status, body := postJSON(t, h.client, h.baseURL+"/v1/provisioning", params)
	require.Equal(t, http.StatusAccepted, status, string(body))

	var started struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, decode(body, &started))

	var res struct {
		Status          string   `json:"status"`
		OrgID           string   `json:"org_id"`
		DNSSkipped      bool     `json:"dns_skipped"`
		InvitationsSent int      `json:"invitations_sent"`
		Errors          []string `json:"errors"`
	}
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		require.Equal(t, http.StatusOK, getJSON(t, h.client, h.baseURL+"/v1/provisioning/"+started.RunID, &res))
		if res.Status == string(workflow.StatusCompleted) || res.Status == string(workflow.StatusFailed) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	require.Equal(t, string(workflow.StatusCompleted), res.Status, "errors: %v", res.Errors)
	assert.True(t, res.DNSSkipped)
	assert.Equal(t, 2, res.InvitationsSent)
	assert.Equal(t, 2, h.mailer.count())

	var org map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, h.client, h.baseURL+"/v1/projections/organizations/"+res.OrgID, &org))
	assert.Equal(t, "active", org["status"])

	var invitations struct {
		Count int `json:"count"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, h.client, h.baseURL+"/v1/projections/invitations?organization_id="+res.OrgID, &invitations))
	assert.Equal(t, 2, invitations.Count)
}
