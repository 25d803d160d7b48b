package projection

import (
	"context"
	"fmt"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
)

// Access grant status values.
const (
	GrantActive    = "active"
	GrantRevoked   = "revoked"
	GrantSuspended = "suspended"
)

// Lifecycle events on a grant name their target in grant_id.
const (
	ActionAccessGrantCreated     Action = "access_grant.created"
	ActionAccessGrantRevoked     Action = "access_grant.revoked"
	ActionAccessGrantSuspended   Action = "access_grant.suspended"
	ActionAccessGrantReactivated Action = "access_grant.reactivated"
)

func accessGrantRouter() *Router {
	return newRouter(CategoryAccessGrant, []string{"access_grant"}, map[Action]HandlerFunc{
		ActionAccessGrantCreated:     accessGrantCreated,
		ActionAccessGrantRevoked:     accessGrantRevoked,
		ActionAccessGrantSuspended:   accessGrantSuspended,
		ActionAccessGrantReactivated: accessGrantReactivated,
	})
}

func accessGrantCreated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	err := tx.Upsert(ctx, storage.TableAccessGrants, storage.Row{
		"id":                targetID(evt, "grant_id"),
		"consultant_org_id": p.ID("consultant_org_id"),
		"provider_org_id":   p.ID("provider_org_id"),
		"user_id":           nullableText(p, "user_id"),
		"scope":             p.TextOr("scope", "full"),
		"status":            GrantActive,
		"expires_at":        nullableTime(p.OptionalTime("expires_at")),
		"created_at":        at,
		"updated_at":        at,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}
	return nil
}

func accessGrantRevoked(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	return updateByID(ctx, tx, evt, storage.TableAccessGrants, targetID(evt, "grant_id"), storage.Row{
		"status":            GrantRevoked,
		"revoked_at":        p.Time("revoked_at", at),
		"revoked_by":        nullableText(p, "revoked_by"),
		"revocation_reason": nullableText(p, "revocation_reason"),
		"updated_at":        at,
	})
}

func accessGrantSuspended(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	return updateByID(ctx, tx, evt, storage.TableAccessGrants, targetID(evt, "grant_id"), storage.Row{
		"status":            GrantSuspended,
		"suspended_at":      at,
		"suspension_reason": nullableText(p, "reason"),
		"updated_at":        at,
	})
}

func accessGrantReactivated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	return updateByID(ctx, tx, evt, storage.TableAccessGrants, targetID(evt, "grant_id"), storage.Row{
		"status":            GrantActive,
		"suspended_at":      nil,
		"suspension_reason": nil,
		"updated_at":        eventTime(evt),
	})
}
