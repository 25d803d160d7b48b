package projection

import (
	"context"
	"fmt"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
)

// Invitation status values.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRevoked  = "revoked"
	InvitationExpired  = "expired"
)

const (
	ActionInvitationCreated  Action = "invitation.created"
	ActionInvitationAccepted Action = "invitation.accepted"
	ActionInvitationRevoked  Action = "invitation.revoked"
	ActionInvitationExpired  Action = "invitation.expired"
)

func invitationRouter() *Router {
	return newRouter(CategoryInvitation, []string{"invitation"}, map[Action]HandlerFunc{
		ActionInvitationCreated:  invitationCreated,
		ActionInvitationAccepted: invitationAccepted,
		ActionInvitationRevoked:  invitationRevoked,
		ActionInvitationExpired:  invitationExpired,
	})
}

func invitationCreated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	err := tx.Upsert(ctx, storage.TableInvitations, storage.Row{
		"id":              evt.StreamID,
		"organization_id": p.ID("organization_id"),
		"email":           p.Text("email"),
		"first_name":      p.Text("first_name"),
		"last_name":       p.Text("last_name"),
		"role":            p.Text("role"),
		"token":           nullableText(p, "token"),
		"status":          InvitationPending,
		"expires_at":      nullableTime(p.OptionalTime("expires_at")),
		"created_at":      at,
		"updated_at":      at,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}
	return nil
}

func invitationAccepted(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	return updateByID(ctx, tx, evt, storage.TableInvitations, evt.StreamID, storage.Row{
		"status":      InvitationAccepted,
		"accepted_at": p.Time("accepted_at", at),
		"accepted_by": nullableText(p, "user_id"),
		"updated_at":  at,
	})
}

func invitationRevoked(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	return updateByID(ctx, tx, evt, storage.TableInvitations, evt.StreamID, storage.Row{
		"status":            InvitationRevoked,
		"revoked_at":        at,
		"revocation_reason": nullableText(p, "reason"),
		"updated_at":        at,
	})
}

func invitationExpired(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	return updateByID(ctx, tx, evt, storage.TableInvitations, evt.StreamID, storage.Row{
		"status":     InvitationExpired,
		"updated_at": eventTime(evt),
	})
}
