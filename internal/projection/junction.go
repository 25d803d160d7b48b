package projection

import (
	"context"
	"fmt"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
)

const (
	ActionUserRoleAssigned Action = "user_role.assigned"
	ActionUserRoleRevoked  Action = "user_role.revoked"
)

func junctionRouter() *Router {
	return newRouter(CategoryJunction, []string{"user_role"}, map[Action]HandlerFunc{
		ActionUserRoleAssigned: userRoleAssigned,
		ActionUserRoleRevoked:  userRoleRevoked,
	})
}

// userRoleKey resolves the junction key. Producers that only know the acting
// user or organization put it in event_metadata.
func userRoleKey(evt *v1.Event) (storage.Row, error) {
	p, meta := payload(evt), metadata(evt)

	userID := p.ID("user_id")
	if userID == "" {
		userID = meta.ID("user_id")
	}
	orgID := p.ID("organization_id")
	if orgID == "" {
		orgID = meta.ID("organization_id")
	}
	roleID := p.ID("role_id")

	switch {
	case userID == "":
		return nil, missingTarget(evt.EventType, "user_id")
	case roleID == "":
		return nil, missingTarget(evt.EventType, "role_id")
	case orgID == "":
		return nil, missingTarget(evt.EventType, "organization_id")
	}
	return storage.Row{"user_id": userID, "role_id": roleID, "organization_id": orgID}, nil
}

func userRoleAssigned(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	row, err := userRoleKey(evt)
	if err != nil {
		return err
	}
	row["assigned_at"] = eventTime(evt)
	if err := tx.Upsert(ctx, storage.TableUserRoles, row); err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}
	return nil
}

func userRoleRevoked(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	key, err := userRoleKey(evt)
	if err != nil {
		return err
	}
	n, err := tx.Delete(ctx, storage.TableUserRoles, key)
	if err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}
	if n == 0 {
		return missingRow(evt, storage.TableUserRoles, fmt.Sprintf("%s/%s", key["user_id"], key["role_id"]))
	}
	return nil
}
