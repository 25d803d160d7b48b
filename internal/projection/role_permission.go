package projection

import (
	"context"
	"fmt"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
)

const (
	ActionRoleCreated           Action = "role.created"
	ActionRoleUpdated           Action = "role.updated"
	ActionRoleDeleted           Action = "role.deleted"
	ActionRolePermissionGranted Action = "role.permission_granted"
	ActionRolePermissionRevoked Action = "role.permission_revoked"
	ActionPermissionDefined     Action = "permission.defined"
)

func rolePermissionRouter() *Router {
	return newRouter(CategoryRolePermission, []string{"role", "permission"}, map[Action]HandlerFunc{
		ActionRoleCreated:           roleCreated,
		ActionRoleUpdated:           roleUpdated,
		ActionRoleDeleted:           roleDeleted,
		ActionRolePermissionGranted: rolePermissionGranted,
		ActionRolePermissionRevoked: rolePermissionRevoked,
		ActionPermissionDefined:     permissionDefined,
	})
}

func roleCreated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	err := tx.Upsert(ctx, storage.TableRoles, storage.Row{
		"id":              evt.StreamID,
		"organization_id": nullableText(p, "organization_id"),
		"name":            p.Text("name"),
		"description":     nullableText(p, "description"),
		"created_at":      at,
		"updated_at":      at,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}
	return nil
}

func roleUpdated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	set := storage.Row{"updated_at": eventTime(evt)}
	setText(set, p, "name", "name")
	setText(set, p, "description", "description")
	return updateByID(ctx, tx, evt, storage.TableRoles, evt.StreamID, set)
}

func roleDeleted(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	at := eventTime(evt)
	return updateByID(ctx, tx, evt, storage.TableRoles, evt.StreamID, storage.Row{
		"deleted_at": payload(evt).Time("deleted_at", at),
		"updated_at": at,
	})
}

func rolePermissionGranted(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	permissionID := payload(evt).ID("permission_id")
	if permissionID == "" {
		return missingTarget(evt.EventType, "permission_id")
	}
	err := tx.Upsert(ctx, storage.TableRolePermissions, storage.Row{
		"role_id":       evt.StreamID,
		"permission_id": permissionID,
		"granted_at":    eventTime(evt),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}
	return nil
}

func rolePermissionRevoked(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	permissionID := payload(evt).ID("permission_id")
	if permissionID == "" {
		return missingTarget(evt.EventType, "permission_id")
	}
	n, err := tx.Delete(ctx, storage.TableRolePermissions, storage.Row{
		"role_id":       evt.StreamID,
		"permission_id": permissionID,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}
	if n == 0 {
		return missingRow(evt, storage.TableRolePermissions, permissionID)
	}
	return nil
}

func permissionDefined(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	err := tx.Upsert(ctx, storage.TablePermissions, storage.Row{
		"id":          targetID(evt, "permission_id"),
		"applet":      p.Text("applet"),
		"action":      p.Text("action"),
		"description": nullableText(p, "description"),
		"scope_type":  p.TextOr("scope_type", "organization"),
		"created_at":  at,
		"updated_at":  at,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}
	return nil
}
