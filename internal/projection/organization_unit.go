package projection

import (
	"context"
	"fmt"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
)

const (
	ActionOrganizationUnitCreated     Action = "organization_unit.created"
	ActionOrganizationUnitUpdated     Action = "organization_unit.updated"
	ActionOrganizationUnitDeactivated Action = "organization_unit.deactivated"
	ActionOrganizationUnitReactivated Action = "organization_unit.reactivated"
	ActionOrganizationUnitDeleted     Action = "organization_unit.deleted"
)

func organizationUnitRouter() *Router {
	return newRouter(CategoryOrganizationUnit, []string{"organization_unit"}, map[Action]HandlerFunc{
		ActionOrganizationUnitCreated:     organizationUnitCreated,
		ActionOrganizationUnitUpdated:     organizationUnitUpdated,
		ActionOrganizationUnitDeactivated: organizationUnitDeactivated,
		ActionOrganizationUnitReactivated: organizationUnitReactivated,
		ActionOrganizationUnitDeleted:     organizationUnitDeleted,
	})
}

func organizationUnitCreated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	name := p.Text("name")

	orgID := p.ID("organization_id")
	if orgID == "" {
		orgID = metadata(evt).ID("organization_id")
	}

	err := tx.Upsert(ctx, storage.TableOrganizationUnits, storage.Row{
		"id":              evt.StreamID,
		"organization_id": orgID,
		"parent_id":       nullableText(p, "parent_id"),
		"name":            name,
		"display_name":    p.TextOr("display_name", name),
		"timezone":        p.TextOr("timezone", "UTC"),
		"is_active":       true,
		"created_at":      at,
		"updated_at":      at,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}
	return nil
}

func organizationUnitUpdated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	set := storage.Row{"updated_at": eventTime(evt)}
	setText(set, p, "name", "name")
	setText(set, p, "display_name", "display_name")
	setText(set, p, "timezone", "timezone")
	if p.Has("parent_id") {
		set["parent_id"] = nullableText(p, "parent_id")
	}
	return updateByID(ctx, tx, evt, storage.TableOrganizationUnits, evt.StreamID, set)
}

func organizationUnitDeactivated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	at := eventTime(evt)
	return updateByID(ctx, tx, evt, storage.TableOrganizationUnits, evt.StreamID, storage.Row{
		"is_active":      false,
		"deactivated_at": payload(evt).Time("deactivated_at", at),
		"updated_at":     at,
	})
}

func organizationUnitReactivated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	return updateByID(ctx, tx, evt, storage.TableOrganizationUnits, evt.StreamID, storage.Row{
		"is_active":      true,
		"deactivated_at": nil,
		"updated_at":     eventTime(evt),
	})
}

func organizationUnitDeleted(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	at := eventTime(evt)
	return updateByID(ctx, tx, evt, storage.TableOrganizationUnits, evt.StreamID, storage.Row{
		"is_active":  false,
		"deleted_at": payload(evt).Time("deleted_at", at),
		"updated_at": at,
	})
}
