package projection

import (
	"context"
	"fmt"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/eventdata"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
)

// Organization status values.
const (
	OrgStatusProvisioning = "provisioning"
	OrgStatusActive       = "active"
	OrgStatusInactive     = "inactive"
	OrgStatusDeleted      = "deleted"
)

const (
	ActionOrganizationCreated                Action = "organization.created"
	ActionOrganizationUpdated                Action = "organization.updated"
	ActionOrganizationActivated              Action = "organization.activated"
	ActionOrganizationDeactivated            Action = "organization.deactivated"
	ActionOrganizationReactivated            Action = "organization.reactivated"
	ActionOrganizationDeleted                Action = "organization.deleted"
	ActionOrganizationDNSConfigured          Action = "organization.dns_configured"
	ActionOrganizationDNSVerified            Action = "organization.dns_verified"
	ActionOrganizationDNSRemoved             Action = "organization.dns_removed"
	ActionOrganizationProvisionalDataRemoved Action = "organization.provisional_data_removed"
)

func organizationRouter() *Router {
	return newRouter(CategoryOrganization, []string{"organization"}, map[Action]HandlerFunc{
		ActionOrganizationCreated:                organizationCreated,
		ActionOrganizationUpdated:                organizationUpdated,
		ActionOrganizationActivated:              organizationActivated,
		ActionOrganizationDeactivated:            organizationDeactivated,
		ActionOrganizationReactivated:            organizationReactivated,
		ActionOrganizationDeleted:                organizationDeleted,
		ActionOrganizationDNSConfigured:          organizationDNSConfigured,
		ActionOrganizationDNSVerified:            organizationDNSVerified,
		ActionOrganizationDNSRemoved:             organizationDNSRemoved,
		ActionOrganizationProvisionalDataRemoved: organizationProvisionalDataRemoved,
	})
}

func organizationCreated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	name := p.Text("name")

	row := storage.Row{
		"id":           evt.StreamID,
		"name":         name,
		"display_name": p.TextOr("display_name", name),
		"type":         p.Text("type"),
		"subdomain":    nullableText(p, "subdomain"),
		"parent_id":    nullableText(p, "parent_id"),
		"timezone":     p.TextOr("timezone", "UTC"),
		"status":       OrgStatusProvisioning,
		"is_active":    true,
		"created_at":   at,
		"updated_at":   at,
	}
	if err := tx.Upsert(ctx, storage.TableOrganizations, row); err != nil {
		return fmt.Errorf("%s: %w", evt.EventType, err)
	}

	children := []struct {
		table string
		kind  string
		key   string
		build func(p eventdata.Payload, row storage.Row)
	}{
		{storage.TableOrganizationContacts, "contact", "contacts", func(c eventdata.Payload, row storage.Row) {
			row["first_name"] = c.Text("first_name")
			row["last_name"] = c.Text("last_name")
			row["email"] = c.Text("email")
			row["title"] = nullableText(c, "title")
		}},
		{storage.TableOrganizationAddresses, "address", "addresses", func(a eventdata.Payload, row storage.Row) {
			row["street1"] = a.Text("street1")
			row["street2"] = nullableText(a, "street2")
			row["city"] = a.Text("city")
			row["state"] = a.Text("state")
			row["zip_code"] = a.Text("zip_code")
			row["country"] = a.TextOr("country", "US")
		}},
		{storage.TableOrganizationPhones, "phone", "phones", func(ph eventdata.Payload, row storage.Row) {
			row["number"] = ph.Text("number")
			row["extension"] = nullableText(ph, "extension")
			row["type"] = ph.TextOr("type", "office")
		}},
	}
	for _, child := range children {
		for _, r := range childRows(evt, child.kind, evt.StreamID, p.Objects(child.key), child.build) {
			if err := tx.Upsert(ctx, child.table, r); err != nil {
				return fmt.Errorf("%s: %s: %w", evt.EventType, child.kind, err)
			}
		}
	}
	return nil
}

func organizationUpdated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	set := storage.Row{"updated_at": eventTime(evt)}
	setText(set, p, "name", "name")
	setText(set, p, "display_name", "display_name")
	setText(set, p, "timezone", "timezone")
	return updateByID(ctx, tx, evt, storage.TableOrganizations, evt.StreamID, set)
}

func organizationActivated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	at := eventTime(evt)
	return updateByID(ctx, tx, evt, storage.TableOrganizations, evt.StreamID, storage.Row{
		"status":       OrgStatusActive,
		"is_active":    true,
		"activated_at": payload(evt).Time("activated_at", at),
		"updated_at":   at,
	})
}

func organizationDeactivated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	return updateByID(ctx, tx, evt, storage.TableOrganizations, evt.StreamID, storage.Row{
		"status":              OrgStatusInactive,
		"is_active":           false,
		"deactivated_at":      p.Time("deactivated_at", at),
		"deactivation_reason": nullableText(p, "reason"),
		"updated_at":          at,
	})
}

func organizationReactivated(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	return updateByID(ctx, tx, evt, storage.TableOrganizations, evt.StreamID, storage.Row{
		"status":              OrgStatusActive,
		"is_active":           true,
		"deactivated_at":      nil,
		"deactivation_reason": nil,
		"updated_at":          eventTime(evt),
	})
}

func organizationDeleted(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	at := eventTime(evt)
	return updateByID(ctx, tx, evt, storage.TableOrganizations, evt.StreamID, storage.Row{
		"status":          OrgStatusDeleted,
		"is_active":       false,
		"deleted_at":      p.Time("deleted_at", at),
		"deletion_reason": nullableText(p, "reason"),
		"updated_at":      at,
	})
}

func organizationDNSConfigured(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	p := payload(evt)
	return updateByID(ctx, tx, evt, storage.TableOrganizations, evt.StreamID, storage.Row{
		"dns_record_id": nullableText(p, "dns_record_id"),
		"domain":        nullableText(p, "domain"),
		"updated_at":    eventTime(evt),
	})
}

func organizationDNSVerified(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	at := eventTime(evt)
	return updateByID(ctx, tx, evt, storage.TableOrganizations, evt.StreamID, storage.Row{
		"dns_verified_at": payload(evt).Time("verified_at", at),
		"updated_at":      at,
	})
}

func organizationDNSRemoved(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	return updateByID(ctx, tx, evt, storage.TableOrganizations, evt.StreamID, storage.Row{
		"dns_record_id":   nil,
		"domain":          nil,
		"dns_verified_at": nil,
		"updated_at":      eventTime(evt),
	})
}

// organizationProvisionalDataRemoved drops the contact, address and phone rows
// created alongside the organization. The organization row itself stays.
func organizationProvisionalDataRemoved(ctx context.Context, tx storage.ProjectionTx, evt *v1.Event) error {
	owned := storage.Row{"organization_id": evt.StreamID}
	for _, table := range []string{
		storage.TableOrganizationContacts,
		storage.TableOrganizationAddresses,
		storage.TableOrganizationPhones,
	} {
		if _, err := tx.Delete(ctx, table, owned); err != nil {
			return fmt.Errorf("%s: %w", evt.EventType, err)
		}
	}
	return updateByID(ctx, tx, evt, storage.TableOrganizations, evt.StreamID, storage.Row{
		"updated_at": eventTime(evt),
	})
}
