package storage

import (
	"fmt"
	"sort"
)

// Projection table names.
const (
	TableOrganizations         = "organizations"
	TableOrganizationContacts  = "organization_contacts"
	TableOrganizationAddresses = "organization_addresses"
	TableOrganizationPhones    = "organization_phones"
	TableOrganizationUnits     = "organization_units"
	TableRoles                 = "roles"
	TablePermissions           = "permissions"
	TableRolePermissions       = "role_permissions"
	TableUserRoles             = "user_roles"
	TableInvitations           = "invitations"
	TableAccessGrants          = "access_grants"
	TableSchedules             = "schedules"
	TableScheduleAssignments   = "schedule_assignments"
)

// TableSpec declares the addressable shape of one projection table.
// Column names reaching SQL are always checked against a TableSpec first.
type TableSpec struct {
	Name    string
	Key     []string
	Columns []string // non-key columns
}

// HasUpdatedAt reports whether upserts on this table are guarded by updated_at.
func (t TableSpec) HasUpdatedAt() bool {
	return t.has("updated_at")
}

// AllColumns returns key columns followed by the non-key columns.
func (t TableSpec) AllColumns() []string {
	out := make([]string, 0, len(t.Key)+len(t.Columns))
	out = append(out, t.Key...)
	return append(out, t.Columns...)
}

// IsKey reports whether col is part of the table key.
func (t TableSpec) IsKey(col string) bool {
	for _, k := range t.Key {
		if k == col {
			return true
		}
	}
	return false
}

func (t TableSpec) has(col string) bool {
	if t.IsKey(col) {
		return true
	}
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// CheckRow verifies every column of row is declared on the table.
func (t TableSpec) CheckRow(row Row) error {
	for col := range row {
		if !t.has(col) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, col)
		}
	}
	return nil
}

// KeyOf extracts the key columns of row. All key columns must be present.
func (t TableSpec) KeyOf(row Row) (Row, error) {
	key := make(Row, len(t.Key))
	for _, k := range t.Key {
		v, ok := row[k]
		if !ok || v == nil {
			return nil, fmt.Errorf("%s: key column %q is required", t.Name, k)
		}
		key[k] = v
	}
	return key, nil
}

// SortedColumns returns the row's column names in a stable order so generated SQL is deterministic.
func SortedColumns(row Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

var auditColumns = []string{"created_at", "updated_at"}

func withAudit(cols ...string) []string {
	return append(cols, auditColumns...)
}

var catalog = map[string]TableSpec{
	TableOrganizations: {
		Name: TableOrganizations,
		Key:  []string{"id"},
		Columns: withAudit(
			"name", "display_name", "type", "subdomain", "parent_id", "timezone",
			"status", "is_active", "dns_record_id", "domain", "dns_verified_at",
			"activated_at", "deactivated_at", "deactivation_reason", "deleted_at", "deletion_reason",
		),
	},
	TableOrganizationContacts: {
		Name:    TableOrganizationContacts,
		Key:     []string{"id"},
		Columns: withAudit("organization_id", "label", "first_name", "last_name", "email", "title"),
	},
	TableOrganizationAddresses: {
		Name:    TableOrganizationAddresses,
		Key:     []string{"id"},
		Columns: withAudit("organization_id", "label", "street1", "street2", "city", "state", "zip_code", "country"),
	},
	TableOrganizationPhones: {
		Name:    TableOrganizationPhones,
		Key:     []string{"id"},
		Columns: withAudit("organization_id", "label", "number", "extension", "type"),
	},
	TableOrganizationUnits: {
		Name: TableOrganizationUnits,
		Key:  []string{"id"},
		Columns: withAudit(
			"organization_id", "parent_id", "name", "display_name", "timezone",
			"is_active", "deactivated_at", "deleted_at",
		),
	},
	TableRoles: {
		Name:    TableRoles,
		Key:     []string{"id"},
		Columns: withAudit("organization_id", "name", "description", "deleted_at"),
	},
	TablePermissions: {
		Name:    TablePermissions,
		Key:     []string{"id"},
		Columns: withAudit("applet", "action", "description", "scope_type"),
	},
	TableRolePermissions: {
		Name:    TableRolePermissions,
		Key:     []string{"role_id", "permission_id"},
		Columns: []string{"granted_at"},
	},
	TableUserRoles: {
		Name:    TableUserRoles,
		Key:     []string{"user_id", "role_id", "organization_id"},
		Columns: []string{"assigned_at"},
	},
	TableInvitations: {
		Name: TableInvitations,
		Key:  []string{"id"},
		Columns: withAudit(
			"organization_id", "email", "first_name", "last_name", "role", "token", "status",
			"expires_at", "accepted_at", "accepted_by", "revoked_at", "revocation_reason",
		),
	},
	TableAccessGrants: {
		Name: TableAccessGrants,
		Key:  []string{"id"},
		Columns: withAudit(
			"consultant_org_id", "provider_org_id", "user_id", "scope", "status", "expires_at",
			"revoked_at", "revoked_by", "revocation_reason", "suspended_at", "suspension_reason",
		),
	},
	TableSchedules: {
		Name:    TableSchedules,
		Key:     []string{"id"},
		Columns: withAudit("organization_id", "name", "rrule", "timezone", "is_active", "deactivated_at"),
	},
	TableScheduleAssignments: {
		Name:    TableScheduleAssignments,
		Key:     []string{"id"},
		Columns: withAudit("schedule_id", "user_id", "starts_at", "ended_at"),
	},
}

// Lookup returns the spec for a projection table, or ErrUnknownTable.
func Lookup(table string) (TableSpec, error) {
	spec, ok := catalog[table]
	if !ok {
		return TableSpec{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return spec, nil
}

// Tables lists every projection table name, sorted.
func Tables() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
