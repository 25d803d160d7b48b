package postgres

import (
	"fmt"
	"strings"

	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/lib/pq"
)

// Projection SQL is generated from the table catalog. Every identifier has
// already passed TableSpec.CheckRow and is quoted again on the way out.

type sqlArgs struct {
	values []interface{}
}

func (a *sqlArgs) add(v interface{}) string {
	a.values = append(a.values, v)
	return fmt.Sprintf("$%d", len(a.values))
}

// buildUpsert renders an INSERT ... ON CONFLICT for one row. On tables with
// updated_at the conflict branch only fires when the stored row is not newer.
func buildUpsert(spec storage.TableSpec, row storage.Row) (string, []interface{}) {
	var args sqlArgs
	cols := storage.SortedColumns(row)

	names := make([]string, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	var updates []string
	for _, col := range cols {
		names = append(names, pq.QuoteIdentifier(col))
		placeholders = append(placeholders, args.add(row[col]))
		if !spec.IsKey(col) {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", pq.QuoteIdentifier(col), pq.QuoteIdentifier(col)))
		}
	}

	keys := make([]string, 0, len(spec.Key))
	for _, k := range spec.Key {
		keys = append(keys, pq.QuoteIdentifier(k))
	}

	table := pq.QuoteIdentifier(spec.Name)
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "), strings.Join(keys, ", "))

	if len(updates) == 0 {
		b.WriteString("DO NOTHING")
		return b.String(), args.values
	}

	fmt.Fprintf(&b, "DO UPDATE SET %s", strings.Join(updates, ", "))
	if _, guarded := row["updated_at"]; guarded && spec.HasUpdatedAt() {
		fmt.Fprintf(&b, " WHERE %s.updated_at IS NULL OR %s.updated_at <= EXCLUDED.updated_at", table, table)
	}
	return b.String(), args.values
}

// buildSelect renders a filtered read ordered by the table key.
func buildSelect(spec storage.TableSpec, filter storage.Row, limit int) (string, []interface{}) {
	var args sqlArgs

	cols := spec.AllColumns()
	quoted := make([]string, 0, len(cols))
	for _, c := range cols {
		quoted = append(quoted, pq.QuoteIdentifier(c))
	}
	keys := make([]string, 0, len(spec.Key))
	for _, k := range spec.Key {
		keys = append(keys, pq.QuoteIdentifier(k))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(quoted, ", "), pq.QuoteIdentifier(spec.Name))
	if where := whereClause(filter, &args); where != "" {
		b.WriteString(" WHERE " + where)
	}
	fmt.Fprintf(&b, " ORDER BY %s", strings.Join(keys, ", "))
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %s", args.add(limit))
	}
	return b.String(), args.values
}

// buildUpdate renders an UPDATE of set columns on rows matching filter.
func buildUpdate(spec storage.TableSpec, filter, set storage.Row) (string, []interface{}) {
	var args sqlArgs

	cols := storage.SortedColumns(set)
	assignments := make([]string, 0, len(cols))
	for _, col := range cols {
		assignments = append(assignments, fmt.Sprintf("%s = %s", pq.QuoteIdentifier(col), args.add(set[col])))
	}

	query := fmt.Sprintf("UPDATE %s SET %s", pq.QuoteIdentifier(spec.Name), strings.Join(assignments, ", "))
	if where := whereClause(filter, &args); where != "" {
		query += " WHERE " + where
	}
	return query, args.values
}

// buildDelete renders a DELETE of rows matching filter.
func buildDelete(spec storage.TableSpec, filter storage.Row) (string, []interface{}) {
	var args sqlArgs
	query := fmt.Sprintf("DELETE FROM %s", pq.QuoteIdentifier(spec.Name))
	if where := whereClause(filter, &args); where != "" {
		query += " WHERE " + where
	}
	return query, args.values
}

func whereClause(filter storage.Row, args *sqlArgs) string {
	if len(filter) == 0 {
		return ""
	}
	cols := storage.SortedColumns(filter)
	conds := make([]string, 0, len(cols))
	for _, col := range cols {
		if filter[col] == nil {
			conds = append(conds, pq.QuoteIdentifier(col)+" IS NULL")
			continue
		}
		conds = append(conds, fmt.Sprintf("%s = %s", pq.QuoteIdentifier(col), args.add(filter[col])))
	}
	return strings.Join(conds, " AND ")
}
