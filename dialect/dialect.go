// Package dialect turns structured upsert and constraint-maintenance
// parameters into literal SQL for a concrete database. Generators are pure:
// they never touch a connection, they only return statement text and bind
// arguments for the caller to execute.
package dialect

import (
	"errors"
	"sort"

	"github.com/upsertkit/upsertkit/predicate"
	"github.com/upsertkit/upsertkit/schema"
)

var (
	// ErrNoConflictTarget is returned by generators that need an explicit
	// conflict column list (ON CONFLICT dialects) when no candidate group is
	// fully present in the insert record.
	ErrNoConflictTarget = errors.New("dialect: no usable conflict target for upsert")

	// ErrReturningUnsupported is returned when Returning is requested on a
	// dialect that cannot hand the affected row back.
	ErrReturningUnsupported = errors.New("dialect: RETURNING is not supported")

	// ErrNoInsertValues is returned when the insert record is empty.
	ErrNoInsertValues = errors.New("dialect: at least one insert value is required")
)

// UpsertParams describes one insert-or-update statement. Insert and Update
// are keyed by canonical field name; generators remap fields to storage
// columns through Model.
type UpsertParams struct {
	Model *schema.Model

	// Insert is the full record to write when no row matches.
	Insert map[string]any

	// Update names the fields (and values) to set when a row matches. Empty
	// means insert-only semantics.
	Update map[string]any

	// Match is the disjunctive match predicate. Dialects whose upsert
	// primitive takes an explicit match condition (MERGE) render it; an
	// empty disjunction must render as a condition that matches no row.
	Match predicate.Or

	// ConflictGroups are the resolved candidate uniqueness groups, in
	// resolver order. Dialects whose upsert primitive takes a conflict
	// column list pick the first group fully present in Insert.
	ConflictGroups []schema.Group

	IgnoreDuplicates bool
	Returning        bool
}

// BulkParams describes one multi-row insert statement with duplicate
// handling. Every row carries values in Fields order.
type BulkParams struct {
	Model  *schema.Model
	Fields []string
	Rows   [][]any

	// UpdateFields names the fields overwritten from the incoming row on
	// conflict. Empty with IgnoreDuplicates unset is a plain insert.
	UpdateFields []string

	ConflictGroups   []schema.Group
	IgnoreDuplicates bool
}

// Generator renders single-record upsert statements for one dialect.
type Generator interface {
	Name() string
	UpsertQuery(p UpsertParams) (string, []any, error)
}

// BulkGenerator is implemented by dialects whose insert statement accepts
// multiple VALUES rows with duplicate handling in a single round-trip.
type BulkGenerator interface {
	BulkInsertQuery(p BulkParams) (string, []any, error)
}

// ConstraintGenerator renders the constraint-discovery and DDL statements
// used by the column-removal workflow on dialects that cannot drop a column
// while dependent constraints exist. Discovery queries return the
// constraint name as their first column, or no rows when nothing is bound.
type ConstraintGenerator interface {
	DefaultConstraintQuery(table, column string) (string, error)
	ForeignKeyQuery(table, column string) (string, error)
	PrimaryKeyConstraintQuery(table, column string) (string, error)
	DropConstraintQuery(table, constraint string) (string, error)
	DropColumnQuery(table, column string) (string, error)
}

// IndexGenerator renders unique-index creation DDL.
type IndexGenerator interface {
	UniqueIndexQuery(table, index string, columns []string) (string, error)
}

// OrderedFields returns the record's field names in a deterministic order:
// model attribute declaration order first, then any fields without a
// declared attribute, sorted.
func OrderedFields(m *schema.Model, record map[string]any) []string {
	fields := make([]string, 0, len(record))
	seen := make(map[string]bool, len(record))
	for _, a := range m.Attributes {
		if _, ok := record[a.Name]; ok {
			fields = append(fields, a.Name)
			seen[a.Name] = true
		}
	}
	var extra []string
	for f := range record {
		if !seen[f] {
			extra = append(extra, f)
		}
	}
	sort.Strings(extra)
	return append(fields, extra...)
}

// conflictTarget picks the first candidate group whose fields are all
// present in the insert record. The bool reports whether any group
// qualified.
func conflictTarget(groups []schema.Group, insert map[string]any) (schema.Group, bool) {
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		ok := true
		for _, f := range group {
			if _, present := insert[f]; !present {
				ok = false
				break
			}
		}
		if ok {
			return group, true
		}
	}
	return nil, false
}
