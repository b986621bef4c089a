// Package upsert synthesizes dialect-correct insert-or-update statements
// from a model's declared uniqueness constraints: it resolves which
// constraints could match an existing row, builds the disjunctive match
// predicate over them, and drives a dialect generator plus a statement
// runner to execute the result.
package upsert

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/upsertkit/upsertkit/dialect"
	"github.com/upsertkit/upsertkit/predicate"
	"github.com/upsertkit/upsertkit/schema"
)

// Runner executes generated statements. *sql.DB and *sql.Tx both satisfy
// it.
type Runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Result reports the outcome of one upsert.
type Result struct {
	RowsAffected int64

	// Created is true when the statement is known to have inserted rather
	// than updated. Only dialects that report the action distinguish the
	// two: MERGE via its $action output column, MySQL via its affected-row
	// convention (1 insert, 2 update). Elsewhere it stays false.
	Created bool

	// Row holds the affected row keyed by canonical field name when
	// Options.Returning was set.
	Row Record
}

// Upserter runs upserts for one dialect over one connection.
type Upserter struct {
	db  Runner
	gen dialect.Generator
}

func New(db Runner, gen dialect.Generator) *Upserter {
	return &Upserter{db: db, gen: gen}
}

// Upsert writes a record, updating the existing row when one of the model's
// uniqueness constraints matches it. values is the record to insert; update
// holds the fields to set on a match (nil derives them from values:
// every non-key insert field, narrowed by Options.UpdateOnDuplicate).
// where optionally scopes the match to a subset of rows and becomes the
// first disjunct of the match predicate.
func (u *Upserter) Upsert(ctx context.Context, m *schema.Model, values, update Record, where predicate.Predicate, opts Options) (Result, error) {
	insert := restrict(values, opts.Fields)
	groups := ConflictKeys(m, opts.ConflictFields)
	match := MatchPredicate(groups, insert, where)

	upd := update
	if upd == nil {
		upd = defaultUpdate(insert, groups)
	}
	if len(opts.UpdateOnDuplicate) > 0 {
		upd = restrict(upd, opts.UpdateOnDuplicate)
	}
	if opts.IgnoreDuplicates {
		upd = nil
	}

	query, args, err := u.gen.UpsertQuery(dialect.UpsertParams{
		Model:            m,
		Insert:           insert,
		Update:           upd,
		Match:            match,
		ConflictGroups:   groups,
		IgnoreDuplicates: opts.IgnoreDuplicates,
		Returning:        opts.Returning,
	})
	if err != nil {
		return Result{}, fmt.Errorf("generate upsert for %s: %w", m.Table, err)
	}

	if opts.Returning {
		return u.execReturning(ctx, m, query, args)
	}

	res, err := u.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, fmt.Errorf("exec upsert into %s: %w", m.Table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report the count; the write itself succeeded.
		return Result{}, nil
	}
	return Result{RowsAffected: affected, Created: u.gen.Name() == "mysql" && affected == 1}, nil
}

func (u *Upserter) execReturning(ctx context.Context, m *schema.Model, query string, args []any) (Result, error) {
	rows, err := u.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Result{}, fmt.Errorf("exec upsert into %s: %w", m.Table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("returned columns: %w", err)
	}

	var result Result
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, fmt.Errorf("scan returned row: %w", err)
		}
		row := make(Record, len(columns))
		for i, col := range columns {
			if col == "$action" {
				if action, ok := values[i].(string); ok {
					result.Created = strings.EqualFold(action, "INSERT")
				}
				continue
			}
			row[fieldForColumn(m, col)] = values[i]
		}
		result.Row = row
		result.RowsAffected++
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterating returned rows: %w", err)
	}
	return result, nil
}

// defaultUpdate derives the on-conflict update record when the caller gave
// none: every insert field that is not part of a candidate uniqueness
// group.
func defaultUpdate(insert Record, groups []schema.Group) Record {
	key := predicate.FieldSet{}
	for _, group := range groups {
		for _, f := range group {
			key.Add(f)
		}
	}
	upd := make(Record, len(insert))
	for f, v := range insert {
		if key.Has(f) {
			continue
		}
		upd[f] = v
	}
	return upd
}

// fieldForColumn reverse-maps a storage column to its canonical field name.
// Unknown columns map to themselves.
func fieldForColumn(m *schema.Model, column string) string {
	for _, a := range m.Attributes {
		if a.ColumnName() == column {
			return a.Name
		}
	}
	return column
}
