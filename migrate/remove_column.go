// Package migrate carries the schema-change workflows that need more than
// a single DDL statement: dropping a column on dialects where dependent
// constraints must be discovered and removed first, and ensuring unique
// indexes exist for upsert conflict targets.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
)

// Runner executes generated statements. *sql.DB and *sql.Tx both satisfy
// it.
type Runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ConstraintGenerator mirrors dialect.ConstraintGenerator; it is restated
// here so the orchestrator depends only on what it calls.
type ConstraintGenerator interface {
	DefaultConstraintQuery(table, column string) (string, error)
	ForeignKeyQuery(table, column string) (string, error)
	PrimaryKeyConstraintQuery(table, column string) (string, error)
	DropConstraintQuery(table, constraint string) (string, error)
	DropColumnQuery(table, column string) (string, error)
}

// ColumnRemover drops a column after removing, in dependency order, any
// default, foreign-key and primary-key constraint still bound to it. Only
// dialects whose ALTER TABLE rejects such drops need it; each step is a
// discover-then-drop round-trip pair because the drop statement requires
// the constraint name.
type ColumnRemover struct {
	db  Runner
	gen ConstraintGenerator
}

func NewColumnRemover(db Runner, gen ConstraintGenerator) *ColumnRemover {
	return &ColumnRemover{db: db, gen: gen}
}

// constraintStep pairs a discovery query with a human-readable kind for
// error context. Steps run strictly in order; later steps assume earlier
// blocking constraints are already gone.
type constraintStep struct {
	kind  string
	query func(table, column string) (string, error)
}

// RemoveColumn drops table.column. A discovery query finding no constraint
// is the normal "nothing to drop" case; any query or drop failing aborts
// the remaining steps immediately, with no partial rollback attempted
// here.
func (r *ColumnRemover) RemoveColumn(ctx context.Context, table, column string) error {
	steps := []constraintStep{
		{kind: "default constraint", query: r.gen.DefaultConstraintQuery},
		{kind: "foreign key constraint", query: r.gen.ForeignKeyQuery},
		{kind: "primary key constraint", query: r.gen.PrimaryKeyConstraintQuery},
	}

	for _, step := range steps {
		query, err := step.query(table, column)
		if err != nil {
			return fmt.Errorf("%s query for %s.%s: %w", step.kind, table, column, err)
		}
		name, err := r.findConstraint(ctx, query)
		if err != nil {
			return fmt.Errorf("find %s on %s.%s: %w", step.kind, table, column, err)
		}
		if name == "" {
			continue
		}
		drop, err := r.gen.DropConstraintQuery(table, name)
		if err != nil {
			return fmt.Errorf("drop %s %q: %w", step.kind, name, err)
		}
		if _, err := r.db.ExecContext(ctx, drop); err != nil {
			return fmt.Errorf("drop %s %q: %w", step.kind, name, err)
		}
	}

	drop, err := r.gen.DropColumnQuery(table, column)
	if err != nil {
		return fmt.Errorf("drop column %s.%s: %w", table, column, err)
	}
	if _, err := r.db.ExecContext(ctx, drop); err != nil {
		return fmt.Errorf("drop column %s.%s: %w", table, column, err)
	}
	return nil
}

// findConstraint runs a discovery query and returns the first row's
// constraint name, or "" when no constraint is bound.
func (r *ColumnRemover) findConstraint(ctx context.Context, query string) (string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var name string
	if rows.Next() {
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return name, nil
}
