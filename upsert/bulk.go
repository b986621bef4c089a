package upsert

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/upsertkit/upsertkit/dialect"
	"github.com/upsertkit/upsertkit/schema"
)

const defaultBatchSize = 500

// BulkUpserter writes many records with duplicate handling, trading one
// round-trip per batch for larger payloads on dialects whose insert accepts
// multiple rows.
type BulkUpserter struct {
	db        Runner
	gen       dialect.Generator
	batchSize int
}

func NewBulk(db Runner, gen dialect.Generator) *BulkUpserter {
	return &BulkUpserter{db: db, gen: gen, batchSize: defaultBatchSize}
}

// WithBatchSize returns a shallow copy with an overridden batch size for
// testing and tuning.
func (b *BulkUpserter) WithBatchSize(size int) *BulkUpserter {
	clone := *b
	clone.batchSize = size
	return &clone
}

// BulkUpsert writes rows in batches. Every row must supply a value for
// every participating field (Options.Fields when set, otherwise the first
// row's fields in model attribute order). Rows within the call that share
// values across a candidate uniqueness group are rejected up front: a
// multi-row statement with internal duplicates has no well-defined outcome.
//
// Dialects without multi-row duplicate handling fall back to one statement
// per record, wrapped in a transaction when the runner can open one.
func (b *BulkUpserter) BulkUpsert(ctx context.Context, m *schema.Model, rows []Record, opts Options) error {
	if len(rows) == 0 {
		return nil
	}
	if b.batchSize <= 0 {
		return ErrBatchSize
	}

	fields := opts.Fields
	if len(fields) == 0 {
		fields = dialect.OrderedFields(m, rows[0])
	}
	if len(fields) == 0 {
		return dialect.ErrNoInsertValues
	}

	groups := ConflictKeys(m, opts.ConflictFields)
	if err := rejectBatchDuplicates(rows, groups, fields); err != nil {
		return err
	}

	bulkGen, multiRow := b.gen.(dialect.BulkGenerator)
	if !multiRow {
		return b.upsertEach(ctx, m, rows, opts)
	}

	updateFields := opts.UpdateOnDuplicate
	if len(updateFields) == 0 && !opts.IgnoreDuplicates {
		updateFields = nonKeyFields(fields, groups)
	}

	matrix := make([][]any, len(rows))
	for i, row := range rows {
		values := make([]any, len(fields))
		for j, f := range fields {
			v, ok := row[f]
			if !ok {
				return fmt.Errorf("row %d: missing value for field %q", i, f)
			}
			values[j] = v
		}
		matrix[i] = values
	}

	for start := 0; start < len(matrix); start += b.batchSize {
		end := min(start+b.batchSize, len(matrix))
		query, args, err := bulkGen.BulkInsertQuery(dialect.BulkParams{
			Model:            m,
			Fields:           fields,
			Rows:             matrix[start:end],
			UpdateFields:     updateFields,
			ConflictGroups:   groups,
			IgnoreDuplicates: opts.IgnoreDuplicates,
		})
		if err != nil {
			return fmt.Errorf("generate bulk upsert for %s: %w", m.Table, err)
		}
		if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("exec bulk upsert into %s: %w", m.Table, err)
		}
	}
	return nil
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// upsertEach issues one statement per record, atomically when possible.
func (b *BulkUpserter) upsertEach(ctx context.Context, m *schema.Model, rows []Record, opts Options) error {
	opts.Returning = false

	runner := b.db
	var tx *sql.Tx
	if beginner, ok := b.db.(txBeginner); ok {
		var err error
		tx, err = beginner.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		runner = tx
	}

	committed := false
	if tx != nil {
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()
	}

	single := New(runner, b.gen)
	for i, row := range rows {
		if _, err := single.Upsert(ctx, m, row, nil, nil, opts); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		committed = true
	}
	return nil
}

// rejectBatchDuplicates fails when two rows collide on any candidate group
// that is fully present in the participating fields.
func rejectBatchDuplicates(rows []Record, groups []schema.Group, fields []string) error {
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f] = true
	}
	for _, group := range groups {
		usable := len(group) > 0
		for _, f := range group {
			if !present[f] {
				usable = false
				break
			}
		}
		if !usable {
			continue
		}
		seen := make(map[string]int, len(rows))
		for i, row := range rows {
			key := compositeKey(row, group)
			if prev, ok := seen[key]; ok {
				return fmt.Errorf("rows %d and %d share values for unique key (%s)", prev, i, strings.Join(group, ", "))
			}
			seen[key] = i
		}
	}
	return nil
}

func compositeKey(row Record, group schema.Group) string {
	var sb strings.Builder
	for i, f := range group {
		if i > 0 {
			sb.WriteString("|")
		}
		fmt.Fprintf(&sb, "%v", row[f])
	}
	return sb.String()
}

// nonKeyFields filters out every field that belongs to a candidate group,
// preserving order.
func nonKeyFields(fields []string, groups []schema.Group) []string {
	key := make(map[string]bool)
	for _, group := range groups {
		for _, f := range group {
			key[f] = true
		}
	}
	var out []string
	for _, f := range fields {
		if !key[f] {
			out = append(out, f)
		}
	}
	return out
}
