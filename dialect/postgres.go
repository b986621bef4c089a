package dialect

import (
	"fmt"
	"strings"

	"github.com/upsertkit/upsertkit/schema"
)

// Postgres generates INSERT .. ON CONFLICT statements with $n placeholders.
// PostgreSQL infers the matched row from a conflict column list, so the
// match predicate is not rendered; the first candidate group fully present
// in the record becomes the conflict target.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (g Postgres) UpsertQuery(p UpsertParams) (string, []any, error) {
	return onConflictUpsert(p, ansiQuotes, dollarPlaceholder)
}

func (g Postgres) BulkInsertQuery(p BulkParams) (string, []any, error) {
	return onConflictBulkInsert(p, ansiQuotes, dollarPlaceholder)
}

func (g Postgres) UniqueIndexQuery(table, index string, columns []string) (string, error) {
	return uniqueIndexQuery(table, index, columns, ansiQuotes, true)
}

// Sqlite shares the ON CONFLICT grammar with ? placeholders. RETURNING is
// available from SQLite 3.35.
type Sqlite struct{}

func (Sqlite) Name() string { return "sqlite" }

func (g Sqlite) UpsertQuery(p UpsertParams) (string, []any, error) {
	return onConflictUpsert(p, ansiQuotes, questionPlaceholder)
}

func (g Sqlite) BulkInsertQuery(p BulkParams) (string, []any, error) {
	return onConflictBulkInsert(p, ansiQuotes, questionPlaceholder)
}

func (g Sqlite) UniqueIndexQuery(table, index string, columns []string) (string, error) {
	return uniqueIndexQuery(table, index, columns, ansiQuotes, true)
}

func onConflictUpsert(p UpsertParams, q quoting, ph placeholderFunc) (string, []any, error) {
	m := p.Model
	tableIdent, err := quoteIdentifier(m.Table, q)
	if err != nil {
		return "", nil, fmt.Errorf("table: %w", err)
	}

	fields := OrderedFields(m, p.Insert)
	if len(fields) == 0 {
		return "", nil, ErrNoInsertValues
	}

	quotedColumns := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	args := make([]any, 0, len(fields)+len(p.Update))
	for i, f := range fields {
		quoted, err := quoteIdentifier(m.ColumnFor(f), q)
		if err != nil {
			return "", nil, fmt.Errorf("field %q: %w", f, err)
		}
		quotedColumns[i] = quoted
		placeholders[i] = ph(len(args) + 1)
		args = append(args, p.Insert[f])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		tableIdent, strings.Join(quotedColumns, ", "), strings.Join(placeholders, ", "))

	updateFields := OrderedFields(m, p.Update)
	switch {
	case p.IgnoreDuplicates:
		target, err := conflictTargetSQL(p, q)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" ON CONFLICT")
		b.WriteString(target) // may be empty: targetless DO NOTHING
		b.WriteString(" DO NOTHING")
	case len(updateFields) > 0:
		group, ok := conflictTarget(p.ConflictGroups, p.Insert)
		if !ok {
			return "", nil, ErrNoConflictTarget
		}
		target, err := quoteGroup(m, group, q)
		if err != nil {
			return "", nil, err
		}
		sets := make([]string, len(updateFields))
		for i, f := range updateFields {
			quoted, err := quoteIdentifier(m.ColumnFor(f), q)
			if err != nil {
				return "", nil, fmt.Errorf("update field %q: %w", f, err)
			}
			sets[i] = fmt.Sprintf("%s = %s", quoted, ph(len(args)+1))
			args = append(args, p.Update[f])
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s", target, strings.Join(sets, ", "))
	default:
		// No update values and duplicates not ignored: plain insert, any
		// conflict surfaces verbatim from the database.
	}

	if p.Returning {
		b.WriteString(" RETURNING *")
	}
	return b.String(), args, nil
}

func onConflictBulkInsert(p BulkParams, q quoting, ph placeholderFunc) (string, []any, error) {
	m := p.Model
	tableIdent, err := quoteIdentifier(m.Table, q)
	if err != nil {
		return "", nil, fmt.Errorf("table: %w", err)
	}
	if len(p.Fields) == 0 {
		return "", nil, ErrNoInsertValues
	}

	quotedColumns := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		quoted, err := quoteIdentifier(m.ColumnFor(f), q)
		if err != nil {
			return "", nil, fmt.Errorf("field %q: %w", f, err)
		}
		quotedColumns[i] = quoted
	}

	placeholders := make([]string, len(p.Rows))
	args := make([]any, 0, len(p.Rows)*len(p.Fields))
	for i, row := range p.Rows {
		if len(row) != len(p.Fields) {
			return "", nil, fmt.Errorf("row %d: fields (%d) and values (%d) length mismatch", i, len(p.Fields), len(row))
		}
		rowPlaceholders := make([]string, len(row))
		for j, v := range row {
			rowPlaceholders[j] = ph(len(args) + 1)
			args = append(args, v)
		}
		placeholders[i] = "(" + strings.Join(rowPlaceholders, ", ") + ")"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES %s",
		tableIdent, strings.Join(quotedColumns, ", "), strings.Join(placeholders, ", "))

	switch {
	case p.IgnoreDuplicates:
		b.WriteString(" ON CONFLICT DO NOTHING")
	case len(p.UpdateFields) > 0:
		fieldValues := make(map[string]any, len(p.Fields))
		for _, f := range p.Fields {
			fieldValues[f] = struct{}{}
		}
		group, ok := conflictTarget(p.ConflictGroups, fieldValues)
		if !ok {
			return "", nil, ErrNoConflictTarget
		}
		target, err := quoteGroup(m, group, q)
		if err != nil {
			return "", nil, err
		}
		sets := make([]string, len(p.UpdateFields))
		for i, f := range p.UpdateFields {
			quoted, err := quoteIdentifier(m.ColumnFor(f), q)
			if err != nil {
				return "", nil, fmt.Errorf("update field %q: %w", f, err)
			}
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", quoted, quoted)
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s", target, strings.Join(sets, ", "))
	}
	return b.String(), args, nil
}

// conflictTargetSQL renders " (cols)" for the first usable group, or "" when
// none qualifies (legal for targetless DO NOTHING).
func conflictTargetSQL(p UpsertParams, q quoting) (string, error) {
	group, ok := conflictTarget(p.ConflictGroups, p.Insert)
	if !ok {
		return "", nil
	}
	target, err := quoteGroup(p.Model, group, q)
	if err != nil {
		return "", err
	}
	return " (" + target + ")", nil
}

func quoteGroup(m *schema.Model, group []string, q quoting) (string, error) {
	quoted := make([]string, len(group))
	for i, f := range group {
		ident, err := quoteIdentifier(m.ColumnFor(f), q)
		if err != nil {
			return "", fmt.Errorf("conflict field %q: %w", f, err)
		}
		quoted[i] = ident
	}
	return strings.Join(quoted, ", "), nil
}

func uniqueIndexQuery(table, index string, columns []string, q quoting, ifNotExists bool) (string, error) {
	tableIdent, err := quoteIdentifier(table, q)
	if err != nil {
		return "", fmt.Errorf("table: %w", err)
	}
	indexIdent, err := quoteIdentifier(index, q)
	if err != nil {
		return "", fmt.Errorf("index name: %w", err)
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		ident, err := quoteIdentifier(col, q)
		if err != nil {
			return "", fmt.Errorf("column %q: %w", col, err)
		}
		quoted[i] = ident
	}
	clause := "CREATE UNIQUE INDEX "
	if ifNotExists {
		clause += "IF NOT EXISTS "
	}
	return fmt.Sprintf("%s%s ON %s (%s)", clause, indexIdent, tableIdent, strings.Join(quoted, ", ")), nil
}
