package dialect

import (
	"fmt"
	"strings"
)

// MySQL generates INSERT .. ON DUPLICATE KEY UPDATE with ? placeholders.
// The server resolves the conflicting row from whatever unique constraint
// trips, so neither the match predicate nor the conflict groups are
// rendered.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (g MySQL) UpsertQuery(p UpsertParams) (string, []any, error) {
	if p.Returning {
		return "", nil, ErrReturningUnsupported
	}
	m := p.Model
	tableIdent, err := quoteIdentifier(m.Table, backtickQuotes)
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
		quoted, err := quoteIdentifier(m.ColumnFor(f), backtickQuotes)
		if err != nil {
			return "", nil, fmt.Errorf("field %q: %w", f, err)
		}
		quotedColumns[i] = quoted
		placeholders[i] = "?"
		args = append(args, p.Insert[f])
	}

	verb := "INSERT"
	if p.IgnoreDuplicates {
		verb = "INSERT IGNORE"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s INTO %s (%s) VALUES (%s)",
		verb, tableIdent, strings.Join(quotedColumns, ", "), strings.Join(placeholders, ", "))

	updateFields := OrderedFields(m, p.Update)
	if len(updateFields) > 0 && !p.IgnoreDuplicates {
		sets := make([]string, len(updateFields))
		for i, f := range updateFields {
			quoted, err := quoteIdentifier(m.ColumnFor(f), backtickQuotes)
			if err != nil {
				return "", nil, fmt.Errorf("update field %q: %w", f, err)
			}
			sets[i] = quoted + " = ?"
			args = append(args, p.Update[f])
		}
		fmt.Fprintf(&b, " ON DUPLICATE KEY UPDATE %s", strings.Join(sets, ", "))
	}
	return b.String(), args, nil
}

func (g MySQL) BulkInsertQuery(p BulkParams) (string, []any, error) {
	m := p.Model
	tableIdent, err := quoteIdentifier(m.Table, backtickQuotes)
	if err != nil {
		return "", nil, fmt.Errorf("table: %w", err)
	}
	if len(p.Fields) == 0 {
		return "", nil, ErrNoInsertValues
	}

	quotedColumns := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		quoted, err := quoteIdentifier(m.ColumnFor(f), backtickQuotes)
		if err != nil {
			return "", nil, fmt.Errorf("field %q: %w", f, err)
		}
		quotedColumns[i] = quoted
	}

	rowPlaceholder := "(" + strings.Repeat("?, ", len(p.Fields)-1) + "?)"
	placeholders := make([]string, len(p.Rows))
	args := make([]any, 0, len(p.Rows)*len(p.Fields))
	for i, row := range p.Rows {
		if len(row) != len(p.Fields) {
			return "", nil, fmt.Errorf("row %d: fields (%d) and values (%d) length mismatch", i, len(p.Fields), len(row))
		}
		placeholders[i] = rowPlaceholder
		args = append(args, row...)
	}

	verb := "INSERT"
	if p.IgnoreDuplicates {
		verb = "INSERT IGNORE"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s INTO %s (%s) VALUES %s",
		verb, tableIdent, strings.Join(quotedColumns, ", "), strings.Join(placeholders, ", "))

	if len(p.UpdateFields) > 0 && !p.IgnoreDuplicates {
		sets := make([]string, len(p.UpdateFields))
		for i, f := range p.UpdateFields {
			quoted, err := quoteIdentifier(m.ColumnFor(f), backtickQuotes)
			if err != nil {
				return "", nil, fmt.Errorf("update field %q: %w", f, err)
			}
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", quoted, quoted)
		}
		fmt.Fprintf(&b, " ON DUPLICATE KEY UPDATE %s", strings.Join(sets, ", "))
	}
	return b.String(), args, nil
}
