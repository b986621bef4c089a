package dialect

import (
	"fmt"
	"strings"
)

// MSSQL generates MERGE-based upserts with @pN placeholders. SQL Server has
// no conflict-inference primitive: the caller-built match predicate decides
// whether the source row updates an existing row or inserts a new one. It
// is also the dialect whose ALTER TABLE .. DROP COLUMN fails while a
// default, foreign-key or primary-key constraint still references the
// column, so it implements ConstraintGenerator.
type MSSQL struct{}

func (MSSQL) Name() string { return "mssql" }

func (g MSSQL) UpsertQuery(p UpsertParams) (string, []any, error) {
	m := p.Model
	tableIdent, err := quoteIdentifier(m.Table, bracketQuotes)
	if err != nil {
		return "", nil, fmt.Errorf("table: %w", err)
	}

	fields := OrderedFields(m, p.Insert)
	if len(fields) == 0 {
		return "", nil, ErrNoInsertValues
	}

	quotedColumns := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	sourceColumns := make([]string, len(fields))
	args := make([]any, 0, len(fields)+len(p.Update))
	for i, f := range fields {
		quoted, err := quoteIdentifier(m.ColumnFor(f), bracketQuotes)
		if err != nil {
			return "", nil, fmt.Errorf("field %q: %w", f, err)
		}
		quotedColumns[i] = quoted
		placeholders[i] = atPlaceholder(len(args) + 1)
		sourceColumns[i] = "[source]." + quoted
		args = append(args, p.Insert[f])
	}

	r := &predicateRenderer{
		model:     m,
		quotes:    bracketQuotes,
		qualifier: "[target]",
		ph:        atPlaceholder,
		next:      len(args),
	}
	match, err := r.render(p.Match)
	if err != nil {
		return "", nil, fmt.Errorf("match predicate: %w", err)
	}
	args = append(args, r.args...)

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE INTO %s WITH (HOLDLOCK) AS [target] USING (VALUES (%s)) AS [source] (%s) ON %s",
		tableIdent,
		strings.Join(placeholders, ", "),
		strings.Join(quotedColumns, ", "),
		match)

	updateFields := OrderedFields(m, p.Update)
	if len(updateFields) > 0 && !p.IgnoreDuplicates {
		sets := make([]string, len(updateFields))
		for i, f := range updateFields {
			quoted, err := quoteIdentifier(m.ColumnFor(f), bracketQuotes)
			if err != nil {
				return "", nil, fmt.Errorf("update field %q: %w", f, err)
			}
			sets[i] = fmt.Sprintf("%s = %s", quoted, atPlaceholder(len(args)+1))
			args = append(args, p.Update[f])
		}
		fmt.Fprintf(&b, " WHEN MATCHED THEN UPDATE SET %s", strings.Join(sets, ", "))
	}

	fmt.Fprintf(&b, " WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s)",
		strings.Join(quotedColumns, ", "), strings.Join(sourceColumns, ", "))

	if p.Returning {
		b.WriteString(" OUTPUT $action, INSERTED.*")
	}
	b.WriteString(";")
	return b.String(), args, nil
}

// Constraint discovery. The catalog queries embed the table and column as
// escaped literals: these are DDL-adjacent statements and SQL Server
// rejects bind parameters inside OBJECT_ID in several tool paths, so the
// generated text is self-contained. Each query returns the constraint name
// as its only column, or no rows.

func (g MSSQL) DefaultConstraintQuery(table, column string) (string, error) {
	if err := validateIdent(table, column); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"SELECT name FROM sys.default_constraints "+
			"WHERE parent_object_id = OBJECT_ID(%s, 'U') "+
			"AND parent_column_id = (SELECT column_id FROM sys.columns WHERE name = %s AND object_id = OBJECT_ID(%s, 'U'))",
		quoteLiteral(table), quoteLiteral(column), quoteLiteral(table)), nil
}

func (g MSSQL) ForeignKeyQuery(table, column string) (string, error) {
	if err := validateIdent(table, column); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"SELECT obj.name FROM sys.foreign_key_columns fkc "+
			"INNER JOIN sys.objects obj ON obj.object_id = fkc.constraint_object_id "+
			"WHERE fkc.parent_object_id = OBJECT_ID(%s, 'U') "+
			"AND fkc.parent_column_id = (SELECT column_id FROM sys.columns WHERE name = %s AND object_id = OBJECT_ID(%s, 'U'))",
		quoteLiteral(table), quoteLiteral(column), quoteLiteral(table)), nil
}

func (g MSSQL) PrimaryKeyConstraintQuery(table, column string) (string, error) {
	if err := validateIdent(table, column); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"SELECT k.name FROM sys.key_constraints k "+
			"INNER JOIN sys.index_columns ic ON ic.object_id = k.parent_object_id AND ic.index_id = k.unique_index_id "+
			"INNER JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id "+
			"WHERE k.type = 'PK' AND k.parent_object_id = OBJECT_ID(%s, 'U') AND c.name = %s",
		quoteLiteral(table), quoteLiteral(column)), nil
}

func (g MSSQL) DropConstraintQuery(table, constraint string) (string, error) {
	tableIdent, err := quoteIdentifier(table, bracketQuotes)
	if err != nil {
		return "", fmt.Errorf("table: %w", err)
	}
	constraintIdent, err := quoteIdentifier(constraint, bracketQuotes)
	if err != nil {
		return "", fmt.Errorf("constraint: %w", err)
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", tableIdent, constraintIdent), nil
}

func (g MSSQL) DropColumnQuery(table, column string) (string, error) {
	tableIdent, err := quoteIdentifier(table, bracketQuotes)
	if err != nil {
		return "", fmt.Errorf("table: %w", err)
	}
	columnIdent, err := quoteIdentifier(column, bracketQuotes)
	if err != nil {
		return "", fmt.Errorf("column: %w", err)
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", tableIdent, columnIdent), nil
}

func validateIdent(idents ...string) error {
	for _, ident := range idents {
		if !isSafeIdentifier(ident) {
			return fmt.Errorf("invalid identifier %q", ident)
		}
	}
	return nil
}
