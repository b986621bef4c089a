package migrate

import (
	"context"
	"fmt"

	"github.com/upsertkit/upsertkit/dialect"
)

// EnsureUniqueIndex creates a unique index over the given columns so the
// database can enforce the uniqueness a conflict group asserts. The index
// name is derived deterministically from the table and column set, so
// repeated calls converge on the same index.
func EnsureUniqueIndex(ctx context.Context, db Runner, gen dialect.IndexGenerator, table string, columns []string) error {
	name := dialect.DeriveIndexName(table, columns, "uniq")
	stmt, err := gen.UniqueIndexQuery(table, name, columns)
	if err != nil {
		return fmt.Errorf("unique index on %s: %w", table, err)
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create unique index on %s: %w", table, err)
	}
	return nil
}
