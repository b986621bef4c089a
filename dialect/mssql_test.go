package dialect

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/upsertkit/upsertkit/predicate"
)

func TestMSSQLUpsertQuery(t *testing.T) {
	p := UpsertParams{
		Model: testModel(),
		Insert: map[string]any{
			"id":       int64(1),
			"username": "jdoe",
			"fullName": "John Doe",
		},
		Update: map[string]any{"fullName": "John Doe"},
		Match: predicate.Or{
			predicate.And{predicate.Eq{Field: "id", Value: int64(1)}},
			predicate.And{predicate.Eq{Field: "username", Value: "jdoe"}},
		},
		Returning: true,
	}

	query, args, err := MSSQL{}.UpsertQuery(p)
	if err != nil {
		t.Fatalf("UpsertQuery: %v", err)
	}

	want := `MERGE INTO [users] WITH (HOLDLOCK) AS [target] ` +
		`USING (VALUES (@p1, @p2, @p3)) AS [source] ([id], [username], [full_name]) ` +
		`ON ([target].[id] = @p4) OR ([target].[username] = @p5) ` +
		`WHEN MATCHED THEN UPDATE SET [full_name] = @p6 ` +
		`WHEN NOT MATCHED THEN INSERT ([id], [username], [full_name]) VALUES ([source].[id], [source].[username], [source].[full_name]) ` +
		`OUTPUT $action, INSERTED.*;`
	if query != want {
		t.Fatalf("query mismatch:\n got %s\nwant %s", query, want)
	}

	wantArgs := []any{int64(1), "jdoe", "John Doe", int64(1), "jdoe", "John Doe"}
	if diff := cmp.Diff(wantArgs, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestMSSQLUpsertQueryEmptyMatchNeverMatches(t *testing.T) {
	p := UpsertParams{
		Model:  testModel(),
		Insert: map[string]any{"fullName": "John Doe"},
		Match:  predicate.Or{},
	}

	query, _, err := MSSQL{}.UpsertQuery(p)
	if err != nil {
		t.Fatalf("UpsertQuery: %v", err)
	}
	want := `MERGE INTO [users] WITH (HOLDLOCK) AS [target] ` +
		`USING (VALUES (@p1)) AS [source] ([full_name]) ` +
		`ON 1 = 0 ` +
		`WHEN NOT MATCHED THEN INSERT ([full_name]) VALUES ([source].[full_name]);`
	if query != want {
		t.Fatalf("query mismatch:\n got %s\nwant %s", query, want)
	}
}

func TestMSSQLUpsertQueryIgnoreDuplicatesOmitsUpdate(t *testing.T) {
	p := UpsertParams{
		Model:            testModel(),
		Insert:           map[string]any{"id": int64(1), "fullName": "John Doe"},
		Update:           map[string]any{"fullName": "John Doe"},
		Match:            predicate.Or{predicate.And{predicate.Eq{Field: "id", Value: int64(1)}}},
		IgnoreDuplicates: true,
	}

	query, _, err := MSSQL{}.UpsertQuery(p)
	if err != nil {
		t.Fatalf("UpsertQuery: %v", err)
	}
	want := `MERGE INTO [users] WITH (HOLDLOCK) AS [target] ` +
		`USING (VALUES (@p1, @p2)) AS [source] ([id], [full_name]) ` +
		`ON ([target].[id] = @p3) ` +
		`WHEN NOT MATCHED THEN INSERT ([id], [full_name]) VALUES ([source].[id], [source].[full_name]);`
	if query != want {
		t.Fatalf("query mismatch:\n got %s\nwant %s", query, want)
	}
}

func TestMSSQLConstraintQueries(t *testing.T) {
	gen := MSSQL{}

	tests := []struct {
		name  string
		query func(table, column string) (string, error)
		want  string
	}{
		{
			name:  "default",
			query: gen.DefaultConstraintQuery,
			want: "SELECT name FROM sys.default_constraints " +
				"WHERE parent_object_id = OBJECT_ID('users', 'U') " +
				"AND parent_column_id = (SELECT column_id FROM sys.columns WHERE name = 'age' AND object_id = OBJECT_ID('users', 'U'))",
		},
		{
			name:  "foreignKey",
			query: gen.ForeignKeyQuery,
			want: "SELECT obj.name FROM sys.foreign_key_columns fkc " +
				"INNER JOIN sys.objects obj ON obj.object_id = fkc.constraint_object_id " +
				"WHERE fkc.parent_object_id = OBJECT_ID('users', 'U') " +
				"AND fkc.parent_column_id = (SELECT column_id FROM sys.columns WHERE name = 'age' AND object_id = OBJECT_ID('users', 'U'))",
		},
		{
			name:  "primaryKey",
			query: gen.PrimaryKeyConstraintQuery,
			want: "SELECT k.name FROM sys.key_constraints k " +
				"INNER JOIN sys.index_columns ic ON ic.object_id = k.parent_object_id AND ic.index_id = k.unique_index_id " +
				"INNER JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id " +
				"WHERE k.type = 'PK' AND k.parent_object_id = OBJECT_ID('users', 'U') AND c.name = 'age'",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.query("users", "age")
			if err != nil {
				t.Fatalf("%s query: %v", tc.name, err)
			}
			if got != tc.want {
				t.Fatalf("query mismatch:\n got %s\nwant %s", got, tc.want)
			}
		})
	}

	if _, err := gen.DefaultConstraintQuery("users; DROP TABLE users", "age"); err == nil {
		t.Fatal("unsafe table identifier must be rejected")
	}
}

func TestMSSQLDropQueries(t *testing.T) {
	gen := MSSQL{}

	drop, err := gen.DropConstraintQuery("users", "DF_users_age")
	if err != nil {
		t.Fatalf("DropConstraintQuery: %v", err)
	}
	if drop != "ALTER TABLE [users] DROP CONSTRAINT [DF_users_age]" {
		t.Fatalf("DropConstraintQuery = %s", drop)
	}

	drop, err = gen.DropColumnQuery("users", "age")
	if err != nil {
		t.Fatalf("DropColumnQuery: %v", err)
	}
	if drop != "ALTER TABLE [users] DROP COLUMN [age]" {
		t.Fatalf("DropColumnQuery = %s", drop)
	}
}
