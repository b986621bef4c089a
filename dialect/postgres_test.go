package dialect

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/upsertkit/upsertkit/predicate"
	"github.com/upsertkit/upsertkit/schema"
)

func testModel() *schema.Model {
	return &schema.Model{
		Table: "users",
		Attributes: []schema.Attribute{
			{Name: "id", PrimaryKey: true},
			{Name: "username"},
			{Name: "email"},
			{Name: "fullName", Column: "full_name"},
		},
	}
}

func TestPostgresUpsertQuery(t *testing.T) {
	p := UpsertParams{
		Model: testModel(),
		Insert: map[string]any{
			"id":       int64(1),
			"username": "jdoe",
			"fullName": "John Doe",
		},
		Update:         map[string]any{"fullName": "John Doe"},
		ConflictGroups: []schema.Group{{"id"}},
	}

	query, args, err := Postgres{}.UpsertQuery(p)
	if err != nil {
		t.Fatalf("UpsertQuery: %v", err)
	}

	want := `INSERT INTO "users" ("id", "username", "full_name") VALUES ($1, $2, $3) ON CONFLICT ("id") DO UPDATE SET "full_name" = $4`
	if query != want {
		t.Fatalf("query mismatch:\n got %s\nwant %s", query, want)
	}
	if diff := cmp.Diff([]any{int64(1), "jdoe", "John Doe", "John Doe"}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestPostgresUpsertQueryPicksFirstUsableGroup(t *testing.T) {
	p := UpsertParams{
		Model:          testModel(),
		Insert:         map[string]any{"username": "jdoe", "fullName": "John Doe"},
		Update:         map[string]any{"fullName": "John Doe"},
		ConflictGroups: []schema.Group{{"id"}, {"username"}},
	}

	query, _, err := Postgres{}.UpsertQuery(p)
	if err != nil {
		t.Fatalf("UpsertQuery: %v", err)
	}
	want := `INSERT INTO "users" ("username", "full_name") VALUES ($1, $2) ON CONFLICT ("username") DO UPDATE SET "full_name" = $3`
	if query != want {
		t.Fatalf("query mismatch:\n got %s\nwant %s", query, want)
	}
}

func TestPostgresUpsertQueryIgnoreDuplicates(t *testing.T) {
	p := UpsertParams{
		Model:            testModel(),
		Insert:           map[string]any{"id": int64(1), "username": "jdoe"},
		ConflictGroups:   []schema.Group{{"id"}},
		IgnoreDuplicates: true,
	}

	query, _, err := Postgres{}.UpsertQuery(p)
	if err != nil {
		t.Fatalf("UpsertQuery: %v", err)
	}
	want := `INSERT INTO "users" ("id", "username") VALUES ($1, $2) ON CONFLICT ("id") DO NOTHING`
	if query != want {
		t.Fatalf("query mismatch:\n got %s\nwant %s", query, want)
	}
}

func TestPostgresUpsertQueryTargetlessIgnore(t *testing.T) {
	// No group is fully present in the record: targetless DO NOTHING.
	p := UpsertParams{
		Model:            testModel(),
		Insert:           map[string]any{"fullName": "John Doe"},
		ConflictGroups:   []schema.Group{{"id"}},
		IgnoreDuplicates: true,
	}

	query, _, err := Postgres{}.UpsertQuery(p)
	if err != nil {
		t.Fatalf("UpsertQuery: %v", err)
	}
	want := `INSERT INTO "users" ("full_name") VALUES ($1) ON CONFLICT DO NOTHING`
	if query != want {
		t.Fatalf("query mismatch:\n got %s\nwant %s", query, want)
	}
}

func TestPostgresUpsertQueryNoConflictTarget(t *testing.T) {
	p := UpsertParams{
		Model:          testModel(),
		Insert:         map[string]any{"fullName": "John Doe"},
		Update:         map[string]any{"fullName": "John Doe"},
		ConflictGroups: []schema.Group{{"id"}},
	}

	_, _, err := Postgres{}.UpsertQuery(p)
	if !errors.Is(err, ErrNoConflictTarget) {
		t.Fatalf("expected ErrNoConflictTarget, got %v", err)
	}
}

func TestPostgresUpsertQueryPlainInsertWithoutUpdate(t *testing.T) {
	p := UpsertParams{
		Model:          testModel(),
		Insert:         map[string]any{"id": int64(1)},
		ConflictGroups: []schema.Group{{"id"}},
		Returning:      true,
	}

	query, _, err := Postgres{}.UpsertQuery(p)
	if err != nil {
		t.Fatalf("UpsertQuery: %v", err)
	}
	want := `INSERT INTO "users" ("id") VALUES ($1) RETURNING *`
	if query != want {
		t.Fatalf("query mismatch:\n got %s\nwant %s", query, want)
	}
}

func TestPostgresBulkInsertQuery(t *testing.T) {
	p := BulkParams{
		Model:  testModel(),
		Fields: []string{"id", "username", "fullName"},
		Rows: [][]any{
			{int64(1), "jdoe", "John Doe"},
			{int64(2), "asmith", "Alice Smith"},
		},
		UpdateFields:   []string{"username", "fullName"},
		ConflictGroups: []schema.Group{{"id"}},
	}

	query, args, err := Postgres{}.BulkInsertQuery(p)
	if err != nil {
		t.Fatalf("BulkInsertQuery: %v", err)
	}
	want := `INSERT INTO "users" ("id", "username", "full_name") VALUES ($1, $2, $3), ($4, $5, $6) ON CONFLICT ("id") DO UPDATE SET "username" = EXCLUDED."username", "full_name" = EXCLUDED."full_name"`
	if query != want {
		t.Fatalf("query mismatch:\n got %s\nwant %s", query, want)
	}
	if len(args) != 6 {
		t.Fatalf("got %d args, want 6", len(args))
	}
}

func TestPostgresBulkInsertQueryRowLengthMismatch(t *testing.T) {
	p := BulkParams{
		Model:  testModel(),
		Fields: []string{"id", "username"},
		Rows:   [][]any{{int64(1)}},
	}

	if _, _, err := (Postgres{}).BulkInsertQuery(p); err == nil {
		t.Fatal("expected length-mismatch error, got nil")
	}
}

func TestSqliteUpsertQueryUsesQuestionPlaceholders(t *testing.T) {
	p := UpsertParams{
		Model:          testModel(),
		Insert:         map[string]any{"id": int64(1), "fullName": "John Doe"},
		Update:         map[string]any{"fullName": "John Doe"},
		ConflictGroups: []schema.Group{{"id"}},
		Returning:      true,
	}

	query, _, err := Sqlite{}.UpsertQuery(p)
	if err != nil {
		t.Fatalf("UpsertQuery: %v", err)
	}
	want := `INSERT INTO "users" ("id", "full_name") VALUES (?, ?) ON CONFLICT ("id") DO UPDATE SET "full_name" = ? RETURNING *`
	if query != want {
		t.Fatalf("query mismatch:\n got %s\nwant %s", query, want)
	}
}

func TestUniqueIndexQuery(t *testing.T) {
	query, err := Postgres{}.UniqueIndexQuery("users", "idx_users_email", []string{"email"})
	if err != nil {
		t.Fatalf("UniqueIndexQuery: %v", err)
	}
	want := `CREATE UNIQUE INDEX IF NOT EXISTS "idx_users_email" ON "users" ("email")`
	if query != want {
		t.Fatalf("query mismatch:\n got %s\nwant %s", query, want)
	}
}

func TestOrderedFieldsDeterminism(t *testing.T) {
	m := testModel()
	record := map[string]any{"extraB": 1, "email": 2, "id": 3, "extraA": 4}

	want := []string{"id", "email", "extraA", "extraB"}
	for range 10 {
		if diff := cmp.Diff(want, OrderedFields(m, record)); diff != "" {
			t.Fatalf("OrderedFields mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestPredicateRendererNilValue(t *testing.T) {
	r := &predicateRenderer{model: testModel(), quotes: ansiQuotes, ph: dollarPlaceholder}
	sql, err := r.render(predicate.Eq{Field: "email", Value: nil})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if sql != `"email" IS NULL` {
		t.Fatalf("nil value rendered as %s", sql)
	}
	if len(r.args) != 0 {
		t.Fatalf("IS NULL must not bind an argument, got %d", len(r.args))
	}
}
