package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/upsertkit/upsertkit/dialect"
	"github.com/upsertkit/upsertkit/schema"
	"github.com/upsertkit/upsertkit/upsert"
)

func main() {
	driver := os.Getenv("UPSERTKIT_DRIVER")
	if driver == "" {
		driver = "sqlite3"
	}
	dsn := os.Getenv("UPSERTKIT_DSN")
	if dsn == "" {
		dsn = ":memory:"
	}

	gen, ok := generatorFor(driver)
	if !ok {
		log.Fatalf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		log.Fatalf("open %s: %v", driver, err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping %s: %v", driver, err)
	}

	if driver == "sqlite3" {
		if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS users (id INTEGER PRIMARY KEY, username TEXT UNIQUE, email TEXT UNIQUE, full_name TEXT)`); err != nil {
			log.Fatalf("create table: %v", err)
		}
	}

	users := &schema.Model{
		Table: "users",
		Attributes: []schema.Attribute{
			{Name: "id", PrimaryKey: true},
			{Name: "username"},
			{Name: "email"},
			{Name: "fullName", Column: "full_name"},
		},
		Indexes: []schema.Index{
			{Name: "users_username", Unique: true, Fields: []schema.FieldRef{schema.Name("username")}},
			{Name: "users_email", Unique: true, Fields: []schema.FieldRef{schema.Name("email")}},
		},
	}

	up := upsert.New(db, gen)

	record := upsert.Record{
		"id":       int64(1),
		"username": "jdoe",
		"email":    "jdoe@example.com",
		"fullName": "John Doe",
	}
	if _, err := up.Upsert(ctx, users, record, nil, nil, upsert.Options{}); err != nil {
		log.Fatalf("first upsert: %v", err)
	}
	log.Println("inserted demo user")

	record["fullName"] = "Jane Doe"
	res, err := up.Upsert(ctx, users, record, nil, nil, upsert.Options{Returning: gen.Name() != "mysql"})
	if err != nil {
		if upsert.IsUniqueViolation(err) {
			log.Fatalf("conflicting unique constraints: %v", err)
		}
		log.Fatalf("second upsert: %v", err)
	}
	log.Printf("upserted demo user again: affected=%d row=%v", res.RowsAffected, res.Row)

	bulk := upsert.NewBulk(db, gen).WithBatchSize(128)
	rows := []upsert.Record{
		{"id": int64(2), "username": "asmith", "email": "asmith@example.com", "fullName": "Alice Smith"},
		{"id": int64(3), "username": "bjones", "email": "bjones@example.com", "fullName": "Bob Jones"},
	}
	if err := bulk.BulkUpsert(ctx, users, rows, upsert.Options{}); err != nil {
		log.Fatalf("bulk upsert: %v", err)
	}
	log.Println("bulk upserted demo users")
}

func generatorFor(driver string) (dialect.Generator, bool) {
	switch driver {
	case "postgres":
		return dialect.Postgres{}, true
	case "mysql":
		return dialect.MySQL{}, true
	case "sqlite3":
		return dialect.Sqlite{}, true
	case "sqlserver", "mssql":
		return dialect.MSSQL{}, true
	}
	return nil, false
}
