// Package repotest opens throwaway databases for tests.
package repotest

import (
	"context"
	"database/sql"
	"testing"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "modernc.org/sqlite"

	"github.com/Alijeyrad/notifyhub/internal/repo"
)

// Open returns a client on a fresh in-memory SQLite database with the schema
// created. The database is closed when the test ends.
func Open(t testing.TB) *repo.Client {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// every connection to :memory: is its own database
	db.SetMaxOpenConns(1)

	client := repo.NewClient(repo.Driver(entsql.OpenDB(dialect.SQLite, db)))
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Schema.Create(context.Background()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return client
}
