// Package dbtest opens throwaway sqlite databases for package tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/mind-engage/mindengage-assess/internal/db"
)

// Open creates a schema-initialised sqlite file under t.TempDir().
// The pool is pinned to one connection so concurrent test goroutines
// serialise instead of tripping SQLITE_BUSY.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	dbh := open(t, "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	dbh.SetMaxOpenConns(1)
	return dbh
}

// OpenPool is Open without the connection pin and without immediate
// transactions, so writers really race on the file lock.
func OpenPool(t testing.TB) *sql.DB {
	t.Helper()
	dbh := open(t, "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	dbh.SetMaxOpenConns(8)
	return dbh
}

func open(t testing.TB, params string) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + params
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}
