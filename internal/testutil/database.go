// Package testutil provides database and fixture helpers for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/galleyops/galley/internal/database"
)

// TestDB wraps an in-memory database for one test.
type TestDB struct {
	*database.DB
}

// NewTestDB opens an empty in-memory database that is closed when the test
// ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return &TestDB{DB: db}
}

// NewMigratedDB opens an in-memory database with every migration applied.
func NewMigratedDB(t *testing.T) *TestDB {
	t.Helper()
	tdb := NewTestDB(t)
	tdb.Migrate(t)
	return tdb
}

// Migrate applies the embedded migrations.
func (tdb *TestDB) Migrate(t *testing.T) {
	t.Helper()

	m, err := database.NewMigrator(tdb.DB)
	if err != nil {
		t.Fatalf("failed to load migrations: %v", err)
	}
	if _, err := m.Up(context.Background()); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
}

// Truncate removes all rows from the given tables with foreign keys off.
func (tdb *TestDB) Truncate(t *testing.T, tables ...string) {
	t.Helper()

	// foreign_keys is a no-op inside a transaction, so toggle it outside.
	tdb.ExecSQL(t, "PRAGMA foreign_keys = OFF")
	defer tdb.ExecSQL(t, "PRAGMA foreign_keys = ON")
	for _, table := range tables {
		tdb.ExecSQL(t, fmt.Sprintf("DELETE FROM %s", table))
	}
}

// RowCount returns the number of rows in a table.
func (tdb *TestDB) RowCount(t *testing.T, table string, where ...any) int {
	t.Helper()

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	var args []any
	if len(where) > 0 {
		query += " WHERE " + fmt.Sprint(where[0])
		args = where[1:]
	}
	var count int
	if err := tdb.QueryRow(query, args...).Scan(&count); err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}
	return count
}

// AssertRowCount asserts the row count for a table.
func (tdb *TestDB) AssertRowCount(t *testing.T, table string, expected int) {
	t.Helper()

	if got := tdb.RowCount(t, table); got != expected {
		t.Errorf("expected %d rows in %s, got %d", expected, table, got)
	}
}

// ExecSQL executes arbitrary SQL for test setup.
func (tdb *TestDB) ExecSQL(t *testing.T, sql string, args ...any) {
	t.Helper()

	if _, err := tdb.Exec(sql, args...); err != nil {
		t.Fatalf("failed to execute SQL: %v\nSQL: %s", err, sql)
	}
}
