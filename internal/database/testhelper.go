package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// NewInMemory opens a private in-memory database with foreign keys on and no
// backups. The schema is empty until a Migrator runs.
func NewInMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	db := &DB{
		DB:     sqlDB,
		path:   ":memory:",
		logger: slog.Default().With("component", "database"),
	}
	if err := db.applyPragmas([]string{"PRAGMA foreign_keys=ON"}); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}
