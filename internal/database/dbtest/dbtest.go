// Package dbtest provides migrated throwaway databases for tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/suar-net/suar-studio/internal/config"
	"github.com/suar-net/suar-studio/internal/database"
)

// NewSQLite returns a migrated SQLite database stored under t.TempDir.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.ConnectDB(config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "suar.db"),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db, config.DriverSQLite); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
