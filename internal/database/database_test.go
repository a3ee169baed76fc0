package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suar-net/suar-studio/internal/config"
)

func TestConnectAndMigrate_SQLite(t *testing.T) {
	cfg := config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "nested", "suar.db"),
	}

	db, err := ConnectDB(cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db, config.DriverSQLite))
	// second run is a no-op
	require.NoError(t, Migrate(db, config.DriverSQLite))

	for _, table := range []string{"requests", "checkpoints"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestConnectDB_UnsupportedDriver(t *testing.T) {
	_, err := ConnectDB(config.DBConfig{Driver: "oracle"})
	require.Error(t, err)
}

func TestMigrate_UnsupportedDriver(t *testing.T) {
	db, err := ConnectDB(config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "suar.db"),
	})
	require.NoError(t, err)
	defer db.Close()

	require.Error(t, Migrate(db, "oracle"))
}
