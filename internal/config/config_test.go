package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Postgres(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "suar")
	t.Setenv("DB_PASS", "secret")
	t.Setenv("DB_NAME", "suar")
	t.Setenv("DB_SSLMODE", "disable")
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "host=localhost port=5432 user=suar password=secret dbname=suar sslmode=disable", cfg.DB.DSN)
	assert.Equal(t, 30*time.Second, cfg.Proxy.DefaultTimeout)
	assert.Equal(t, 90*time.Second, cfg.Proxy.MaxTimeout)
	assert.Equal(t, 5, cfg.Proxy.MaxRedirects)
	assert.Equal(t, int64(10*1024*1024), cfg.Proxy.MaxBodyBytes)
	assert.False(t, cfg.Proxy.AllowPrivateTargets)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_PORT", "not-a-number")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid DB_PORT")
}

func TestLoadConfig_SQLite(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_PATH", "/tmp/suar-test.db")
	t.Setenv("PROXY_ALLOW_PRIVATE_TARGETS", "true")
	t.Setenv("PROXY_DEFAULT_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://suar.dev")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "/tmp/suar-test.db", cfg.DB.DSN)
	assert.True(t, cfg.Proxy.AllowPrivateTargets)
	assert.Equal(t, 5*time.Second, cfg.Proxy.DefaultTimeout)
	assert.Equal(t, []string{"http://localhost:3000", "https://suar.dev"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfig_UnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_InvalidTimeouts(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("PROXY_DEFAULT_TIMEOUT", "2m")
	t.Setenv("PROXY_MAX_TIMEOUT", "1m")

	_, err := LoadConfig()
	require.Error(t, err)
}
