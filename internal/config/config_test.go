package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "postgres:\n  dsn: postgres://localhost/watchlist\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, ":8080", cfg.HTTP.Port)
	assert.True(t, cfg.Watchlist.Enabled)
	assert.True(t, cfg.Notifications.OfflineEnabled)
	assert.Equal(t, 50, cfg.Notifications.MaxDeliverPerJoin)
	assert.Equal(t, 30*time.Second, cfg.Notifications.ClaimTTL)
	assert.Equal(t, 5, cfg.Consumer.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Consumer.BaseBackoff)
	assert.Equal(t, "postgres://localhost/watchlist", cfg.Postgres.DSN)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
watchlist:
  enabled: false
notifications:
  max_deliver_per_join: 20
  claim_ttl: 1m
redis:
  addr: localhost:6379
`)
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("NOTIFICATIONS_OFFLINE_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Watchlist.Enabled)
	assert.False(t, cfg.Notifications.OfflineEnabled)
	assert.Equal(t, 20, cfg.Notifications.MaxDeliverPerJoin)
	assert.Equal(t, time.Minute, cfg.Notifications.ClaimTTL)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
}

func TestNewConfig_UsesConfigPath(t *testing.T) {
	path := writeConfig(t, "logger:\n  level: debug\n")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
