package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
listen_addr: ":9000"
plugin_id: "my-first-widget"
store:
  driver: sqlite
  dsn: ":memory:"
schema:
  dir: ./schemas
  watch: false
auth:
  jwt_secret: "s3cret"
  admin_email: "admin@example.com"
  token_ttl: 30m
counts:
  concurrency: 8
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "my-first-widget", cfg.PluginID)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, ":memory:", cfg.Store.DSN)
	assert.False(t, cfg.Schema.Watch)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 8, cfg.Counts.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONTENTMETRICS_STORE_DSN", "postgres://localhost/cms")
	t.Setenv("CONTENTMETRICS_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("CONTENTMETRICS_LISTEN_ADDR", ":8088")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8088", cfg.ListenAddr)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/cms", cfg.Store.DSN)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "metrics-widget", cfg.PluginID)
	assert.Equal(t, 4, cfg.Counts.Concurrency)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		PluginID: "metrics-widget",
		Store:    StoreConfig{Driver: "mysql"},
		Auth:     AuthConfig{TokenTTL: time.Hour},
		Counts:   CountsConfig{Concurrency: 0},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
	assert.Contains(t, err.Error(), "store.dsn is required")
	assert.Contains(t, err.Error(), "auth.jwt_secret is required")
	assert.Contains(t, err.Error(), "counts.concurrency")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
