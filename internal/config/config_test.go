package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray config.yaml or .env is read
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, 5, cfg.Pipeline.DefaultPriority)
	assert.True(t, cfg.Pipeline.StrictWebhooks)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
redis:
  host: redis.internal
  port: 6380
pipeline:
  max_job_age: 45m
  strict_webhooks: false
workers:
  base_url: http://workers:8000
`), 0o644))

	t.Setenv("CONSOLE_REDIS__PORT", "6390")
	t.Setenv("CONSOLE_PIPELINE__DEFAULT_PRIORITY", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 6390, cfg.Redis.Port, "env wins over file")
	assert.Equal(t, 45*time.Minute, cfg.Pipeline.MaxJobAge)
	assert.False(t, cfg.Pipeline.StrictWebhooks)
	assert.Equal(t, 8, cfg.Pipeline.DefaultPriority)
	assert.Equal(t, "http://workers:8000", cfg.Workers.BaseURL)
	// untouched keys keep their defaults
	assert.Equal(t, 256, cfg.Pipeline.ChainQueueSize)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "from-env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history:\n  path: /var/lib/console/history.db\n"), 0o644))
	t.Setenv("CONSOLE_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/console/history.db", cfg.History.Path)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CONSOLE_TELEMETRY__ENABLED=true\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("CONSOLE_TELEMETRY__ENABLED") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	inTempDir(t)

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	inTempDir(t)
	t.Setenv("CONSOLE_PIPELINE__CHAIN_WORKERS", "0")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.chain_workers")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"bad public url", func(c *Config) { c.Server.PublicURL = "not a url" }, "server.public_url"},
		{"redis port", func(c *Config) { c.Redis.Port = 70000 }, "redis.port"},
		{"max job age", func(c *Config) { c.Pipeline.MaxJobAge = 0 }, "pipeline.max_job_age"},
		{"negative retention", func(c *Config) { c.Pipeline.JobRetention = -time.Second }, "pipeline.job_retention"},
		{"bad worker url", func(c *Config) { c.Workers.BaseURL = "::" }, "workers.base_url"},
		{"worker url ignored when dispatch is off", func(c *Config) {
			c.Workers.BaseURL = ""
			c.Workers.DispatchEnabled = false
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedisClientConfig(t *testing.T) {
	cfg := Default()
	cfg.Redis.Host = "cache"
	cfg.Redis.DB = 2

	rc := cfg.RedisClientConfig()
	assert.Equal(t, "cache:6379", rc.Addr())
	assert.Equal(t, 2, rc.DB)
	assert.Equal(t, 10, rc.PoolSize)
	assert.Equal(t, 3, rc.MaxRetries)
}
