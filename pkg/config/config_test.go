package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PULSE_DATABASE_URL", "postgres://localhost/journals?sslmode=disable")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Pipeline.MaxQueueSize)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.FlushInterval)
	assert.Equal(t, 50, cfg.Pipeline.BackupLimit)
	assert.Equal(t, 30*time.Minute, cfg.Pipeline.SessionTTL)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PULSE_DATABASE_URL", "postgres://localhost/journals")
	t.Setenv("PULSE_MAX_QUEUE_SIZE", "25")
	t.Setenv("PULSE_FLUSH_INTERVAL", "5s")
	t.Setenv("PULSE_LOG_LEVEL", "debug")
	t.Setenv("PULSE_METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Pipeline.MaxQueueSize)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.FlushInterval)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfigMissingDatabaseURL(t *testing.T) {
	t.Setenv("PULSE_DATABASE_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "zero queue size",
			mutate: func(c *Config) { c.Pipeline.MaxQueueSize = 0 },
			want:   "max queue size",
		},
		{
			name:   "zero flush interval",
			mutate: func(c *Config) { c.Pipeline.FlushInterval = 0 },
			want:   "flush interval",
		},
		{
			name:   "backup smaller than queue",
			mutate: func(c *Config) { c.Pipeline.BackupLimit = 5 },
			want:   "backup limit",
		},
		{
			name:   "zero session TTL",
			mutate: func(c *Config) { c.Pipeline.SessionTTL = 0 },
			want:   "session TTL",
		},
		{
			name:   "zero delivery timeout",
			mutate: func(c *Config) { c.Pipeline.DeliveryTimeout = 0 },
			want:   "delivery timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Database.URL = "postgres://localhost/journals"
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("PULSE_DATABASE_URL", "")

	path := filepath.Join(t.TempDir(), "pulse.yaml")
	data := `
database:
  url: postgres://db.internal/journals
pipeline:
  max_queue_size: 20
  flush_interval: 30s
  backup_limit: 100
observability:
  log_level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://db.internal/journals", cfg.Database.URL)
	assert.Equal(t, 20, cfg.Pipeline.MaxQueueSize)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.FlushInterval)
	assert.Equal(t, "warn", cfg.Observability.LogLevel)
	// Untouched fields keep defaults.
	assert.Equal(t, 30*time.Minute, cfg.Pipeline.SessionTTL)
}

func TestLoadConfigFileEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  url: postgres://file/db\n"), 0o644))

	t.Setenv("PULSE_DATABASE_URL", "postgres://env/db")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
