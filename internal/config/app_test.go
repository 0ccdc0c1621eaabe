package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadAppConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 360, cfg.Scheduler.IntervalMinutes)
	assert.Equal(t, 5, cfg.Scheduler.MaxParallelTenants)
	assert.Equal(t, "sqlite", cfg.Repository.Backend)
}

func TestLoadAppConfigReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scheduler:
  intervalMinutes: 120
  maxParallelTenants: 8
queue:
  capacity: 20
repository:
  backend: sqlite
  path: custom.db
`), 0o644))

	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Scheduler.IntervalMinutes)
	assert.Equal(t, 8, cfg.Scheduler.MaxParallelTenants)
	assert.Equal(t, 20, cfg.Queue.Capacity)
	assert.Equal(t, "custom.db", cfg.Repository.Path)
}

func TestLoadAppConfigEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  intervalMinutes: 120\n"), 0o644))

	t.Setenv("SENTINEL_SCHEDULER_INTERVAL_MINUTES", "45")
	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Scheduler.IntervalMinutes)
}

func TestAppConfigValidateRejectsBadBackend(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.Repository.Backend = "oracle"
	assert.Error(t, cfg.Validate())
}

func TestSchedulerConfigValidateRejectsConnectionTimeoutAtOrAboveTargetDeadline(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.ConnectionTimeoutSeconds = 90
	assert.Error(t, cfg.Validate())
}
