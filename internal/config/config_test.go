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
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"))

	config, err := loader.Load()

	require.NoError(t, err)
	schedule, err := config.SchedulerModel()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, schedule.BreakInterval)
	assert.Equal(t, 15*time.Second, schedule.PrebreakWarning)
	assert.Equal(t, 90*time.Second, schedule.BreakDuration)
	assert.Equal(t, 90*time.Second, schedule.IdleResetThreshold)
	assert.Equal(t, "info", config.Logging.Level)
	assert.False(t, config.Metrics.Enabled)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  break_interval: 45m
  break_duration: 3m
logging:
  level: debug
metrics:
  enabled: true
  listen_addr: "127.0.0.1:9200"
`)
	loader := NewLoader(path)

	config, err := loader.Load()

	require.NoError(t, err)
	schedule, err := config.SchedulerModel()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, schedule.BreakInterval)
	assert.Equal(t, 3*time.Minute, schedule.BreakDuration)
	// Untouched keys keep their defaults.
	assert.Equal(t, 15*time.Second, schedule.PrebreakWarning)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "127.0.0.1:9200", config.Metrics.ListenAddr)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RESTBREAK_SCHEDULER_BREAK_INTERVAL", "30m")
	loader := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"))

	config, err := loader.Load()

	require.NoError(t, err)
	schedule, err := config.SchedulerModel()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, schedule.BreakInterval)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "scheduler:\n  break_interval: twenty\n")
	loader := NewLoader(path)

	_, err := loader.Load()

	assert.ErrorContains(t, err, "scheduler.break_interval")
}

func TestLoadRejectsWarningLongerThanInterval(t *testing.T) {
	path := writeConfig(t, "scheduler:\n  break_interval: 10s\n  prebreak_warning: 15s\n")
	loader := NewLoader(path)

	_, err := loader.Load()

	assert.Error(t, err)
}

func TestTickIntervalMustBePositive(t *testing.T) {
	path := writeConfig(t, "scheduler:\n  tick_interval: 0s\n")
	loader := NewLoader(path)

	_, err := loader.Load()

	assert.ErrorContains(t, err, "tick_interval")
}
