package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/veloq/bikectl/internal/config"
	"codeberg.org/veloq/bikectl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bikectl.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad(t *testing.T) {
	configPath := writeConfigFile(t, `
base_url = "http://bike.local:5000/api"
poll_interval_ms = 2000
request_timeout_ms = 1500
offline_threshold = 5
metrics_listen = ":9102"
log_level = "debug"
`)
	t.Setenv("BIKECTL_CONFIG", configPath)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "http://bike.local:5000/api", cfg.BaseURL)
	assert.Equal(t, 2000, cfg.PollIntervalMs)
	assert.Equal(t, 1500, cfg.RequestTimeoutMs)
	assert.Equal(t, 5, cfg.OfflineThreshold)
	assert.Equal(t, ":9102", cfg.MetricsListen)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDefaults(t *testing.T) {
	configPath := writeConfigFile(t, "")
	t.Setenv("BIKECTL_CONFIG", configPath)
	t.Setenv("BIKECTL_BASE_URL", "http://bike.local:5000/api")

	cfg, err := config.Load(nil)
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, "http://bike.local:5000/api", cfg.BaseURL)
	assert.Equal(t, config.DefaultPollIntervalMs, cfg.PollIntervalMs)
	assert.Equal(t, config.DefaultRequestTimeoutMs, cfg.RequestTimeoutMs)
	assert.Equal(t, config.DefaultOfflineThreshold, cfg.OfflineThreshold)
	assert.Empty(t, cfg.MetricsListen)
	assert.Equal(t, config.DefaultLogLevel.String(), cfg.LogLevel)
}

func TestLoadMissingBaseURL(t *testing.T) {
	configPath := writeConfigFile(t, "")
	t.Setenv("BIKECTL_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMissingBaseURL))
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfigFile(t, `
This is not a valid TOML file
`)
	t.Setenv("BIKECTL_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestInvalidLogLevel(t *testing.T) {
	configPath := writeConfigFile(t, `
base_url = "http://bike.local:5000/api"
log_level = "invalid"
`)
	t.Setenv("BIKECTL_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestInvalidInterval(t *testing.T) {
	configPath := writeConfigFile(t, `
base_url = "http://bike.local:5000/api"
poll_interval_ms = 0
`)
	t.Setenv("BIKECTL_CONFIG", configPath)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInterval))
}

func TestFlagsOverrideFile(t *testing.T) {
	configPath := writeConfigFile(t, `
base_url = "http://bike.local:5000/api"
poll_interval_ms = 2000
`)
	t.Setenv("BIKECTL_CONFIG", configPath)

	cfg, err := config.Load([]string{"--poll-interval-ms", "250", "--log-level", "debug"})
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.PollIntervalMs, "Expected flag to override file value")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}

func TestEffectiveLogLevel(t *testing.T) {
	cfg := &config.Config{LogLevel: "warning"}
	assert.Equal(t, "warning", cfg.EffectiveLogLevel())

	cfg.Verbose = true
	assert.Equal(t, "info", cfg.EffectiveLogLevel())

	cfg.Debug = true
	assert.Equal(t, "debug", cfg.EffectiveLogLevel())
}
