package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "https://api.github.com", cfg.HTTP.BaseURL)
	assert.Equal(t, "/", cfg.HTTP.Path)
	assert.Equal(t, "current_user_url", cfg.HTTP.ExpectKey)
	assert.Empty(t, cfg.HTTP.Timeout)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
	assert.Equal(t, "TestValue", cfg.Database.Value)
	assert.Equal(t, "1s", cfg.Executor.TaskDelay)
	assert.Equal(t, AllProbes, cfg.Runner.Probes)
	assert.False(t, cfg.Runner.Parallel)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfig_ProbesNotShared(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runner.Probes[0] = "mutated"

	assert.Equal(t, ProbeValue, AllProbes[0])
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http:
  base_url: https://example.test
  timeout: 5s
runner:
  parallel: true
  probes: [value, database]
executor:
  task_delay: 10ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.test", cfg.HTTP.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.GetHTTPTimeout())
	assert.True(t, cfg.Runner.Parallel)
	assert.Equal(t, []string{"value", "database"}, cfg.Runner.Probes)
	assert.Equal(t, 10*time.Millisecond, cfg.GetTaskDelay())
	// untouched sections keep defaults
	assert.Equal(t, "current_user_url", cfg.HTTP.ExpectKey)
	assert.Equal(t, "TestValue", cfg.Database.Value)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database":{"value":"FromJSON"}}`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "FromJSON", cfg.Database.Value)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
}

func TestLoadConfig_InvalidContent(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("http: [unclosed"), 0o600))
	cfg, err := LoadConfig(yamlPath)
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "parse config")

	jsonPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("{invalid"), 0o600))
	cfg, err = LoadConfig(jsonPath)
	assert.Nil(t, cfg)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ASYNCPROBE_HTTP_BASE_URL", "https://env.example.test")
	t.Setenv("ASYNCPROBE_LOG_LEVEL", "debug")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.test", cfg.HTTP.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := DefaultConfig()
			cfg.Runner.Probes = []string{ProbeExecutor}
			cfg.Executor.Workers = 2

			require.NoError(t, cfg.SaveConfig(path))
			assert.FileExists(t, path)

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestDurations_InvalidFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.Timeout = "soon"
	cfg.Executor.TaskDelay = "later"
	cfg.Runner.ProbeTimeout = ""

	assert.Zero(t, cfg.GetHTTPTimeout())
	assert.Equal(t, time.Second, cfg.GetTaskDelay())
	assert.Zero(t, cfg.GetProbeTimeout())
}

func TestHistoryPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultHistoryPath(), cfg.HistoryPath())

	cfg.History.Path = "/tmp/custom.sqlite3"
	assert.Equal(t, "/tmp/custom.sqlite3", cfg.HistoryPath())
}

func TestDefaultPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".config", "asyncprobe"), DefaultConfigDir())
	assert.Equal(t, filepath.Join(home, ".config", "asyncprobe", "config.yaml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join(home, ".config", "asyncprobe", "history.sqlite3"), DefaultHistoryPath())
}
