package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Probe names
const (
	ProbeValue    = "value"
	ProbeError    = "error"
	ProbeHTTP     = "http"
	ProbeDatabase = "database"
	ProbeExecutor = "executor"
)

// AllProbes lists every probe in execution order
var AllProbes = []string{ProbeValue, ProbeError, ProbeHTTP, ProbeDatabase, ProbeExecutor}

// HTTPConfig configures the external fetch probe
type HTTPConfig struct {
	BaseURL   string `yaml:"base_url" json:"base_url"`
	Path      string `yaml:"path" json:"path"`
	ExpectKey string `yaml:"expect_key" json:"expect_key"`
	// Timeout is a Go duration string; empty means no deadline
	Timeout   string `yaml:"timeout" json:"timeout"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	TokenFile string `yaml:"token_file" json:"token_file"`
	TokenEnv  string `yaml:"token_env" json:"token_env"`
}

// DatabaseConfig configures the database round-trip probe
type DatabaseConfig struct {
	DSN   string `yaml:"dsn" json:"dsn"`
	Value string `yaml:"value" json:"value"`
}

// ExecutorConfig configures the worker pool used by the executor probe
type ExecutorConfig struct {
	Workers   int    `yaml:"workers" json:"workers"`
	QueueSize int    `yaml:"queue_size" json:"queue_size"`
	TaskDelay string `yaml:"task_delay" json:"task_delay"`
}

// RunnerConfig controls which probes run and how
type RunnerConfig struct {
	Parallel     bool     `yaml:"parallel" json:"parallel"`
	Probes       []string `yaml:"probes" json:"probes"`
	ProbeTimeout string   `yaml:"probe_timeout" json:"probe_timeout"`
}

// HistoryConfig controls persistence of run results
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
	// Format is "json" or "console"
	Format string `yaml:"format" json:"format"`
}

// Config holds all configuration for asyncprobe
type Config struct {
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Executor ExecutorConfig `yaml:"executor" json:"executor"`
	Runner   RunnerConfig   `yaml:"runner" json:"runner"`
	History  HistoryConfig  `yaml:"history" json:"history"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			BaseURL:   "https://api.github.com",
			Path:      "/",
			ExpectKey: "current_user_url",
			Timeout:   "",
			UserAgent: "asyncprobe",
			TokenEnv:  "ASYNCPROBE_HTTP_TOKEN",
		},
		Database: DatabaseConfig{
			DSN:   ":memory:",
			Value: "TestValue",
		},
		Executor: ExecutorConfig{
			Workers:   4,
			QueueSize: 64,
			TaskDelay: "1s",
		},
		Runner: RunnerConfig{
			Parallel:     false,
			Probes:       append([]string(nil), AllProbes...),
			ProbeTimeout: "",
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    "",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from path on top of the defaults. A missing
// file yields the defaults. Files ending in .json are decoded as JSON,
// everything else as YAML. Environment overrides are applied last.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := decode(configPath, data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", configPath, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("ASYNCPROBE_HTTP_BASE_URL")); v != "" {
		c.HTTP.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ASYNCPROBE_LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
}

// SaveConfig saves the configuration to a file, as JSON when the path ends
// in .json and YAML otherwise
func (c *Config) SaveConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// DefaultConfigDir returns ~/.config/asyncprobe
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "asyncprobe")
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultHistoryPath returns the default run history database path
func DefaultHistoryPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "history.sqlite3")
}

// HistoryPath returns the configured history path or the default
func (c *Config) HistoryPath() string {
	if strings.TrimSpace(c.History.Path) != "" {
		return c.History.Path
	}
	return DefaultHistoryPath()
}

// GetHTTPTimeout returns the parsed HTTP timeout; zero means none
func (c *Config) GetHTTPTimeout() time.Duration {
	return parseDuration(c.HTTP.Timeout, 0)
}

// GetTaskDelay returns the executor probe delay
func (c *Config) GetTaskDelay() time.Duration {
	return parseDuration(c.Executor.TaskDelay, time.Second)
}

// GetProbeTimeout returns the per-probe deadline; zero means none
func (c *Config) GetProbeTimeout() time.Duration {
	return parseDuration(c.Runner.ProbeTimeout, 0)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(s) != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}
