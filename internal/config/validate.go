package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the configuration for values that would make a run meaningless
func (c *Config) Validate() error {
	if err := validateDuration("http.timeout", c.HTTP.Timeout); err != nil {
		return err
	}
	if err := validateDuration("executor.task_delay", c.Executor.TaskDelay); err != nil {
		return err
	}
	if err := validateDuration("runner.probe_timeout", c.Runner.ProbeTimeout); err != nil {
		return err
	}

	if strings.TrimSpace(c.HTTP.ExpectKey) == "" {
		return fmt.Errorf("http.expect_key must not be empty")
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn must not be empty")
	}
	if c.Executor.Workers < 0 {
		return fmt.Errorf("executor.workers must not be negative: %d", c.Executor.Workers)
	}
	if c.Executor.QueueSize < 0 {
		return fmt.Errorf("executor.queue_size must not be negative: %d", c.Executor.QueueSize)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}

	return nil
}

func validateDuration(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must not be negative", field)
	}
	return nil
}
