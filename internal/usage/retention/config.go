package retention

import (
	"time"

	"github.com/checkvibe/gatekeeper/internal/config"
)

// Config controls the usage log retention loop. A zero MaxAge disables pruning.
type Config struct {
	MaxAge       time.Duration
	BatchSize    int
	PollInterval time.Duration
	RunTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAge:       90 * 24 * time.Hour,
		BatchSize:    1000,
		PollInterval: time.Hour,
		RunTimeout:   30 * time.Second,
	}
}

// ConfigFromApp derives the worker settings from the service configuration.
func ConfigFromApp(cfg config.Config) Config {
	out := DefaultConfig()
	out.MaxAge = time.Duration(cfg.UsageLogRetentionDays) * 24 * time.Hour
	return out
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.MaxAge < 0 {
		c.MaxAge = 0
	}
	return c
}
