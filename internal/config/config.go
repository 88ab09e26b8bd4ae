// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and RICE_ env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Storage drivers understood by the service.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StorageDriver selects the session repository: memory or sqlite.
	StorageDriver string `koanf:"storage_driver"`

	// SQLitePath is the database file used when StorageDriver is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// EventQueueSize bounds the in-memory session event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of event dispatch workers.
	WorkerCount int `koanf:"worker_count"`

	// SubscriberBuffer is the per-subscriber event buffer; full buffers drop events.
	SubscriberBuffer int `koanf:"subscriber_buffer"`

	// CatalogFile optionally replaces the built-in default catalog (YAML). It is
	// written over the stored default on every start.
	CatalogFile string `koanf:"catalog_file"`

	// RecordsBaseURL points at the initiative record lookup service. Empty disables lookups.
	RecordsBaseURL string `koanf:"records_base_url"`

	// RecordsTimeoutMS bounds a single record lookup.
	RecordsTimeoutMS int `koanf:"records_timeout_ms"`

	// ThresholdHigh and ThresholdMedium are the priority thresholds used
	// until ThresholdMinHistory results have been persisted.
	ThresholdHigh       float64 `koanf:"threshold_high"`
	ThresholdMedium     float64 `koanf:"threshold_medium"`
	ThresholdMinHistory int     `koanf:"threshold_min_history"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		StorageDriver:       StorageMemory,
		SQLitePath:          "rice.sqlite",
		EventQueueSize:      10_000,
		WorkerCount:         runtime.NumCPU(),
		SubscriberBuffer:    64,
		RecordsTimeoutMS:    3000,
		ThresholdHigh:       3.0,
		ThresholdMedium:     1.5,
		ThresholdMinHistory: 3,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StorageDriver {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty for the sqlite driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage_driver %q", ErrInvalidConfig, c.StorageDriver)
	}
	if c.ThresholdMedium > c.ThresholdHigh {
		return fmt.Errorf("%w: threshold_medium must not exceed threshold_high", ErrInvalidConfig)
	}
	return nil
}
