package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/notify"
	"github.com/sdejongh/mediasync/pkg/ratelimit"
)

// AppName names the XDG directories
const AppName = "mediasync"

// Config represents the application configuration
type Config struct {
	Sync        SyncConfig        `yaml:"sync" toml:"sync"`
	Performance PerformanceConfig `yaml:"performance" toml:"performance"`
	Progress    ProgressConfig    `yaml:"progress" toml:"progress"`
	Notify      NotifyConfig      `yaml:"notify" toml:"notify"`
	Output      OutputConfig      `yaml:"output" toml:"output"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Exclude     []string          `yaml:"exclude" toml:"exclude"`
}

// SyncConfig holds sync-related settings
type SyncConfig struct {
	Comparison    models.ComparisonMethod `yaml:"comparison" toml:"comparison"`
	Overwrite     bool                    `yaml:"overwrite" toml:"overwrite"`
	WriteManifest bool                    `yaml:"write_manifest" toml:"write_manifest"`
	LogDir        string                  `yaml:"log_dir" toml:"log_dir"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxWorkers     int    `yaml:"max_workers" toml:"max_workers"`
	BufferSize     int    `yaml:"buffer_size" toml:"buffer_size"`
	BandwidthLimit string `yaml:"bandwidth_limit" toml:"bandwidth_limit"` // e.g. "10M", empty = unlimited
}

// ProgressConfig holds progress reporting settings
type ProgressConfig struct {
	Every        int  `yaml:"every" toml:"every"`
	PerDirectory bool `yaml:"per_directory" toml:"per_directory"`
}

// NotifyConfig holds notification settings
type NotifyConfig struct {
	Enabled bool          `yaml:"enabled" toml:"enabled"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format" toml:"format"`     // "human" or "json"
	Progress bool   `yaml:"progress" toml:"progress"` // Show progress bar on terminals
	Quiet    bool   `yaml:"quiet" toml:"quiet"`       // Suppress non-error output
	Color    bool   `yaml:"color" toml:"color"`
}

// LoggingConfig holds application log settings
type LoggingConfig struct {
	Format     string `yaml:"format" toml:"format"` // "json" or "text"
	Level      string `yaml:"level" toml:"level"`   // "debug", "info", "warn", "error"
	File       string `yaml:"file" toml:"file"`     // Log file path (empty = no application log)
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
}

// DefaultLogDir returns the default run-log directory under $XDG_STATE_HOME
func DefaultLogDir() string {
	return filepath.Join(xdg.StateHome, AppName, "logs")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			Comparison: models.CompareSHA256,
			LogDir:     DefaultLogDir(),
		},
		Performance: PerformanceConfig{
			MaxWorkers: 1,
			BufferSize: 65536,
		},
		Progress: ProgressConfig{
			Every: 100,
		},
		Notify: NotifyConfig{
			Timeout: notify.DefaultTimeout,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Color:    true,
		},
		Logging: LoggingConfig{
			Format:     "json",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Exclude: []string{},
	}
}

// Bandwidth returns the parsed bandwidth limit in bytes per second
func (c *Config) Bandwidth() (int64, error) {
	return ratelimit.ParseBandwidth(c.Performance.BandwidthLimit)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := models.ParseComparisonMethod(string(c.Sync.Comparison)); err != nil {
		return &models.ValidationError{
			Field:   "sync.comparison",
			Message: "must be 'size', 'diff', 'manifest' or 'sha256'",
		}
	}

	if c.Sync.LogDir == "" {
		return &models.ValidationError{
			Field:   "sync.log_dir",
			Message: "cannot be empty",
		}
	}

	if c.Performance.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "performance.max_workers",
			Message: "must be at least 1",
		}
	}

	if c.Performance.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "performance.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if _, err := c.Bandwidth(); err != nil {
		return &models.ValidationError{
			Field:   "performance.bandwidth_limit",
			Message: err.Error(),
		}
	}

	if c.Progress.Every < 1 {
		return &models.ValidationError{
			Field:   "progress.every",
			Message: "must be at least 1",
		}
	}

	if c.Notify.Timeout < 0 {
		return &models.ValidationError{
			Field:   "notify.timeout",
			Message: "cannot be negative",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{string(logging.FormatJSON): true, string(logging.FormatText): true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{
			Field:   "logging.max_size_mb",
			Message: "rotation settings cannot be negative",
		}
	}

	return nil
}
