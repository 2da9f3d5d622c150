package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/mediasync/pkg/models"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, models.CompareSHA256, cfg.Sync.Comparison)
	assert.Equal(t, 100, cfg.Progress.Every)
	assert.Equal(t, 5*time.Second, cfg.Notify.Timeout)
	assert.Empty(t, cfg.Exclude)
	assert.Equal(t, filepath.Join(AppName, "logs"), filepath.Join(filepath.Base(filepath.Dir(cfg.Sync.LogDir)), filepath.Base(cfg.Sync.LogDir)))
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Equal(t, AppName, filepath.Base(filepath.Dir(path)))
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
sync:
  comparison: md5
  overwrite: true
  log_dir: /var/log/mediasync
performance:
  max_workers: 4
  bandwidth_limit: 10MB
progress:
  every: 25
  per_directory: true
notify:
  enabled: true
  timeout: 2s
exclude:
  - "*.tmp"
  - "@eaDir/"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, models.CompareHashManifest, cfg.Sync.Comparison)
	assert.True(t, cfg.Sync.Overwrite)
	assert.Equal(t, "/var/log/mediasync", cfg.Sync.LogDir)
	assert.Equal(t, 4, cfg.Performance.MaxWorkers)
	assert.Equal(t, 65536, cfg.Performance.BufferSize, "unset keys keep defaults")
	assert.Equal(t, 25, cfg.Progress.Every)
	assert.True(t, cfg.Progress.PerDirectory)
	assert.True(t, cfg.Notify.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, []string{"*.tmp", "@eaDir/"}, cfg.Exclude)

	bw, err := cfg.Bandwidth()
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), bw)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
exclude = ["Thumbs.db"]

[sync]
comparison = "size"
log_dir = "/tmp/mediasync-logs"

[performance]
max_workers = 2

[output]
format = "json"

[logging]
level = "debug"
format = "text"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, models.CompareByteSize, cfg.Sync.Comparison)
	assert.Equal(t, "/tmp/mediasync-logs", cfg.Sync.LogDir)
	assert.Equal(t, 2, cfg.Performance.MaxWorkers)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, []string{"Thumbs.db"}, cfg.Exclude)
	assert.Equal(t, 100, cfg.Progress.Every)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		field   string
	}{
		{"UnknownMethod", "c.yaml", "sync:\n  comparison: timestamp\n", "comparison"},
		{"ZeroWorkers", "c.yaml", "performance:\n  max_workers: 0\n", "performance.max_workers"},
		{"SmallBuffer", "c.toml", "[performance]\nbuffer_size = 10\n", "performance.buffer_size"},
		{"BadBandwidth", "c.yaml", "performance:\n  bandwidth_limit: fast\n", "performance.bandwidth_limit"},
		{"ZeroEvery", "c.yaml", "progress:\n  every: 0\n", "progress.every"},
		{"BadOutput", "c.yaml", "output:\n  format: xml\n", "output.format"},
		{"BadLogLevel", "c.yaml", "logging:\n  level: trace\n", "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)

			var vErr *models.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	_, err := LoadFromFile(writeConfig(t, "c.yaml", "sync: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Sync.LogDir = "/srv/logs"
			cfg.Performance.MaxWorkers = 3
			cfg.Notify.Timeout = 1500 * time.Millisecond
			cfg.Exclude = []string{"*.part"}

			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, SaveToFile(cfg, path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Progress.Every = -1
	err := SaveToFile(cfg, filepath.Join(t.TempDir(), "config.yaml"))
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs"), expandHome("~/logs"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
	assert.Equal(t, "", expandHome(""))
}
