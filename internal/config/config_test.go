package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 10, cfg.Search.DefaultPageSize)
	assert.Equal(t, 100, cfg.Search.MaxPageSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Paths.DataDir)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Search.DefaultPageSize)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
version: 1
paths:
  data_dir: /tmp/stash-test
search:
  default_page_size: 25
  max_page_size: 50
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/stash-test", cfg.Paths.DataDir)
	assert.Equal(t, 25, cfg.Search.DefaultPageSize)
	assert.Equal(t, 50, cfg.Search.MaxPageSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  data_dir: /from-file\n"), 0o644))

	t.Setenv("READSTASH_DATA_DIR", "/from-env")
	t.Setenv("READSTASH_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from-env", cfg.Paths.DataDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.Paths.DataDir = "" }},
		{"zero page size", func(c *Config) { c.Search.DefaultPageSize = 0 }},
		{"max below default", func(c *Config) { c.Search.MaxPageSize = 5 }},
		{"zero batch size", func(c *Config) { c.Search.ReindexBatchSize = 0 }},
		{"zero workers", func(c *Config) { c.Search.ReindexWorkers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPaths_DeriveFromDataDir(t *testing.T) {
	cfg := NewConfig()
	cfg.Paths.DataDir = "/data/stash"

	assert.Equal(t, "/data/stash/pages.bleve", cfg.IndexPath())
	assert.Equal(t, "/data/stash/readstash.db", cfg.DatabasePath())
	assert.Equal(t, "/data/stash/logs/readstash.log", cfg.LogPath())

	cfg.Logging.FilePath = "/var/log/stash.log"
	assert.Equal(t, "/var/log/stash.log", cfg.LogPath())
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := NewConfig()
	cfg.Search.DefaultPageSize = 42
	cfg.Search.MaxPageSize = 84
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Search.DefaultPageSize)
}
