// Package config loads and validates readstash configuration.
//
// Configuration hierarchy (later wins):
//  1. Hardcoded defaults (NewConfig)
//  2. Config file (~/.config/readstash/config.yaml or --config)
//  3. Environment variables (READSTASH_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the complete readstash configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PathsConfig configures where index and document data live.
type PathsConfig struct {
	// DataDir holds the search index and the document database.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// SearchConfig configures search and pagination behavior.
type SearchConfig struct {
	// DefaultPageSize is used when a search request carries no size.
	DefaultPageSize int `yaml:"default_page_size" json:"default_page_size"`

	// MaxPageSize caps the per-request page size.
	MaxPageSize int `yaml:"max_page_size" json:"max_page_size"`

	// ReindexBatchSize is the number of pages indexed per batch during
	// a full index rebuild.
	ReindexBatchSize int `yaml:"reindex_batch_size" json:"reindex_batch_size"`

	// ReindexWorkers is the number of concurrent batch writers during
	// a full index rebuild.
	ReindexWorkers int `yaml:"reindex_workers" json:"reindex_workers"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	FilePath  string `yaml:"file_path" json:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns a Config with hardcoded defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir: DefaultDataDir(),
		},
		Search: SearchConfig{
			DefaultPageSize:  10,
			MaxPageSize:      100,
			ReindexBatchSize: 100,
			ReindexWorkers:   4,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DefaultDataDir returns the default data directory (~/.readstash).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".readstash")
	}
	return filepath.Join(home, ".readstash")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "readstash", "config.yaml")
	}
	return filepath.Join(home, ".config", "readstash", "config.yaml")
}

// Load reads configuration from the given path (or the default location if
// path is empty), applies environment overrides and validates the result.
// A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults apply.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies READSTASH_* environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("READSTASH_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("READSTASH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("READSTASH_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.DefaultPageSize = n
		}
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	if c.Search.DefaultPageSize < 1 {
		return fmt.Errorf("search.default_page_size must be >= 1, got %d", c.Search.DefaultPageSize)
	}
	if c.Search.MaxPageSize < c.Search.DefaultPageSize {
		return fmt.Errorf("search.max_page_size (%d) must be >= default_page_size (%d)",
			c.Search.MaxPageSize, c.Search.DefaultPageSize)
	}
	if c.Search.ReindexBatchSize < 1 {
		return fmt.Errorf("search.reindex_batch_size must be >= 1, got %d", c.Search.ReindexBatchSize)
	}
	if c.Search.ReindexWorkers < 1 {
		return fmt.Errorf("search.reindex_workers must be >= 1, got %d", c.Search.ReindexWorkers)
	}
	return nil
}

// IndexPath returns the bleve index directory path.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Paths.DataDir, "pages.bleve")
}

// DatabasePath returns the SQLite document database path.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "readstash.db")
}

// LogPath returns the log file path, defaulting into the data directory.
func (c *Config) LogPath() string {
	if c.Logging.FilePath != "" {
		return c.Logging.FilePath
	}
	return filepath.Join(c.Paths.DataDir, "logs", "readstash.log")
}

// Save writes the config as YAML to the given path, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
