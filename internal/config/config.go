// Package config loads and validates Recall configuration.
//
// Configuration lives at ~/.recall/config.yaml. A missing or malformed file
// is never fatal: defaults are used and a warning is logged.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default chunking parameters (characters, roughly ~500 tokens per chunk).
const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 200
)

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level"`
}

// Config contains all Recall settings.
type Config struct {
	// StorageDir is the root directory holding document markdown files.
	StorageDir string `yaml:"storage_dir"`

	// DataDir holds derived state: search index, sync state, feed database.
	DataDir string `yaml:"data_dir"`

	// IndexPath is the bleve index directory. Defaults to <data_dir>/index.bleve.
	IndexPath string `yaml:"index_path"`

	// StateFile is the sync state file. Defaults to <data_dir>/sync_state.json.
	StateFile string `yaml:"state_file"`

	// FeedDB is the knowledge feed database. Defaults to <data_dir>/knowledge.db.
	FeedDB string `yaml:"feed_db"`

	// ChunkSize is the target chunk size in characters for feed ingestion.
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is the overlap between adjacent chunks in characters.
	ChunkOverlap int `yaml:"chunk_overlap"`

	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the default configuration.
func Default() *Config {
	dataDir := defaultDataDir()

	cfg := &Config{
		StorageDir:   filepath.Join(dataDir, "recordings"),
		DataDir:      dataDir,
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		Logging:      LoggingConfig{Level: "info"},
	}
	cfg.applyDerivedDefaults()
	return cfg
}

// DefaultPath returns the default config file location (~/.recall/config.yaml).
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Load reads configuration from path, falling back to defaults.
// A missing file returns defaults silently; a malformed file returns
// defaults with a warning. Environment variables RECALL_STORAGE_DIR and
// RECALL_DATA_DIR override file values.
func Load(path string) *Config {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read config file, using defaults",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("malformed config file, using defaults",
			slog.String("path", path),
			slog.String("error", err.Error()))
		cfg = Default()
	}

	cfg.applyEnvOverrides()
	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		slog.Warn("invalid config values, using defaults",
			slog.String("error", err.Error()))
		cfg = Default()
	}

	return cfg
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks config values for consistency.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir must not be empty")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RECALL_STORAGE_DIR"); v != "" {
		c.StorageDir = v
	}
	if v := os.Getenv("RECALL_DATA_DIR"); v != "" {
		c.DataDir = v
		// Derived paths follow the data dir unless set explicitly
		c.IndexPath = ""
		c.StateFile = ""
		c.FeedDB = ""
	}
}

// applyDerivedDefaults fills in paths derived from DataDir when unset.
func (c *Config) applyDerivedDefaults() {
	if c.IndexPath == "" {
		c.IndexPath = filepath.Join(c.DataDir, "index.bleve")
	}
	if c.StateFile == "" {
		c.StateFile = filepath.Join(c.DataDir, "sync_state.json")
	}
	if c.FeedDB == "" {
		c.FeedDB = filepath.Join(c.DataDir, "knowledge.db")
	}
}

// defaultDataDir returns ~/.recall, or a temp fallback when the home
// directory is unavailable.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".recall")
	}
	return filepath.Join(home, ".recall")
}
