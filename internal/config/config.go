package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/flaggrid/internal/validate"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
)

// Config is the flagctl configuration. Fields are pointers so a partial
// file leaves the rest at their defaults; the Get* methods resolve them.
type Config struct {
	// Grid shape used by seed
	Rows *int `json:"rows,omitempty" yaml:"rows,omitempty" env:"FLAGGRID_ROWS"`
	Cols *int `json:"cols,omitempty" yaml:"cols,omitempty" env:"FLAGGRID_COLS"`

	// Storage
	Store     *string `json:"store,omitempty" yaml:"store,omitempty" env:"FLAGGRID_STORE"` // "sqlite" or "badger"
	DBPath    *string `json:"db_path,omitempty" yaml:"db_path,omitempty" env:"FLAGGRID_DB_PATH"`
	BadgerDir *string `json:"badger_dir,omitempty" yaml:"badger_dir,omitempty" env:"FLAGGRID_BADGER_DIR"`

	// Flush params
	FlushInterval *string `json:"flush_interval,omitempty" yaml:"flush_interval,omitempty" env:"FLAGGRID_FLUSH_INTERVAL"` // duration string like "60s"
	SkipUnchanged *bool   `json:"skip_unchanged,omitempty" yaml:"skip_unchanged,omitempty" env:"FLAGGRID_SKIP_UNCHANGED"`

	// Validation rules applied to Set
	Validation validate.Rules `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// Load reads a .json, .yaml or .yml file, applies FLAGGRID_* environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a configuration from FLAGGRID_* variables alone.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields whose FLAGGRID_* variable is set.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Rows != nil && *c.Rows < 0 {
		return fmt.Errorf("rows must be non-negative, got %d", *c.Rows)
	}
	if c.Cols != nil && *c.Cols < 0 {
		return fmt.Errorf("cols must be non-negative, got %d", *c.Cols)
	}
	if c.Store != nil && *c.Store != StoreSQLite && *c.Store != StoreBadger {
		return fmt.Errorf("store must be %q or %q, got %q", StoreSQLite, StoreBadger, *c.Store)
	}
	if c.FlushInterval != nil && *c.FlushInterval != "" {
		d, err := time.ParseDuration(*c.FlushInterval)
		if err != nil {
			return fmt.Errorf("invalid flush_interval '%s': %w", *c.FlushInterval, err)
		}
		if d < 0 {
			return fmt.Errorf("flush_interval must be non-negative, got %s", d)
		}
	}
	if _, err := validate.Compile(c.Validation); err != nil {
		return fmt.Errorf("validation: %w", err)
	}
	return nil
}

// GetRows returns rows or the default.
func (c *Config) GetRows() int {
	if c.Rows == nil {
		return 16
	}
	return *c.Rows
}

// GetCols returns cols or the default.
func (c *Config) GetCols() int {
	if c.Cols == nil {
		return 16
	}
	return *c.Cols
}

// GetStore returns the store backend or the default.
func (c *Config) GetStore() string {
	if c.Store == nil || *c.Store == "" {
		return StoreSQLite
	}
	return *c.Store
}

// GetDBPath returns the SQLite path or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "flaggrid.db"
	}
	return *c.DBPath
}

// GetBadgerDir returns the Badger directory or the default.
func (c *Config) GetBadgerDir() string {
	if c.BadgerDir == nil || *c.BadgerDir == "" {
		return "flaggrid.badger"
	}
	return *c.BadgerDir
}

// GetFlushInterval parses and returns the FlushInterval as a time.Duration.
func (c *Config) GetFlushInterval() time.Duration {
	if c.FlushInterval == nil || *c.FlushInterval == "" {
		return 60 * time.Second // default
	}
	d, err := time.ParseDuration(*c.FlushInterval)
	if err != nil {
		return 60 * time.Second // default on parse error
	}
	return d
}

// GetSkipUnchanged returns skip_unchanged or the default.
func (c *Config) GetSkipUnchanged() bool {
	if c.SkipUnchanged == nil {
		return true
	}
	return *c.SkipUnchanged
}
