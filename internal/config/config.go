// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config represents the CLI configuration that can be loaded from a YAML or JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Crawl
	SearchURL string `json:"search_url,omitempty" yaml:"search_url,omitempty" validate:"omitempty,url"` // Listing page opened before crawling
	MaxPages  int    `json:"max_pages,omitempty" yaml:"max_pages,omitempty" validate:"gte=0"`           // 0 = until no next page

	// Storage
	StoreBackend string `json:"store_backend,omitempty" yaml:"store_backend,omitempty" validate:"omitempty,oneof=memory sqlite postgres"`
	SQLitePath   string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	DatabaseURL  string `json:"database_url,omitempty" yaml:"database_url,omitempty" validate:"required_if=StoreBackend postgres"` // PostgreSQL connection URL
	StoreKey     string `json:"store_key,omitempty" yaml:"store_key,omitempty"`

	// Browser
	Headless    bool    `json:"headless,omitempty" yaml:"headless,omitempty"`
	ChromePath  string  `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	UserDataDir string  `json:"user_data_dir,omitempty" yaml:"user_data_dir,omitempty"`
	NavRate     float64 `json:"nav_rate_per_sec,omitempty" yaml:"nav_rate_per_sec,omitempty" validate:"gte=0"` // Background pages opened per second
	NavBurst    int     `json:"nav_burst,omitempty" yaml:"nav_burst,omitempty" validate:"gte=0"`

	// Paths
	DataDir string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"` // Holds the SQLite file and the run lock
	OutDir  string `json:"out_dir,omitempty" yaml:"out_dir,omitempty"`   // Export destination

	// Server
	Port int `json:"port,omitempty" yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		StoreBackend: BackendSQLite,
		StoreKey:     "scrapedData",
		NavRate:      0.5,
		NavBurst:     2,
		DataDir:      ".lead_scraper",
		OutDir:       ".",
		Port:         8080,
	}
}

// LoadConfig loads configuration from a YAML (.yaml, .yml) or JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Load reads the optional config file at path, applies LEADSCRAPER_* environment
// overrides and fills the remaining gaps from Defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = *loaded
	}
	cfg.ApplyEnv()
	return cfg.MergeWithDefaults(Defaults()), nil
}

var validate = validator.New()

// Validate checks that the configuration has valid values.
// Note: This doesn't check that a search URL is present since crawls may run
// against the page already open in the browser.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.StoreBackend == BackendPostgres && !strings.HasPrefix(c.DatabaseURL, "postgres") {
		return fmt.Errorf("config error: 'database_url' must be a postgres:// or postgresql:// URL")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.SearchURL == "" {
		result.SearchURL = defaults.SearchURL
	}
	if result.StoreBackend == "" {
		result.StoreBackend = defaults.StoreBackend
	}
	if result.SQLitePath == "" {
		result.SQLitePath = defaults.SQLitePath
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.StoreKey == "" {
		result.StoreKey = defaults.StoreKey
	}
	if result.ChromePath == "" {
		result.ChromePath = defaults.ChromePath
	}
	if result.UserDataDir == "" {
		result.UserDataDir = defaults.UserDataDir
	}
	if result.DataDir == "" {
		result.DataDir = defaults.DataDir
	}
	if result.OutDir == "" {
		result.OutDir = defaults.OutDir
	}

	// Numeric fields: use default if zero
	if result.MaxPages == 0 {
		result.MaxPages = defaults.MaxPages
	}
	if result.NavRate == 0 {
		result.NavRate = defaults.NavRate
	}
	if result.NavBurst == 0 {
		result.NavBurst = defaults.NavBurst
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// SQLiteFile returns the SQLite database path, defaulting to a file inside DataDir.
func (c *Config) SQLiteFile() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(c.DataDir, "leads.db")
}

// LockFile returns the path of the cross-process crawl lock.
func (c *Config) LockFile() string {
	return filepath.Join(c.DataDir, "crawl.lock")
}
