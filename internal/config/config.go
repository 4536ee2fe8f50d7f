// Package config loads the searchlab configuration: hardcoded defaults,
// optionally a YAML file, then SEARCHLAB_* environment overrides applied
// explicitly at load time. Components never read the environment themselves;
// they receive the relevant section struct from their caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/searchlab-dev/searchlab/internal/errors"
)

// Config is the complete searchlab configuration.
type Config struct {
	Index    IndexConfig    `yaml:"index" json:"index"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Provider ProviderConfig `yaml:"provider" json:"provider"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

// IndexConfig tunes the local vector index.
type IndexConfig struct {
	// Dimensions is the dense embedding dimensionality. Every stored
	// vector and every query must match it.
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// M is the HNSW graph connectivity parameter.
	M int `yaml:"m" json:"m"`

	// EfSearch is the HNSW search beam width.
	EfSearch int `yaml:"ef_search" json:"ef_search"`

	// CacheSize is the payload LRU cache capacity in entries.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// SearchConfig tunes the hybrid query path.
type SearchConfig struct {
	// DenseWeight is the fusion weight for the dense space (0.0-1.0).
	// The sparse space gets 1 - DenseWeight.
	DenseWeight float64 `yaml:"dense_weight" json:"dense_weight"`

	// Limit is the default number of results per search.
	Limit int `yaml:"limit" json:"limit"`

	// MaxLimit caps any requested limit.
	MaxLimit int `yaml:"max_limit" json:"max_limit"`

	// MMRLambda is the default relevance/diversity trade-off (0.0-1.0)
	// when MMR re-ranking is requested without an explicit lambda.
	MMRLambda float64 `yaml:"mmr_lambda" json:"mmr_lambda"`
}

// ProviderConfig selects and configures the search backend. It is handed to
// provider constructors as-is; nothing in the provider reads env vars.
type ProviderConfig struct {
	// Kind selects the backend. Currently only "local".
	Kind string `yaml:"kind" json:"kind"`

	// Dir is the data directory for the local backend. Empty means
	// fully in-memory.
	Dir string `yaml:"dir" json:"dir"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format" json:"format"`
}

// NewConfig returns the hardcoded defaults.
func NewConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Dimensions: 256,
			M:          16,
			EfSearch:   64,
			CacheSize:  1024,
		},
		Search: SearchConfig{
			DenseWeight: 0.5,
			Limit:       10,
			MaxLimit:    100,
			MMRLambda:   0.5,
		},
		Provider: ProviderConfig{
			Kind: "local",
			Dir:  defaultDataDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// defaultDataDir returns the default local index directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "searchlab")
	}
	return filepath.Join(home, ".searchlab")
}

// DefaultPath returns the user configuration file path, following the XDG
// base directory convention.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "searchlab", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "searchlab", "config.yaml")
	}
	return filepath.Join(home, ".config", "searchlab", "config.yaml")
}

// Load builds the effective configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. YAML file at path (or DefaultPath when path is empty; a missing
//     default file is fine, a missing explicit path is an error)
//  3. SEARCHLAB_* environment variables
//
// The result is validated before being returned.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	} else if explicit {
		return nil, errors.ConfigError(fmt.Sprintf("config file not found: %s", path), err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML parses the file at path and merges its non-zero values into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return errors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c. Zero is not a
// practical value for any numeric field here, so zero means "not set".
func (c *Config) mergeWith(other *Config) {
	if other.Index.Dimensions != 0 {
		c.Index.Dimensions = other.Index.Dimensions
	}
	if other.Index.M != 0 {
		c.Index.M = other.Index.M
	}
	if other.Index.EfSearch != 0 {
		c.Index.EfSearch = other.Index.EfSearch
	}
	if other.Index.CacheSize != 0 {
		c.Index.CacheSize = other.Index.CacheSize
	}

	if other.Search.DenseWeight != 0 {
		c.Search.DenseWeight = other.Search.DenseWeight
	}
	if other.Search.Limit != 0 {
		c.Search.Limit = other.Search.Limit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}
	if other.Search.MMRLambda != 0 {
		c.Search.MMRLambda = other.Search.MMRLambda
	}

	if other.Provider.Kind != "" {
		c.Provider.Kind = other.Provider.Kind
	}
	if other.Provider.Dir != "" {
		c.Provider.Dir = other.Provider.Dir
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}

// applyEnvOverrides applies SEARCHLAB_* environment variable overrides.
// Env vars support explicit zero values, unlike the YAML merge.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SEARCHLAB_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.Dimensions = n
		}
	}
	if v := os.Getenv("SEARCHLAB_DENSE_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.DenseWeight = w
		}
	}
	if v := os.Getenv("SEARCHLAB_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.Limit = n
		}
	}
	if v := os.Getenv("SEARCHLAB_MMR_LAMBDA"); v != "" {
		if l, err := strconv.ParseFloat(v, 64); err == nil && l >= 0 && l <= 1 {
			c.Search.MMRLambda = l
		}
	}
	if v := os.Getenv("SEARCHLAB_PROVIDER"); v != "" {
		c.Provider.Kind = v
	}
	if v := os.Getenv("SEARCHLAB_DATA_DIR"); v != "" {
		c.Provider.Dir = v
	}
	if v := os.Getenv("SEARCHLAB_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SEARCHLAB_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Index.Dimensions <= 0 {
		return errors.ConfigError(fmt.Sprintf("index.dimensions must be > 0, got %d", c.Index.Dimensions), nil)
	}
	if c.Index.M <= 0 {
		return errors.ConfigError(fmt.Sprintf("index.m must be > 0, got %d", c.Index.M), nil)
	}
	if c.Index.EfSearch <= 0 {
		return errors.ConfigError(fmt.Sprintf("index.ef_search must be > 0, got %d", c.Index.EfSearch), nil)
	}
	if c.Search.DenseWeight < 0 || c.Search.DenseWeight > 1 {
		return errors.ConfigError(fmt.Sprintf("search.dense_weight must be in [0, 1], got %g", c.Search.DenseWeight), nil)
	}
	if c.Search.MMRLambda < 0 || c.Search.MMRLambda > 1 {
		return errors.ConfigError(fmt.Sprintf("search.mmr_lambda must be in [0, 1], got %g", c.Search.MMRLambda), nil)
	}
	if c.Search.Limit <= 0 {
		return errors.ConfigError(fmt.Sprintf("search.limit must be > 0, got %d", c.Search.Limit), nil)
	}
	if c.Search.MaxLimit < c.Search.Limit {
		return errors.ConfigError(fmt.Sprintf("search.max_limit (%d) must be >= search.limit (%d)", c.Search.MaxLimit, c.Search.Limit), nil)
	}
	if c.Provider.Kind != "local" {
		return errors.ConfigError(fmt.Sprintf("provider.kind must be \"local\", got %q", c.Provider.Kind), nil)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.ConfigError(fmt.Sprintf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level), nil)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.ConfigError(fmt.Sprintf("log.format must be \"text\" or \"json\", got %q", c.Log.Format), nil)
	}
	return nil
}

// Save writes the configuration as YAML to path, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.ConfigError("failed to marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.ConfigError(fmt.Sprintf("failed to create config directory for %s", path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.ConfigError(fmt.Sprintf("failed to write config file %s", path), err)
	}
	return nil
}
