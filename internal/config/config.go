// Package config loads application settings for the acronym service.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vearutop/fetchcache/internal/acromine"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSharded  = "sharded"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendGoCache  = "gocache"
	BackendBool64   = "bool64"
	BackendNone     = "none"
)

// DefaultBaseURL is the Acromine dictionary endpoint.
const DefaultBaseURL = acromine.DefaultBaseURL

// Duration is a time.Duration that reads from "1m30s" strings in JSON and YAML.
type Duration time.Duration

// UnmarshalJSON decodes duration string or number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	return d.set(v)
}

// MarshalJSON encodes duration as string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML decodes duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var v interface{}
	if err := value.Decode(&v); err != nil {
		return err
	}

	return d.set(v)
}

func (d *Duration) set(v interface{}) error {
	switch val := v.(type) {
	case string:
		dur, err := time.ParseDuration(val)
		if err != nil {
			return err
		}

		*d = Duration(dur)
	case float64:
		*d = Duration(val)
	case int:
		*d = Duration(val)
	default:
		return fmt.Errorf("invalid duration %v", v)
	}

	return nil
}

// Cache configures storage of fetched values.
type Cache struct {
	Backend    string   `json:"backend" yaml:"backend"`
	DSN        string   `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	TimeToLive Duration `json:"ttl" yaml:"ttl"`
	MaxBytes   int64    `json:"max_bytes,omitempty" yaml:"max_bytes,omitempty"`

	// CleanupInterval is a period of expired entries removal, 0 disables it.
	CleanupInterval Duration `json:"cleanup_interval,omitempty" yaml:"cleanup_interval,omitempty"`
}

// Acromine configures remote dictionary client.
type Acromine struct {
	BaseURL string   `json:"base_url" yaml:"base_url"`
	Timeout Duration `json:"timeout" yaml:"timeout"`
}

// Log configures logging.
type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Server configures HTTP API.
type Server struct {
	Addr string `json:"addr" yaml:"addr"`

	// InvalidateInterval is minimal time between cache invalidations.
	InvalidateInterval Duration `json:"invalidate_interval,omitempty" yaml:"invalidate_interval,omitempty"`
}

// Config is the application configuration.
type Config struct {
	Cache    Cache    `json:"cache" yaml:"cache"`
	Acromine Acromine `json:"acromine" yaml:"acromine"`
	Log      Log      `json:"log" yaml:"log"`
	Server   Server   `json:"server" yaml:"server"`

	// PerKey allows concurrent lookups of distinct acronyms.
	PerKey bool `json:"per_key" yaml:"per_key"`
}

// Default returns configuration with defaults applied.
func Default() Config {
	var cfg Config

	cfg.ApplyDefaults()

	return cfg
}

// ApplyDefaults fills empty fields.
func (c *Config) ApplyDefaults() {
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendMemory
	}

	if c.Cache.TimeToLive == 0 {
		c.Cache.TimeToLive = Duration(10 * time.Second)
	}

	if c.Acromine.BaseURL == "" {
		c.Acromine.BaseURL = DefaultBaseURL
	}

	if c.Acromine.Timeout == 0 {
		c.Acromine.Timeout = Duration(10 * time.Second)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Load reads and parses a config file from the given path and applies defaults.
// Supported formats: JSON (.json), YAML (.yaml, .yml).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// Validate checks configuration for correctness.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case BackendMemory, BackendSharded, BackendSQLite, BackendGoCache, BackendBool64, BackendNone:
	case BackendPostgres:
		if c.Cache.DSN == "" {
			return errors.New("postgres backend requires dsn")
		}
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}

	if c.Cache.TimeToLive < 0 {
		return errors.New("cache ttl must not be negative")
	}

	if c.Cache.MaxBytes < 0 {
		return errors.New("cache max_bytes must not be negative")
	}

	if c.Cache.CleanupInterval < 0 {
		return errors.New("cache cleanup_interval must not be negative")
	}

	if c.Acromine.BaseURL == "" {
		return errors.New("acromine base_url is required")
	}

	if !strings.HasPrefix(c.Acromine.BaseURL, "http://") && !strings.HasPrefix(c.Acromine.BaseURL, "https://") {
		return fmt.Errorf("acromine base_url must be http(s) URL: %q", c.Acromine.BaseURL)
	}

	switch c.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown log format: %q", c.Log.Format)
	}

	return nil
}
