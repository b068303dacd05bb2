package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted in StoreConfig.Driver.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

// BackendConfig points the notifier at an AirBrB backend.
type BackendConfig struct {
	// BaseURL is the root URL of the backend (e.g., http://localhost:5005).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// MaxRetries bounds retries on HTTP 429 responses.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// PollConfig controls the polling scheduler and the notification feed.
type PollConfig struct {
	// IntervalSec is how often (in seconds) to fetch a bookings snapshot.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`

	// FetchTimeoutSec bounds a single backend round trip.
	FetchTimeoutSec int `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec"`

	// Retention is the maximum number of notifications kept in the feed.
	Retention int `mapstructure:"retention" yaml:"retention"`

	// DetailConcurrency bounds parallel listing detail fetches while
	// resolving owned listings.
	DetailConcurrency int `mapstructure:"detail_concurrency" yaml:"detail_concurrency"`
}

// Interval returns the poll interval as a duration.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSec) * time.Second
}

// FetchTimeout returns the per-fetch timeout as a duration.
func (p PollConfig) FetchTimeout() time.Duration {
	return time.Duration(p.FetchTimeoutSec) * time.Second
}

// StoreConfig selects where "last seen" watermarks are persisted.
type StoreConfig struct {
	Driver   string `mapstructure:"driver" yaml:"driver"`
	Path     string `mapstructure:"path" yaml:"path"`
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// configDir returns ~/.config/airbrb-notify, falling back to the working
// directory when the home directory is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "airbrb-notify")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/airbrb-notify/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Backend: BackendConfig{
			BaseURL:    "http://localhost:5005",
			MaxRetries: 3,
		},
		Poll: PollConfig{
			IntervalSec:       5,
			FetchTimeoutSec:   10,
			Retention:         50,
			DetailConcurrency: 8,
		},
		Store: StoreConfig{
			Driver: StoreDriverSQLite,
			Path:   filepath.Join(configDir(), "notifier.db"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(configDir(), "notifier.log"),
		},
	}
}

// setDefaults mirrors defaultAppConfig into v so that missing keys and
// AIRBRB_* environment overrides both resolve.
func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.max_retries", d.Backend.MaxRetries)
	v.SetDefault("poll.interval_sec", d.Poll.IntervalSec)
	v.SetDefault("poll.fetch_timeout_sec", d.Poll.FetchTimeoutSec)
	v.SetDefault("poll.retention", d.Poll.Retention)
	v.SetDefault("poll.detail_concurrency", d.Poll.DetailConcurrency)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.redis_url", d.Store.RedisURL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with AIRBRB_ (e.g., AIRBRB_BACKEND_BASE_URL)
// override file values. A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("AIRBRB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *AppConfig) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url is required")
	}
	if c.Poll.IntervalSec <= 0 {
		return fmt.Errorf("poll.interval_sec must be positive, got %d", c.Poll.IntervalSec)
	}
	if c.Poll.FetchTimeoutSec <= 0 {
		return fmt.Errorf("poll.fetch_timeout_sec must be positive, got %d", c.Poll.FetchTimeoutSec)
	}
	if c.Poll.Retention <= 0 {
		return fmt.Errorf("poll.retention must be positive, got %d", c.Poll.Retention)
	}
	if c.Poll.DetailConcurrency <= 0 {
		c.Poll.DetailConcurrency = 1
	}

	switch c.Store.Driver {
	case StoreDriverSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite driver")
		}
	case StoreDriverRedis:
		if c.Store.RedisURL == "" {
			return errors.New("store.redis_url is required for the redis driver")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("backend", cfg.Backend)
	v.Set("poll", cfg.Poll)
	v.Set("store", cfg.Store)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
