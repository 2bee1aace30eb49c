// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "MODSTORE_"

// Shop backends.
const (
	BackendFake   = "fake"
	BackendRemote = "remote"
)

// Config represents the complete configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" envPrefix:"STORE_"`
	Shop    ShopConfig    `yaml:"shop" envPrefix:"SHOP_"`
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Debug   DebugConfig   `yaml:"debug" envPrefix:"DEBUG_"`
}

// StoreConfig configures the module store.
type StoreConfig struct {
	HotReload       bool `yaml:"hot_reload" env:"HOT_RELOAD"`
	GetterCacheSize int  `yaml:"getter_cache_size" env:"GETTER_CACHE_SIZE"` // < 0 disables memoisation
}

// ShopConfig configures the shop backend used by the demo.
type ShopConfig struct {
	Backend     string            `yaml:"backend" env:"BACKEND"` // "fake" or "remote"
	URL         string            `yaml:"url,omitempty" env:"URL"`
	Timeout     time.Duration     `yaml:"timeout,omitempty" env:"TIMEOUT"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Latency     time.Duration     `yaml:"latency" env:"LATENCY"`
	FailureRate float64           `yaml:"failure_rate" env:"FAILURE_RATE"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"FORMAT"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

// DebugConfig configures the debug HTTP server.
type DebugConfig struct {
	Addr string `yaml:"addr" env:"ADDR"` // empty disables the server
}

// Load reads configuration from a YAML file. ${VAR} references are expanded,
// a .env file in the working directory is loaded first, and MODSTORE_*
// variables override file values.
func Load(path string) (*Config, error) {
	loadDotEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv builds configuration from defaults and environment variables.
func LoadFromEnv() (*Config, error) {
	loadDotEnv()
	return finish(&Config{})
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv() {
	// Missing .env is fine.
	_ = godotenv.Load()
}

func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Store.GetterCacheSize == 0 {
		cfg.Store.GetterCacheSize = 256
	}

	if cfg.Shop.Backend == "" {
		cfg.Shop.Backend = BackendFake
	}
	if cfg.Shop.Timeout == 0 {
		cfg.Shop.Timeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	validBackends := map[string]bool{BackendFake: true, BackendRemote: true}
	if !validBackends[cfg.Shop.Backend] {
		return fmt.Errorf("shop.backend must be 'fake' or 'remote', got %q", cfg.Shop.Backend)
	}
	if cfg.Shop.Backend == BackendRemote && cfg.Shop.URL == "" {
		return fmt.Errorf("shop.url is required when shop.backend is 'remote'")
	}
	if cfg.Shop.FailureRate < 0 || cfg.Shop.FailureRate > 1 {
		return fmt.Errorf("shop.failure_rate must be between 0 and 1, got %v", cfg.Shop.FailureRate)
	}
	if cfg.Shop.Latency < 0 {
		return fmt.Errorf("shop.latency must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Path[0] != '/' {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}
