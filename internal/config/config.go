// Package config loads iconforge settings. Later sources override earlier
// ones: built-in defaults, the TOML config file, a .env file, the
// process environment and finally command-line flags (applied by the
// caller).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/manash/iconforge/internal/cost"
	"github.com/manash/iconforge/internal/keys"
	"github.com/manash/iconforge/internal/provider"
	"github.com/manash/iconforge/internal/store"
	"github.com/manash/iconforge/pkg/models"
)

const FileName = "config.toml"

type Config struct {
	Addr            string `toml:"addr"`
	DataDir         string `toml:"data_dir"`
	GalleryDir      string `toml:"gallery_dir"`
	LogLevel        string `toml:"log_level"`
	DefaultProvider string `toml:"default_provider"`

	Storage   StorageConfig             `toml:"storage"`
	Dispatch  DispatchConfig            `toml:"dispatch"`
	Batch     BatchConfig               `toml:"batch"`
	Gallery   GalleryConfig             `toml:"gallery"`
	Providers map[string]ProviderConfig `toml:"providers"`
	Pricing   []PriceOverride           `toml:"pricing"`
}

type StorageConfig struct {
	// QuotaBytes caps total stored bytes. Zero or less is unlimited.
	QuotaBytes int64 `toml:"quota_bytes"`
}

type DispatchConfig struct {
	ThrottleMs int `toml:"throttle_ms"`
	TimeoutSec int `toml:"timeout_sec"`
}

type BatchConfig struct {
	DelayMs int `toml:"delay_ms"`
}

type GalleryConfig struct {
	CacheTTLSec int `toml:"cache_ttl_sec"`
}

type ProviderConfig struct {
	BaseURL string `toml:"base_url"`
}

// PriceOverride replaces the static price of a model. An empty Quality
// applies to every quality of the model.
type PriceOverride struct {
	Model   string  `toml:"model"`
	Quality string  `toml:"quality"`
	Price   float64 `toml:"price"`
}

func Default() *Config {
	dataDir, err := keys.ConfigDir()
	if err != nil {
		dataDir = ".iconforge"
	}
	return &Config{
		Addr:            "127.0.0.1:3000",
		DataDir:         dataDir,
		GalleryDir:      filepath.Join("public", "img"),
		LogLevel:        "info",
		DefaultProvider: string(models.ProviderGoogle),
		Storage:         StorageConfig{QuotaBytes: store.DefaultQuota},
		Dispatch:        DispatchConfig{TimeoutSec: 120},
		Batch:           BatchConfig{DelayMs: 1000},
		Gallery:         GalleryConfig{CacheTTLSec: 30},
		Providers:       map[string]ProviderConfig{},
	}
}

// DefaultPath is config.toml in the user config directory.
func DefaultPath() string {
	dir, err := keys.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, FileName)
}

// Load builds the configuration from defaults, the file at path and the
// environment. An empty path means DefaultPath, which may be absent; an
// explicit path must exist.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown config key", "file", path, "key", key.String())
	}
	return nil
}

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is ignored
// unless required.
func LoadDotEnv(path string, required bool) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	slog.Debug("loaded environment file", "path", path)
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("ICONFORGE_ADDR"); v != "" {
		c.Addr = v
	}
	if v := getenv("ICONFORGE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("ICONFORGE_GALLERY_DIR"); v != "" {
		c.GalleryDir = v
	}
	if v := getenv("ICONFORGE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("ICONFORGE_DEFAULT_PROVIDER"); v != "" {
		c.DefaultProvider = v
	}
	if v := getenv("ICONFORGE_STORAGE_QUOTA"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ICONFORGE_STORAGE_QUOTA %q: %w", v, err)
		}
		c.Storage.QuotaBytes = n
	}
	return nil
}

func (c *Config) Validate() error {
	if !models.ProviderType(c.DefaultProvider).IsValid() {
		return fmt.Errorf("default_provider: %w: %q", models.ErrInvalidProvider, c.DefaultProvider)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Dispatch.ThrottleMs < 0 || c.Dispatch.TimeoutSec < 0 || c.Batch.DelayMs < 0 {
		return errors.New("durations must not be negative")
	}
	for name := range c.Providers {
		if !models.ProviderType(name).IsValid() {
			return fmt.Errorf("providers.%s: %w", name, models.ErrInvalidProvider)
		}
	}
	for i, p := range c.Pricing {
		if p.Model == "" || p.Price < 0 {
			return fmt.Errorf("pricing[%d]: model is required and price must not be negative", i)
		}
	}
	return nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", s)
	}
}

func (c *Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

func (c *Config) DBPath() string {
	return store.DefaultDBPath(c.DataDir)
}

func (c *Config) Throttle() time.Duration {
	return time.Duration(c.Dispatch.ThrottleMs) * time.Millisecond
}

func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.Batch.DelayMs) * time.Millisecond
}

func (c *Config) GalleryTTL() time.Duration {
	return time.Duration(c.Gallery.CacheTTLSec) * time.Second
}

func (c *Config) PricingOverrides() map[cost.PricingKey]float64 {
	if len(c.Pricing) == 0 {
		return nil
	}
	out := make(map[cost.PricingKey]float64, len(c.Pricing))
	for _, p := range c.Pricing {
		out[cost.PricingKey{Model: p.Model, Quality: p.Quality}] = p.Price
	}
	return out
}

func (c *Config) BaseURL(p models.ProviderType) string {
	return c.Providers[string(p)].BaseURL
}

// ProviderConfigs pairs resolved credentials with the per-provider
// settings. Providers without a key are left out.
func (c *Config) ProviderConfigs(apiKeys map[models.ProviderType]string) map[models.ProviderType]*provider.Config {
	out := make(map[models.ProviderType]*provider.Config, len(apiKeys))
	for p, key := range apiKeys {
		if key == "" {
			continue
		}
		out[p] = &provider.Config{
			APIKey:     key,
			BaseURL:    c.BaseURL(p),
			TimeoutSec: c.Dispatch.TimeoutSec,
		}
	}
	return out
}
