package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Lookup policy constants.
const (
	PolicyFallback = "fallback" // stop at the first accepted provider result
	PolicyFanOut   = "fanout"   // query every enabled provider and merge
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Lookup     LookupConfig     `yaml:"lookup"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EncryptionConfig holds encryption key settings.
type EncryptionConfig struct {
	Key string `yaml:"key"`
}

// LookupConfig holds metadata lookup engine settings.
type LookupConfig struct {
	// Policy selects the provider fan-out strategy: "fallback" stops at the
	// first provider whose result passes the accept filter, "fanout" queries
	// every enabled provider and merges all accepted results.
	Policy      string `yaml:"policy"`
	ResultCount int    `yaml:"result_count"`
	CacheTTL    int    `yaml:"cache_ttl_seconds"`
}

// ProvidersConfig holds the global provider order and per-provider settings.
type ProvidersConfig struct {
	// Priority is the provider order used for fallback iteration and merge
	// tie-breaking. Providers missing from the list are appended in the
	// default order.
	Priority    []string       `yaml:"priority"`
	MusicBrainz ProviderConfig `yaml:"musicbrainz"`
	Discogs     ProviderConfig `yaml:"discogs"`
	LastFM      ProviderConfig `yaml:"lastfm"`
	ITunes      ProviderConfig `yaml:"itunes"`
	Spotify     ProviderConfig `yaml:"spotify"`
	Wikipedia   ProviderConfig `yaml:"wikipedia"`
}

// ProviderConfig holds settings for one metadata provider.
type ProviderConfig struct {
	Enabled *bool  `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	// APISecret is only used by providers with two-part credentials (Spotify).
	APISecret string `yaml:"api_secret"`
	// TimeoutSeconds bounds the whole outbound call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// ReadWriteTimeoutSeconds bounds the wait for response headers.
	ReadWriteTimeoutSeconds int `yaml:"read_write_timeout_seconds"`
}

// IsEnabled reports the administrative enable flag, defaulting to true.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Timeout returns the configured call timeout with a 10s default.
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// ReadWriteTimeout returns the response-header timeout with a 10s default.
func (p ProviderConfig) ReadWriteTimeout() time.Duration {
	if p.ReadWriteTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.ReadWriteTimeoutSeconds) * time.Second
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8095,
			BasePath: "/",
		},
		Database: DatabaseConfig{
			Path: "/data/tonearm.db",
		},
		Lookup: LookupConfig{
			Policy:      PolicyFallback,
			ResultCount: 10,
			CacheTTL:    300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("TA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("TA_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("TA_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("TA_ENCRYPTION_KEY"); v != "" {
		c.Encryption.Key = v
	}
	if v := os.Getenv("TA_LOOKUP_POLICY"); v != "" {
		c.Lookup.Policy = v
	}
	if v := os.Getenv("TA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TA_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Lookup.Policy != PolicyFallback && c.Lookup.Policy != PolicyFanOut {
		return fmt.Errorf("lookup policy must be %q or %q", PolicyFallback, PolicyFanOut)
	}
	if c.Lookup.ResultCount < 1 {
		c.Lookup.ResultCount = 10
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}

// Provider returns the ProviderConfig for a provider name. Unknown names
// return a zero value, which reads as enabled with default timeouts.
func (c *Config) Provider(name string) ProviderConfig {
	switch name {
	case "musicbrainz":
		return c.Providers.MusicBrainz
	case "discogs":
		return c.Providers.Discogs
	case "lastfm":
		return c.Providers.LastFM
	case "itunes":
		return c.Providers.ITunes
	case "spotify":
		return c.Providers.Spotify
	case "wikipedia":
		return c.Providers.Wikipedia
	default:
		return ProviderConfig{}
	}
}
