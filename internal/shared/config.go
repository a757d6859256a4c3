package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Storage drivers
const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Refresh modes
const (
	RefreshCompanion = "companion"
	RefreshDirect    = "direct"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Auth        AuthConfig        `toml:"auth"`
	Storage     StorageConfig     `toml:"storage"`
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	Server      ServerConfig      `toml:"server"`
	Companion   ServerConfig      `toml:"companion"`
	API         APIConfig         `toml:"api"`
	Recommend   RecommendConfig   `toml:"recommend"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// AuthConfig controls the token lifecycle.
//
// RefreshInterval must be shorter than TokenLifetime so the access token is renewed before it lapses.
type AuthConfig struct {
	CompanionURL    string   `toml:"companion_url"`
	AppURI          string   `toml:"app_uri"`
	RefreshMode     string   `toml:"refresh_mode"`
	RefreshInterval Duration `toml:"refresh_interval"`
	TokenLifetime   Duration `toml:"token_lifetime"`
	LoginTimeout    Duration `toml:"login_timeout"`
}

// StorageConfig selects the durable token storage backend.
type StorageConfig struct {
	Driver string `toml:"driver"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIConfig contains Spotify Web API client settings.
type APIConfig struct {
	BaseURL    string   `toml:"base_url"`
	RateLimit  float64  `toml:"rate_limit"`
	Burst      int      `toml:"burst"`
	MaxRetries int      `toml:"max_retries"`
	Timeout    Duration `toml:"timeout"`
}

// RecommendConfig contains recommendation and splitter settings.
type RecommendConfig struct {
	RollbackOnFailure bool   `toml:"rollback_on_failure"`
	SplitPrefix       string `toml:"split_prefix"`
}

// Duration wraps [time.Duration] so it can be written as "45m" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides credentials and endpoints from the environment.
//
// Recognized: SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET, SPOTIFY_REDIRECT_URI,
// SPOTDASH_COMPANION_URL, SPOTDASH_REDIS_ADDR.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	set(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	set(&c.Credentials.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	set(&c.Auth.CompanionURL, "SPOTDASH_COMPANION_URL")
	set(&c.Redis.Addr, "SPOTDASH_REDIS_ADDR")
}

// Validate checks the settings that other packages rely on.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageSQLite, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	switch c.Auth.RefreshMode {
	case RefreshCompanion, RefreshDirect:
	default:
		return fmt.Errorf("%w: unknown refresh mode %q", ErrInvalidConfig, c.Auth.RefreshMode)
	}

	if c.Auth.RefreshInterval.Duration <= 0 {
		return fmt.Errorf("%w: auth.refresh_interval must be positive", ErrInvalidConfig)
	}
	if c.Auth.RefreshInterval.Duration >= c.Auth.TokenLifetime.Duration {
		return fmt.Errorf("%w: auth.refresh_interval (%s) must be shorter than auth.token_lifetime (%s)",
			ErrInvalidConfig, c.Auth.RefreshInterval, c.Auth.TokenLifetime)
	}

	return nil
}

// HasClientCredentials reports whether both the Spotify client id and secret are set.
func (s SpotifyConfig) HasClientCredentials() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}
