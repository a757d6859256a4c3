package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./spotdash.db" {
			t.Errorf("expected database path ./spotdash.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if config.Auth.RefreshInterval.Duration != 45*time.Minute {
			t.Errorf("expected 45m refresh interval, got %s", config.Auth.RefreshInterval)
		}
		if config.Auth.TokenLifetime.Duration != time.Hour {
			t.Errorf("expected 60m token lifetime, got %s", config.Auth.TokenLifetime)
		}
		if config.Storage.Driver != StorageSQLite {
			t.Errorf("expected sqlite storage, got %s", config.Storage.Driver)
		}
		if !config.Recommend.RollbackOnFailure {
			t.Error("expected rollback_on_failure to default to true")
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig keeps defaults for missing keys", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[storage]
driver = "redis"

[auth]
refresh_interval = "10m"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Storage.Driver != StorageRedis {
			t.Errorf("expected redis driver, got %s", config.Storage.Driver)
		}
		if config.Auth.RefreshInterval.Duration != 10*time.Minute {
			t.Errorf("expected 10m, got %s", config.Auth.RefreshInterval)
		}
		if config.Auth.TokenLifetime.Duration != time.Hour {
			t.Errorf("expected default token lifetime, got %s", config.Auth.TokenLifetime)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected default server port, got %d", config.Server.Port)
		}
		if !config.Credentials.Spotify.HasClientCredentials() {
			t.Error("expected client credentials")
		}
	})

	t.Run("LoadConfig rejects bad durations", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[auth]\nrefresh_interval = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
		t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
		t.Setenv("SPOTDASH_COMPANION_URL", "http://auth.example")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Credentials.Spotify.ClientID != "env-id" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.ClientSecret != "env-secret" {
			t.Errorf("expected env client secret, got %s", config.Credentials.Spotify.ClientSecret)
		}
		if config.Auth.CompanionURL != "http://auth.example" {
			t.Errorf("expected env companion url, got %s", config.Auth.CompanionURL)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "postgres" }},
			{name: "unknown refresh mode", mutate: func(c *Config) { c.Auth.RefreshMode = "magic" }},
			{name: "zero interval", mutate: func(c *Config) { c.Auth.RefreshInterval.Duration = 0 }},
			{name: "interval not shorter than lifetime", mutate: func(c *Config) { c.Auth.RefreshInterval.Duration = time.Hour }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
