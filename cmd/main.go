package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/session"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/desertthunder/spotdash/internal/storage"
	"github.com/joho/godotenv"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := os.Getenv("SPOTDASH_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}
	config, err := loadConfig(configPath)
	if err != nil {
		logger.Fatal("invalid configuration", "path", configPath, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, config, logger)
	if err != nil {
		logger.Fatal("failed to open token storage", "error", err)
	}

	httpClient := &http.Client{Timeout: config.API.Timeout.Duration}
	companion := services.NewAPIService(config.Auth.CompanionURL, httpClient)

	refresher, err := newRefresher(config, companion)
	if err != nil {
		logger.Fatal("failed to configure token refresh", "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Storage:    store,
		Refresher:  refresher,
		Companion:  companion,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	code := runner.Report(runner.App().Run(ctx, os.Args))
	if err := store.Close(); err != nil {
		logger.Warn("failed to close token storage", "error", err)
	}
	stop()
	os.Exit(code)
}

// loadConfig reads path when it exists, otherwise uses the embedded defaults, then applies the environment.
func loadConfig(path string) (*shared.Config, error) {
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// newRefresher picks how refresh tokens are exchanged: through the companion service, or directly
// against the token endpoint with the client secret.
func newRefresher(config *shared.Config, companion *services.APIService) (session.Refresher, error) {
	switch config.Auth.RefreshMode {
	case shared.RefreshDirect:
		oauthConfig, err := services.NewOAuthConfig(config.Credentials.Spotify)
		if err != nil {
			return nil, fmt.Errorf("refresh_mode %q: %w", shared.RefreshDirect, err)
		}
		return services.NewOAuthRefresher(oauthConfig), nil
	default:
		return companion, nil
	}
}
