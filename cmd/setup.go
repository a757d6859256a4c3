package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/desertthunder/spotdash/internal/storage"
	"github.com/desertthunder/spotdash/internal/ui"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the template when missing and initializes the configured token storage.
//
// For sqlite this creates the database and runs migrations; for redis it checks the connection.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
		r.logger.Info("using existing config", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		config = shared.DefaultConfig()
		r.writePlain("%s\n", ui.Styles.OK("Created "+configPath))
	}
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return err
	}

	r.logger.Info("initializing storage", "driver", config.Storage.Driver)
	store, err := storage.Open(ctx, config, r.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("Token storage ready (%s)", config.Storage.Driver)))
	if !config.Credentials.Spotify.HasClientCredentials() || config.Credentials.Spotify.ClientID == "your_spotify_client_id" {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set credentials.spotify.client_id and client_secret in %s (or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)\n", configPath)
		r.writePlain("2. Add %s as a redirect URI in the Spotify developer dashboard\n", config.Credentials.Spotify.RedirectURI)
		r.writePlain("3. Run 'spotdash companion serve' and then 'spotdash auth login'\n")
	}
	return nil
}
