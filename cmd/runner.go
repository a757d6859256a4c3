package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdash/internal/dashboard"
	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/session"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/desertthunder/spotdash/internal/storage"
	"github.com/desertthunder/spotdash/internal/tasks"
	"github.com/desertthunder/spotdash/internal/ui"
	"github.com/urfave/cli/v3"
)

const version = "0.3.0"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	store       storage.Storage
	session     *session.Controller
	spotify     services.SpotifyAPI
	companion   *services.APIService
	dashboard   *dashboard.Dashboard
	engine      tasks.Pipeline
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Storage    storage.Storage
	Refresher  session.Refresher
	Companion  *services.APIService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer

	// Spotify replaces the Web API client built from Config.API.
	Spotify services.SpotifyAPI
	// OpenBrowser defaults to [shared.OpenBrowser].
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Storage == nil {
		opts.Storage = storage.NewMemory()
	}
	if opts.Companion == nil {
		opts.Companion = services.NewAPIService(opts.Config.Auth.CompanionURL, opts.HTTPClient)
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	controller := session.NewController(session.Options{
		Storage:         opts.Storage,
		Refresher:       opts.Refresher,
		Logger:          opts.Logger,
		RefreshInterval: opts.Config.Auth.RefreshInterval.Duration,
		TokenLifetime:   opts.Config.Auth.TokenLifetime.Duration,
	})

	spotify := opts.Spotify
	if spotify == nil {
		spotify = services.NewSpotifyClient(services.ClientOptions{
			BaseURL:     opts.Config.API.BaseURL,
			Credentials: controller,
			Logger:      opts.Logger,
			RateLimit:   opts.Config.API.RateLimit,
			Burst:       opts.Config.API.Burst,
			MaxRetries:  opts.Config.API.MaxRetries,
			Timeout:     opts.Config.API.Timeout.Duration,
		})
	}

	engine := tasks.NewEngine(tasks.Options{
		API:               spotify,
		Logger:            opts.Logger,
		RollbackOnFailure: opts.Config.Recommend.RollbackOnFailure,
	})

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		store:       opts.Storage,
		session:     controller,
		spotify:     spotify,
		companion:   opts.Companion,
		dashboard:   dashboard.New(spotify, controller, opts.Logger),
		engine:      engine,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
	}
}

// App is the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:      "spotdash",
		Usage:     "Browse your Spotify listening, get recommendations and split playlists by sound",
		Version:   version,
		Writer:    r.output,
		ErrWriter: r.output,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, meCommand, playlistCommand, trackCommand, artistCommand, searchCommand,
		recommendCommand, companionCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before restores the persisted session and keeps it fresh while the command runs.
//
// A stored session whose refresh fails is logged out; the command then sees the logged-out state.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	found, err := r.session.Restore(ctx)
	if err != nil {
		return ctx, err
	}
	if !found {
		return ctx, nil
	}

	if err := r.session.EnsureFresh(ctx); err != nil {
		r.logger.Warn("stored session could not be refreshed", "error", err)
		return ctx, nil
	}
	r.session.Start(ctx)
	return ctx, nil
}

// After stops the refresh timer.
func (r *Runner) After(context.Context, *cli.Command) error {
	r.session.Stop()
	return nil
}

// Report prints err for the user and returns the process exit code.
//
// Logged out is a login prompt. Precondition failures are informational and exit 0.
func (r *Runner) Report(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, shared.ErrNotAuthenticated):
		r.writePlain("%s\n%s\n", ui.Styles.Warn("You are not logged in."), ui.Styles.Help("Run `spotdash auth login` to connect your Spotify account."))
		return 1
	case errors.Is(err, shared.ErrNotEnoughTracks), errors.Is(err, shared.ErrNoSeeds):
		r.writePlain("%s\n", ui.Styles.Warn(err.Error()))
		return 0
	default:
		r.writePlain("%s\n", ui.Styles.Err(err.Error()))
		return 1
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("%s\n\n", ui.Styles.Title(title))
}

// writeOutput writes data as JSON when --json is set, otherwise calls plain.
func (r *Runner) writeOutput(cmd *cli.Command, data any, plain func() error) error {
	if cmd.Bool("json") {
		return r.writeJSON(data, cmd.Bool("pretty"))
	}
	return plain()
}

// startProgress prints pipeline updates until the returned channel is closed and the wait func is called.
func (r *Runner) startProgress(quiet bool) (chan tasks.ProgressUpdate, func()) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progressCh {
			if quiet {
				continue
			}
			switch update.Phase {
			case tasks.AddTracks, tasks.CreatePlaylist:
				r.writePlain("📝 %s\n", update.Message)
			case tasks.Rollback:
				r.writePlain("↩  %s\n", update.Message)
			default:
				r.writePlain("   %s\n", ui.Styles.Help(update.Message))
			}
		}
	}()

	return progressCh, func() {
		close(progressCh)
		wg.Wait()
	}
}
