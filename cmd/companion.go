package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/desertthunder/spotdash/internal/authsvc"
	"github.com/desertthunder/spotdash/internal/server"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/desertthunder/spotdash/internal/ui"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
)

// CompanionServe runs the companion login service until interrupted.
func (r *Runner) CompanionServe(ctx context.Context, cmd *cli.Command) error {
	exchanger, err := authsvc.NewSpotifyExchanger(r.config.Credentials.Spotify)
	if err != nil {
		return err
	}

	svc, err := authsvc.New(authsvc.Options{
		Exchanger: exchanger,
		AppURI:    r.config.Auth.AppURI,
		Logger:    r.logger,
	})
	if err != nil {
		return err
	}

	if !cmd.Bool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Companion.Addr()
	}

	srv, err := server.Listen(addr, svc.Router())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	r.logger.Info("companion service listening", "url", srv.URL(), "redirect_uri", r.config.Credentials.Spotify.RedirectURI, "app_uri", r.config.Auth.AppURI)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	r.logger.Info("shutting down companion service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cmd.Duration("shutdown-timeout"))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// CompanionHealth checks the companion's /health endpoint.
func (r *Runner) CompanionHealth(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	if err := r.companion.Health(ctx); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("%s is healthy (%s)", r.companion.BaseURL(), time.Since(start).Round(time.Millisecond))))
}

// CompanionGet makes a direct GET request to the companion service
func (r *Runner) CompanionGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	r.logger.Debug("GET request", "path", path)

	resp, err := r.companion.Get(ctx, path)
	if err != nil {
		return err
	}

	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, !cmd.Bool("json"))
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}
