package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/spotdash/internal/server"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/desertthunder/spotdash/internal/ui"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the browser login.
//
// Starts the local listener on the app URI, sends the browser to the companion's /login, and commits the
// tokens the companion redirects back with.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.companion.Health(ctx); err != nil {
		return fmt.Errorf("%w (start it with `spotdash companion serve` or set auth.companion_url)", err)
	}

	handler := server.NewFragmentHandler()
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(handler)

	srv, err := server.Listen(r.config.Server.Addr(), router)
	if err != nil {
		return err
	}
	go func() {
		if err := srv.Serve(); err != nil {
			handler.Send(server.FragmentResult{Err: err})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("listener shutdown failed", "error", err)
		}
	}()

	loginURL := r.companion.LoginURL()
	r.logger.Debug("waiting for login redirect", "listener", srv.URL(), "login", loginURL)

	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser to log in:\n  %s\n", loginURL)
	} else if err := r.openBrowser(loginURL); err != nil {
		r.logger.Warn("could not open browser", "error", err)
		r.writePlain("Open this URL in your browser to log in:\n  %s\n", loginURL)
	} else {
		r.writePlain("Opened %s in your browser\n", loginURL)
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = r.config.Auth.LoginTimeout.Duration
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result, ok := <-handler.Result():
		if !ok {
			return fmt.Errorf("%w: listener closed", shared.ErrAuthFailed)
		}
		if result.Err != nil {
			return result.Err
		}
		if err := r.session.Commit(ctx, result.Grant); err != nil {
			return err
		}
	case <-timer.C:
		return fmt.Errorf("%w: no login redirect within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	r.logger.Info("logged in", "expires_at", r.session.Session().ExpiresAt)
	return r.writePlain("%s\n", ui.Styles.OK("Logged in"))
}

// AuthImport commits tokens from a pasted redirect URL.
func (r *Runner) AuthImport(ctx context.Context, cmd *cli.Command) error {
	rawURL := strings.TrimSpace(cmd.StringArg("url"))
	if rawURL == "" {
		return fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}
	if !strings.Contains(rawURL, "access_token=") {
		return fmt.Errorf("%w: url has no access_token in its fragment", shared.ErrInvalidInput)
	}

	clean, err := r.session.Load(ctx, rawURL)
	if err != nil {
		return err
	}
	if clean == rawURL {
		// nothing was captured, Load only restored what was already stored
		return fmt.Errorf("%w: url has no access_token in its fragment", shared.ErrInvalidInput)
	}

	r.logger.Debug("imported tokens", "url", clean)
	return r.writePlain("%s\n", ui.Styles.OK("Tokens imported"))
}

// authStatus is the JSON shape of `auth status`.
type authStatus struct {
	State           string    `json:"state"`
	ExpiresAt       time.Time `json:"expires_at,omitzero"`
	HasRefreshToken bool      `json:"has_refresh_token"`
	RefreshTimer    bool      `json:"refresh_timer"`
	Storage         string    `json:"storage"`
	RefreshMode     string    `json:"refresh_mode"`
}

// AuthStatus shows whether a session is held and when it expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	s := r.session.Session()
	status := authStatus{
		State:           r.session.State().String(),
		ExpiresAt:       s.ExpiresAt,
		HasRefreshToken: s.RefreshToken != "",
		RefreshTimer:    r.session.Running(),
		Storage:         r.config.Storage.Driver,
		RefreshMode:     r.config.Auth.RefreshMode,
	}

	return r.writeOutput(cmd, status, func() error {
		r.writePlainHeader("Session")
		expires := "unknown"
		if !s.ExpiresAt.IsZero() {
			expires = s.ExpiresAt.Local().Format(time.RFC1123)
		}
		pairs := [][2]string{
			{"State", status.State},
			{"Expires", expires},
			{"Refresh token", yesNo(status.HasRefreshToken)},
			{"Storage", status.Storage},
			{"Refresh mode", status.RefreshMode},
		}
		return r.writePlain("%s\n", ui.KeyValues(pairs))
	})
}

// AuthRefresh forces a token refresh. A failed refresh logs out.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if !r.session.Authenticated() {
		return shared.ErrNotAuthenticated
	}
	if err := r.session.Refresh(ctx); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.OK("Access token refreshed"))
}

// AuthLogout clears the session and the stored tokens.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.session.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.OK("Logged out"))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
