package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/desertthunder/spotdash/internal/storage"
	"golang.org/x/oauth2"
)

const (
	DefaultRefreshInterval = 45 * time.Minute
	DefaultTokenLifetime   = 60 * time.Minute
	// expirySkew is how close to expiry EnsureFresh starts refreshing.
	expirySkew = time.Minute
)

// Refresher exchanges a refresh token for a new access token.
//
// A returned token with an empty RefreshToken keeps the current one.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// RefresherFunc adapts a function to [Refresher].
type RefresherFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return f(ctx, refreshToken)
}

// Options configures a [Controller].
type Options struct {
	Storage         storage.Storage
	Refresher       Refresher
	Logger          *log.Logger
	RefreshInterval time.Duration
	TokenLifetime   time.Duration
	Now             func() time.Time
}

// Controller is the auth flow state machine.
//
//	LoggedOut -> LoggedIn   fragment capture or restore
//	LoggedIn  -> LoggedIn   refresh success
//	LoggedIn  -> LoggedOut  refresh failure or logout
type Controller struct {
	store     storage.Storage
	refresher Refresher
	logger    *log.Logger
	interval  time.Duration
	lifetime  time.Duration
	now       func() time.Time

	mu      sync.RWMutex
	session Session
	epoch   uint64 // bumped on logout so in-flight refreshes are discarded
	cancel  context.CancelFunc
	timer   uint64 // id of the running refresh loop

	refreshMu sync.Mutex
}

// NewController creates a logged-out [Controller]. Storage defaults to [storage.Memory].
func NewController(opts Options) *Controller {
	if opts.Storage == nil {
		opts.Storage = storage.NewMemory()
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.TokenLifetime <= 0 {
		opts.TokenLifetime = DefaultTokenLifetime
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Controller{
		store:     opts.Storage,
		refresher: opts.Refresher,
		logger:    shared.WithLogger(opts.Logger, "component", "session"),
		interval:  opts.RefreshInterval,
		lifetime:  opts.TokenLifetime,
		now:       opts.Now,
	}
}

// Load handles the URL the app was opened with.
//
// When its fragment carries tokens they are committed and persisted, and the URL is returned
// without the fragment so the tokens do not linger in history. Otherwise any persisted session
// is restored and rawURL is returned unchanged. An empty rawURL only restores.
func (c *Controller) Load(ctx context.Context, rawURL string) (string, error) {
	if rawURL != "" {
		clean, fragment, err := SplitFragment(rawURL)
		if err != nil {
			return rawURL, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		if grant, ok := ParseFragment(fragment); ok {
			if err := c.Commit(ctx, grant); err != nil {
				return clean, err
			}
			c.logger.Debug("captured tokens from redirect fragment")
			return clean, nil
		}
	}

	if _, err := c.Restore(ctx); err != nil {
		return rawURL, err
	}
	return rawURL, nil
}

// Commit replaces the current session with grant and persists it.
func (c *Controller) Commit(ctx context.Context, grant Grant) error {
	if grant.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", shared.ErrInvalidInput)
	}

	lifetime := grant.ExpiresIn
	if lifetime <= 0 {
		lifetime = c.lifetime
	}
	s := Session{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    c.now().Add(lifetime).UTC().Truncate(time.Second),
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	return c.persist(ctx, s)
}

// Restore loads a persisted session. It reports whether one was found.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	access, ok, err := c.store.Get(ctx, storage.KeyAccessToken)
	if err != nil {
		return false, err
	}
	if !ok || access == "" {
		return false, nil
	}

	s := Session{AccessToken: access}
	if refresh, ok, err := c.store.Get(ctx, storage.KeyRefreshToken); err != nil {
		return false, err
	} else if ok {
		s.RefreshToken = refresh
	}
	if raw, ok, err := c.store.Get(ctx, storage.KeyExpiresAt); err != nil {
		return false, err
	} else if ok {
		if t, perr := time.Parse(time.RFC3339, raw); perr == nil {
			s.ExpiresAt = t
		} else {
			c.logger.Warn("ignoring malformed expiry", "value", raw)
		}
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return true, nil
}

// Token returns the current access token, or "" when logged out.
func (c *Controller) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.AccessToken
}

// Session returns a copy of the current session.
func (c *Controller) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Authenticated reports whether an access token is present.
func (c *Controller) Authenticated() bool {
	return c.Token() != ""
}

// State returns [LoggedIn] or [LoggedOut].
func (c *Controller) State() State {
	if c.Authenticated() {
		return LoggedIn
	}
	return LoggedOut
}

// Refresh exchanges the refresh token for a new access token.
//
// A missing refresh token or any refresh failure logs the user out. When ctx ends first the
// session is left as it was.
func (c *Controller) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.RLock()
	current, epoch := c.session, c.epoch
	c.mu.RUnlock()

	if current.RefreshToken == "" {
		return errors.Join(shared.ErrNoRefreshToken, c.Logout(ctx))
	}
	if c.refresher == nil {
		return errors.Join(fmt.Errorf("%w: no refresher configured", shared.ErrRefreshFailed), c.Logout(ctx))
	}

	tok, err := c.refresher.Refresh(ctx, current.RefreshToken)
	if err == nil && (tok == nil || tok.AccessToken == "") {
		err = errors.New("empty access token in refresh response")
	}
	if err != nil && ctx.Err() != nil {
		// the caller gave up; the stored session is still good
		return fmt.Errorf("token refresh interrupted: %w", err)
	}
	if err != nil {
		c.logger.Warn("token refresh failed, logging out", "error", err)
		return errors.Join(fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err), c.Logout(ctx))
	}

	next := Session{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		next.ExpiresAt = tok.Expiry.UTC().Truncate(time.Second)
	} else {
		next.ExpiresAt = c.now().Add(c.lifetime).UTC().Truncate(time.Second)
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return fmt.Errorf("%w: logged out during refresh", shared.ErrNotAuthenticated)
	}
	c.session = next
	c.mu.Unlock()

	c.logger.Debug("access token refreshed", "expires_at", next.ExpiresAt)
	return c.persist(ctx, next)
}

// EnsureFresh refreshes when the access token has expired or is about to.
func (c *Controller) EnsureFresh(ctx context.Context) error {
	s := c.Session()
	if !s.Valid() {
		return shared.ErrNotAuthenticated
	}
	if s.ExpiresAt.IsZero() || c.now().Add(expirySkew).Before(s.ExpiresAt) {
		return nil
	}
	return c.Refresh(ctx)
}

// Start begins refreshing every refresh interval until ctx ends, [Controller.Stop],
// logout or a failed refresh. Calling Start while running does nothing.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.timer++
	id := c.timer
	c.mu.Unlock()

	go c.loop(ctx, id)
}

// Running reports whether the refresh timer is active.
func (c *Controller) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cancel != nil
}

func (c *Controller) loop(ctx context.Context, id uint64) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer c.release(id)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				return
			}
		}
	}
}

// release clears the timer only if loop id still owns it, so an exiting loop never stops its successor.
func (c *Controller) release(id uint64) {
	c.mu.Lock()
	if c.timer != id || c.cancel == nil {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	cancel()
}

// Stop cancels the refresh timer without touching the session.
func (c *Controller) Stop() {
	c.clearTimer()
}

func (c *Controller) clearTimer() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Logout clears the in-memory session, removes the persisted keys and stops the refresh timer.
// It is safe to call repeatedly.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.session = Session{}
	c.epoch++
	c.mu.Unlock()

	c.clearTimer()

	if err := c.store.Remove(ctx, storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyExpiresAt); err != nil {
		return fmt.Errorf("failed to clear stored session: %w", err)
	}
	return nil
}

func (c *Controller) persist(ctx context.Context, s Session) error {
	values := [][2]string{
		{storage.KeyAccessToken, s.AccessToken},
		{storage.KeyRefreshToken, s.RefreshToken},
		{storage.KeyExpiresAt, s.ExpiresAt.Format(time.RFC3339)},
	}
	for _, kv := range values {
		if err := c.store.Set(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}
	}
	return nil
}
