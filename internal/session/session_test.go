package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/desertthunder/spotdash/internal/storage"
	"golang.org/x/oauth2"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newController(t *testing.T, store storage.Storage, r Refresher) *Controller {
	t.Helper()
	return NewController(Options{
		Storage:   store,
		Refresher: r,
		Now:       func() time.Time { return fixedNow },
	})
}

func stored(t *testing.T, store storage.Storage, key string) (string, bool) {
	t.Helper()
	v, ok, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("storage get %s: %v", key, err)
	}
	return v, ok
}

func TestParseFragment(t *testing.T) {
	tc := []struct {
		name     string
		fragment string
		ok       bool
		want     Grant
	}{
		{
			name:     "full grant",
			fragment: "#access_token=abc&refresh_token=def&expires_in=3600",
			ok:       true,
			want:     Grant{AccessToken: "abc", RefreshToken: "def", ExpiresIn: time.Hour},
		},
		{
			name:     "no leading hash and no refresh",
			fragment: "access_token=abc",
			ok:       true,
			want:     Grant{AccessToken: "abc"},
		},
		{
			name:     "bad expires_in ignored",
			fragment: "access_token=abc&expires_in=soon",
			ok:       true,
			want:     Grant{AccessToken: "abc"},
		},
		{name: "missing access token", fragment: "refresh_token=def", ok: false},
		{name: "empty", fragment: "", ok: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFragment(tt.fragment)
			if ok != tt.ok {
				t.Fatalf("ParseFragment() ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ParseFragment() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestController(t *testing.T) {
	ctx := context.Background()

	t.Run("Load captures fragment and strips it", func(t *testing.T) {
		store := storage.NewMemory()
		c := newController(t, store, nil)

		clean, err := c.Load(ctx, "http://127.0.0.1:3000/#access_token=abc&refresh_token=def&expires_in=3600")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if clean != "http://127.0.0.1:3000/" {
			t.Errorf("expected fragment to be stripped, got %s", clean)
		}
		if c.Token() != "abc" || !c.Authenticated() || c.State() != LoggedIn {
			t.Errorf("expected logged in with abc, got %+v", c.Session())
		}
		if v, _ := stored(t, store, storage.KeyAccessToken); v != "abc" {
			t.Errorf("expected persisted access token, got %q", v)
		}
		if v, _ := stored(t, store, storage.KeyRefreshToken); v != "def" {
			t.Errorf("expected persisted refresh token, got %q", v)
		}
		if !c.Session().ExpiresAt.Equal(fixedNow.Add(time.Hour)) {
			t.Errorf("unexpected expiry %s", c.Session().ExpiresAt)
		}
	})

	t.Run("fragment round trip survives reload", func(t *testing.T) {
		store := storage.NewMemory()
		first := newController(t, store, nil)
		if _, err := first.Load(ctx, "http://app/#access_token=abc&refresh_token=def"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		second := newController(t, store, nil)
		url, err := second.Load(ctx, "http://app/")
		if err != nil {
			t.Fatalf("reload failed: %v", err)
		}
		if url != "http://app/" {
			t.Errorf("expected url unchanged, got %s", url)
		}
		if second.Token() != "abc" {
			t.Errorf("expected restored access token abc, got %q", second.Token())
		}
		if second.Session().RefreshToken != "def" {
			t.Errorf("expected restored refresh token def, got %q", second.Session().RefreshToken)
		}
		if !second.Session().ExpiresAt.Equal(fixedNow.Add(DefaultTokenLifetime)) {
			t.Errorf("expected default lifetime expiry, got %s", second.Session().ExpiresAt)
		}
	})

	t.Run("Load without tokens stays logged out", func(t *testing.T) {
		c := newController(t, storage.NewMemory(), nil)
		if _, err := c.Load(ctx, "http://app/#section=top"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Authenticated() {
			t.Error("expected logged out")
		}
		if _, err := c.Load(ctx, ""); err != nil {
			t.Fatalf("Load with empty url failed: %v", err)
		}
		if c.State() != LoggedOut {
			t.Error("expected logged out")
		}
	})

	t.Run("Logout is idempotent", func(t *testing.T) {
		store := storage.NewMemory()
		c := newController(t, store, nil)
		if err := c.Commit(ctx, Grant{AccessToken: "abc", RefreshToken: "def"}); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		for i := range 2 {
			if err := c.Logout(ctx); err != nil {
				t.Fatalf("Logout #%d failed: %v", i+1, err)
			}
		}

		if c.Authenticated() {
			t.Error("expected logged out")
		}
		if store.Len() != 0 {
			t.Errorf("expected storage to be empty, got %d keys", store.Len())
		}
	})

	t.Run("Commit rejects empty token", func(t *testing.T) {
		c := newController(t, storage.NewMemory(), nil)
		if err := c.Commit(ctx, Grant{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("success replaces access token and keeps refresh token", func(t *testing.T) {
		store := storage.NewMemory()
		var got string
		c := newController(t, store, RefresherFunc(func(_ context.Context, rt string) (*oauth2.Token, error) {
			got = rt
			return &oauth2.Token{AccessToken: "new", Expiry: fixedNow.Add(30 * time.Minute)}, nil
		}))
		c.Commit(ctx, Grant{AccessToken: "old", RefreshToken: "rt"})

		if err := c.Refresh(ctx); err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		if got != "rt" {
			t.Errorf("expected refresher to receive rt, got %q", got)
		}
		s := c.Session()
		if s.AccessToken != "new" || s.RefreshToken != "rt" {
			t.Errorf("unexpected session after refresh: %+v", s)
		}
		if !s.ExpiresAt.Equal(fixedNow.Add(30 * time.Minute)) {
			t.Errorf("expected expiry from token, got %s", s.ExpiresAt)
		}
		if v, _ := stored(t, store, storage.KeyAccessToken); v != "new" {
			t.Errorf("expected persisted new token, got %q", v)
		}
	})

	t.Run("rotated refresh token is stored", func(t *testing.T) {
		c := newController(t, storage.NewMemory(), RefresherFunc(func(context.Context, string) (*oauth2.Token, error) {
			return &oauth2.Token{AccessToken: "new", RefreshToken: "rt2"}, nil
		}))
		c.Commit(ctx, Grant{AccessToken: "old", RefreshToken: "rt"})

		if err := c.Refresh(ctx); err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		if c.Session().RefreshToken != "rt2" {
			t.Errorf("expected rotated refresh token, got %q", c.Session().RefreshToken)
		}
	})

	t.Run("failure logs out", func(t *testing.T) {
		store := storage.NewMemory()
		c := newController(t, store, RefresherFunc(func(context.Context, string) (*oauth2.Token, error) {
			return nil, errors.New("status 400")
		}))
		c.Commit(ctx, Grant{AccessToken: "old", RefreshToken: "rt"})

		err := c.Refresh(ctx)
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
		if c.Authenticated() || store.Len() != 0 {
			t.Error("expected full logout after failed refresh")
		}
	})

	t.Run("missing refresh token logs out", func(t *testing.T) {
		store := storage.NewMemory()
		c := newController(t, store, RefresherFunc(func(context.Context, string) (*oauth2.Token, error) {
			t.Error("refresher should not be called")
			return nil, nil
		}))
		c.Commit(ctx, Grant{AccessToken: "old"})

		if err := c.Refresh(ctx); !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
		if c.Authenticated() || store.Len() != 0 {
			t.Error("expected full logout")
		}
	})

	t.Run("cancelled refresh keeps the session", func(t *testing.T) {
		store := storage.NewMemory()
		c := newController(t, store, RefresherFunc(func(ctx context.Context, _ string) (*oauth2.Token, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}))
		c.Commit(ctx, Grant{AccessToken: "old", RefreshToken: "rt"})

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := c.Refresh(cctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("cancellation should not count as a failed refresh: %v", err)
		}
		if !c.Authenticated() || c.Token() != "old" {
			t.Errorf("expected session to survive, got %+v", c.Session())
		}
		if v, ok := stored(t, store, storage.KeyRefreshToken); !ok || v != "rt" {
			t.Errorf("expected stored refresh token to remain, got %q (present=%v)", v, ok)
		}
	})

	t.Run("EnsureFresh only refreshes near expiry", func(t *testing.T) {
		var calls int
		now := fixedNow
		c := NewController(Options{
			Now: func() time.Time { return now },
			Refresher: RefresherFunc(func(context.Context, string) (*oauth2.Token, error) {
				calls++
				return &oauth2.Token{AccessToken: "fresh"}, nil
			}),
		})
		c.Commit(ctx, Grant{AccessToken: "old", RefreshToken: "rt", ExpiresIn: time.Hour})

		if err := c.EnsureFresh(ctx); err != nil || calls != 0 {
			t.Fatalf("expected no refresh, calls=%d err=%v", calls, err)
		}

		now = fixedNow.Add(time.Hour)
		if err := c.EnsureFresh(ctx); err != nil {
			t.Fatalf("EnsureFresh failed: %v", err)
		}
		if calls != 1 || c.Token() != "fresh" {
			t.Errorf("expected one refresh, calls=%d token=%s", calls, c.Token())
		}
	})

	t.Run("EnsureFresh when logged out", func(t *testing.T) {
		c := newController(t, nil, nil)
		if err := c.EnsureFresh(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestRefreshTimer(t *testing.T) {
	ctx := context.Background()

	t.Run("ticks until logout", func(t *testing.T) {
		var calls atomic.Int32
		c := NewController(Options{
			RefreshInterval: 5 * time.Millisecond,
			Refresher: RefresherFunc(func(context.Context, string) (*oauth2.Token, error) {
				calls.Add(1)
				return &oauth2.Token{AccessToken: "tick"}, nil
			}),
		})
		c.Commit(ctx, Grant{AccessToken: "a", RefreshToken: "rt"})

		c.Start(ctx)
		c.Start(ctx)

		deadline := time.Now().Add(2 * time.Second)
		for calls.Load() < 2 && time.Now().Before(deadline) {
			time.Sleep(2 * time.Millisecond)
		}
		if calls.Load() < 2 {
			t.Fatalf("expected at least two refreshes, got %d", calls.Load())
		}

		if err := c.Logout(ctx); err != nil {
			t.Fatalf("Logout failed: %v", err)
		}
		if c.Running() {
			t.Error("expected timer to stop on logout")
		}

		settled := calls.Load()
		time.Sleep(30 * time.Millisecond)
		// one refresh may already have been in flight when Logout ran
		if calls.Load() > settled+1 {
			t.Errorf("expected refreshes to stop after logout, got %d more", calls.Load()-settled)
		}
	})

	t.Run("stops after failed refresh", func(t *testing.T) {
		c := NewController(Options{
			RefreshInterval: 5 * time.Millisecond,
			Refresher: RefresherFunc(func(context.Context, string) (*oauth2.Token, error) {
				return nil, errors.New("revoked")
			}),
		})
		c.Commit(ctx, Grant{AccessToken: "a", RefreshToken: "rt"})
		c.Start(ctx)

		deadline := time.Now().Add(2 * time.Second)
		for c.Running() && time.Now().Before(deadline) {
			time.Sleep(2 * time.Millisecond)
		}
		if c.Running() {
			t.Fatal("expected timer to stop")
		}
		if c.Authenticated() {
			t.Error("expected logout after failed refresh")
		}
	})

	t.Run("restarts after Stop", func(t *testing.T) {
		var calls atomic.Int32
		c := NewController(Options{
			RefreshInterval: 5 * time.Millisecond,
			Refresher: RefresherFunc(func(context.Context, string) (*oauth2.Token, error) {
				calls.Add(1)
				return &oauth2.Token{AccessToken: "tick"}, nil
			}),
		})
		c.Commit(ctx, Grant{AccessToken: "a", RefreshToken: "rt"})

		for i := range 50 {
			c.Start(ctx)
			c.Stop()
			c.Start(ctx)
			time.Sleep(2 * time.Millisecond)
			if !c.Running() {
				t.Fatalf("iteration %d: restarted timer was stopped by the previous loop", i)
			}
			c.Stop()
		}

		c.Start(ctx)
		defer c.Stop()
		before := calls.Load()
		deadline := time.Now().Add(2 * time.Second)
		for calls.Load() < before+2 && time.Now().Before(deadline) {
			time.Sleep(2 * time.Millisecond)
		}
		if calls.Load() < before+2 {
			t.Errorf("expected the restarted timer to keep refreshing, got %d", calls.Load()-before)
		}
	})

	t.Run("restarts after Logout and Commit", func(t *testing.T) {
		var calls atomic.Int32
		c := NewController(Options{
			RefreshInterval: 5 * time.Millisecond,
			Refresher: RefresherFunc(func(context.Context, string) (*oauth2.Token, error) {
				calls.Add(1)
				return &oauth2.Token{AccessToken: "tick"}, nil
			}),
		})
		c.Commit(ctx, Grant{AccessToken: "a", RefreshToken: "rt"})
		c.Start(ctx)

		if err := c.Logout(ctx); err != nil {
			t.Fatalf("Logout failed: %v", err)
		}
		if err := c.Commit(ctx, Grant{AccessToken: "b", RefreshToken: "rt2"}); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		c.Start(ctx)
		defer c.Stop()

		time.Sleep(2 * time.Millisecond)
		if !c.Running() {
			t.Fatal("expected timer running after login")
		}
		before := calls.Load()
		deadline := time.Now().Add(2 * time.Second)
		for calls.Load() < before+2 && time.Now().Before(deadline) {
			time.Sleep(2 * time.Millisecond)
		}
		if calls.Load() < before+2 || !c.Running() {
			t.Errorf("expected refreshes to continue, got %d running=%v", calls.Load()-before, c.Running())
		}
	})

	t.Run("Stop during refresh keeps the session", func(t *testing.T) {
		started := make(chan struct{}, 1)
		store := storage.NewMemory()
		c := NewController(Options{
			Storage:         store,
			RefreshInterval: 5 * time.Millisecond,
			Refresher: RefresherFunc(func(ctx context.Context, _ string) (*oauth2.Token, error) {
				select {
				case started <- struct{}{}:
				default:
				}
				<-ctx.Done()
				return nil, ctx.Err()
			}),
		})
		c.Commit(ctx, Grant{AccessToken: "a", RefreshToken: "rt"})
		c.Start(ctx)

		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("refresh never started")
		}
		c.Stop()
		time.Sleep(10 * time.Millisecond)

		if !c.Authenticated() || store.Len() != 3 {
			t.Errorf("expected session and stored keys to remain, authenticated=%v keys=%d", c.Authenticated(), store.Len())
		}
	})

	t.Run("Stop keeps the session", func(t *testing.T) {
		c := NewController(Options{RefreshInterval: time.Hour})
		c.Commit(ctx, Grant{AccessToken: "a", RefreshToken: "rt"})
		c.Start(ctx)
		c.Stop()

		if c.Running() {
			t.Error("expected timer stopped")
		}
		if !c.Authenticated() {
			t.Error("expected session to remain")
		}
	})
}
