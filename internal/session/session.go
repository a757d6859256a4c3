// Package session owns the Spotify token lifecycle.
//
// A [Controller] captures tokens from a login redirect fragment, persists them to a [storage.Storage],
// restores them on the next run, refreshes them on a fixed interval, and clears them on logout.
// It is the only writer of the current [Session]; everything else reads through [Controller.Token].
package session

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Session is the current token set. An empty AccessToken means logged out.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the session carries an access token.
func (s Session) Valid() bool {
	return s.AccessToken != ""
}

// Expired reports whether the access token has passed its expiry.
// A zero ExpiresAt is treated as unknown, not expired.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// State of a [Controller].
type State int

const (
	LoggedOut State = iota
	LoggedIn
)

func (s State) String() string {
	switch s {
	case LoggedIn:
		return "logged_in"
	default:
		return "logged_out"
	}
}

// Grant is a token set delivered by the login redirect or a refresh.
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// ParseFragment extracts a [Grant] from a URL fragment such as
// "access_token=..&refresh_token=..&expires_in=3600". A leading "#" is allowed.
//
// ok is false when the fragment has no access_token.
func ParseFragment(fragment string) (Grant, bool) {
	values, err := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return Grant{}, false
	}

	g := Grant{
		AccessToken:  values.Get("access_token"),
		RefreshToken: values.Get("refresh_token"),
	}
	if g.AccessToken == "" {
		return Grant{}, false
	}

	if secs, err := strconv.Atoi(values.Get("expires_in")); err == nil && secs > 0 {
		g.ExpiresIn = time.Duration(secs) * time.Second
	}
	return g, true
}

// SplitFragment parses rawURL and returns it without its fragment, plus the fragment itself.
func SplitFragment(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid url: %w", err)
	}
	fragment := u.EscapedFragment()
	u.Fragment, u.RawFragment = "", ""
	return u.String(), fragment, nil
}
