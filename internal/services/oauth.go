package services

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotdash/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Scopes requested at login.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// NewOAuthConfig builds the authorization code flow config for Spotify.
func NewOAuthConfig(creds shared.SpotifyConfig) (*oauth2.Config, error) {
	if !creds.HasClientCredentials() {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}, nil
}

// NewAuthenticator builds a spotifyauth.Authenticator with the same credentials and scopes.
func NewAuthenticator(creds shared.SpotifyConfig) (*spotifyauth.Authenticator, error) {
	if !creds.HasClientCredentials() {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	return spotifyauth.New(
		spotifyauth.WithClientID(creds.ClientID),
		spotifyauth.WithClientSecret(creds.ClientSecret),
		spotifyauth.WithRedirectURL(creds.RedirectURI),
		spotifyauth.WithScopes(Scopes...),
	), nil
}

// OAuthRefresher refreshes tokens straight against the Spotify token endpoint.
type OAuthRefresher struct {
	config *oauth2.Config
}

func NewOAuthRefresher(config *oauth2.Config) *OAuthRefresher {
	return &OAuthRefresher{config: config}
}

// Refresh performs a refresh_token grant.
func (o *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	// an already-expired token forces the source to hit the token endpoint
	stale := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	tok, err := o.config.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh grant failed: %w", err)
	}
	return tok, nil
}
