package authsvc

import (
	"context"

	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// TokenExchanger performs the provider side of the authorization code flow.
type TokenExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// SpotifyExchanger talks to accounts.spotify.com.
type SpotifyExchanger struct {
	auth      *spotifyauth.Authenticator
	refresher *services.OAuthRefresher
}

var _ TokenExchanger = (*SpotifyExchanger)(nil)

// NewSpotifyExchanger builds an exchanger from the app's client credentials.
func NewSpotifyExchanger(creds shared.SpotifyConfig) (*SpotifyExchanger, error) {
	auth, err := services.NewAuthenticator(creds)
	if err != nil {
		return nil, err
	}
	cfg, err := services.NewOAuthConfig(creds)
	if err != nil {
		return nil, err
	}
	return &SpotifyExchanger{auth: auth, refresher: services.NewOAuthRefresher(cfg)}, nil
}

func (e *SpotifyExchanger) AuthURL(state string) string {
	return e.auth.AuthURL(state)
}

func (e *SpotifyExchanger) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return e.auth.Exchange(ctx, code)
}

func (e *SpotifyExchanger) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return e.refresher.Refresh(ctx, refreshToken)
}
