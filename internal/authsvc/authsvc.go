// Package authsvc is the companion login service.
//
// It holds the Spotify client secret so the CLI does not have to: /login starts the authorization code
// flow, /callback exchanges the code and redirects the browser to the app URI with the tokens in the URL
// fragment, and /refresh_token trades a refresh token for a new access token.
package authsvc

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

// Options configures a [Service].
type Options struct {
	Exchanger TokenExchanger
	AppURI    string // where /callback sends the browser
	Logger    *log.Logger
}

// Service serves the companion routes.
type Service struct {
	exchanger TokenExchanger
	appURI    *url.URL
	logger    *log.Logger
}

// New validates opts and creates a Service.
func New(opts Options) (*Service, error) {
	if opts.Exchanger == nil {
		return nil, fmt.Errorf("%w: token exchanger is required", shared.ErrMissingConfig)
	}
	u, err := url.Parse(strings.TrimSpace(opts.AppURI))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: app_uri %q must be an absolute URL", shared.ErrInvalidConfig, opts.AppURI)
	}
	u.Fragment = ""

	return &Service{
		exchanger: opts.Exchanger,
		appURI:    u,
		logger:    shared.WithLogger(opts.Logger, "component", "authsvc"),
	}, nil
}

// Router builds a gin engine with recovery, request ids, request logging and the service routes.
func (s *Service) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), Logger(s.logger))
	s.RegisterRoutes(router)
	return router
}

// RegisterRoutes adds the service routes to r.
func (s *Service) RegisterRoutes(r gin.IRoutes) {
	r.GET("/login", s.login)
	r.GET("/callback", s.callback)
	r.GET("/refresh_token", s.refreshToken)
	r.GET("/health", s.health)
}

func (s *Service) login(c *gin.Context) {
	state, err := generateState(c)
	if err != nil {
		s.logger.Error("could not generate state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state error"})
		return
	}
	c.Redirect(http.StatusFound, s.exchanger.AuthURL(state))
}

func (s *Service) callback(c *gin.Context) {
	if err := validateState(c); err != nil {
		s.logger.Warn("rejected callback", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": shared.ErrInvalidState.Error()})
		return
	}
	clearState(c)

	if errParam := c.Query("error"); errParam != "" {
		s.logger.Warn("authorization denied", "error", errParam)
		c.Redirect(http.StatusFound, s.redirect(url.Values{"error": {errParam}}))
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	tok, err := s.exchanger.Exchange(c.Request.Context(), code)
	if err != nil {
		s.logger.Error("code exchange failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "token exchange failed"})
		return
	}

	fragment := url.Values{
		"access_token": {tok.AccessToken},
		"expires_in":   {strconv.Itoa(expiresIn(tok))},
	}
	if tok.RefreshToken != "" {
		fragment.Set("refresh_token", tok.RefreshToken)
	}
	c.Redirect(http.StatusFound, s.redirect(fragment))
}

func (s *Service) refreshToken(c *gin.Context) {
	refresh := c.Query("refresh_token")
	if refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing refresh_token"})
		return
	}

	tok, err := s.exchanger.Refresh(c.Request.Context(), refresh)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.ErrorCode != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": rerr.ErrorCode, "error_description": rerr.ErrorDescription})
			return
		}
		s.logger.Error("refresh failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "refresh failed"})
		return
	}

	c.JSON(http.StatusOK, services.RefreshResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn(tok),
	})
}

func (s *Service) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// redirect returns the app URI with values as its fragment.
func (s *Service) redirect(values url.Values) string {
	u := *s.appURI
	u.Fragment = ""
	return u.String() + "#" + values.Encode()
}

func expiresIn(tok *oauth2.Token) int {
	if tok.ExpiresIn > 0 {
		return int(tok.ExpiresIn)
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	return max(int(time.Until(tok.Expiry).Round(time.Second).Seconds()), 0)
}
