package authsvc

import (
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/gin-gonic/gin"
)

const (
	stateCookieName = "spotdash_auth_state"
	stateTTL        = 5 * time.Minute
)

func setStateCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     stateCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func generateState(c *gin.Context) (string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return "", err
	}
	setStateCookie(c, state, int(stateTTL.Seconds()))
	return state, nil
}

func validateState(c *gin.Context) error {
	stateQuery := c.Query("state")
	if stateQuery == "" {
		return fmt.Errorf("%w: missing from query", shared.ErrInvalidState)
	}

	cookie, err := c.Request.Cookie(stateCookieName)
	if err != nil {
		return fmt.Errorf("%w: no state cookie", shared.ErrInvalidState)
	}

	if cookie.Value != stateQuery {
		return fmt.Errorf("%w: does not match cookie", shared.ErrInvalidState)
	}
	return nil
}

func clearState(c *gin.Context) {
	setStateCookie(c, "", -1)
}
