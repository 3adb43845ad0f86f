package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CallbackResult is what the identity provider sent back to the redirect URL
type CallbackResult struct {
	Code string
	Err  error
}

// AuthCallbackController handles the authorization code redirect of an interactive login
type AuthCallbackController struct {
	state   string
	results chan<- CallbackResult
}

// NewAuthCallbackController creates a controller expecting the given state.
// results should be buffered; only the first result is delivered.
func NewAuthCallbackController(state string, results chan<- CallbackResult) *AuthCallbackController {
	return &AuthCallbackController{
		state:   state,
		results: results,
	}
}

// HandleCallback handles GET <redirect path>?code=...&state=...
func (ac *AuthCallbackController) HandleCallback(c *gin.Context) {
	if c.Query("state") != ac.state {
		// Stray or forged redirects do not end the login, provider errors included
		c.String(http.StatusBadRequest, "Invalid state parameter.")
		return
	}

	if errCode := c.Query("error"); errCode != "" {
		err := fmt.Errorf("login failed: %s: %s", errCode, c.Query("error_description"))
		ac.deliver(CallbackResult{Err: err})
		c.String(http.StatusBadRequest, "Login failed: %s. You can close this window.", errCode)
		return
	}

	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "Missing authorization code.")
		return
	}

	ac.deliver(CallbackResult{Code: code})
	c.String(http.StatusOK, "Login complete. You can close this window.")
}

func (ac *AuthCallbackController) deliver(result CallbackResult) {
	select {
	case ac.results <- result:
	default:
	}
}
