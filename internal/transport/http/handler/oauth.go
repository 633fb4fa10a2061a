package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/ankitojha2705/marketmind/internal/oauth"
	"github.com/ankitojha2705/marketmind/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 10 * 60
)

type externalLoginer interface {
	LoginExternal(ctx context.Context, id domain.ExternalIdentity) (*usecase.AuthResult, error)
}

// OAuthHandler runs the browser side of the Google sign-in. Both outcomes
// end in a redirect to the web client.
type OAuthHandler struct {
	provider  oauth.Provider
	auth      externalLoginer
	clientURL string
	cookies   CookieOptions
	logger    *slog.Logger
}

func NewOAuthHandler(provider oauth.Provider, auth externalLoginer, clientURL string, cookies CookieOptions, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		provider:  provider,
		auth:      auth,
		clientURL: clientURL,
		cookies:   cookies,
		logger:    logger.With("component", "oauth_handler"),
	}
}

// GET /api/auth/google
func (h *OAuthHandler) Start(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/", "", h.cookies.Secure, true)
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

type callbackUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GET /api/auth/google/callback
func (h *OAuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	expected, _ := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.cookies.Secure, true)

	state := c.Query("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		h.logger.WarnContext(ctx, "oauth state mismatch")
		h.failRedirect(c)
		return
	}
	if reason := c.Query("error"); reason != "" {
		h.logger.InfoContext(ctx, "oauth denied by provider", "reason", reason)
		h.failRedirect(c)
		return
	}

	identity, err := h.provider.Exchange(ctx, c.Query("code"))
	if err != nil {
		h.logger.ErrorContext(ctx, "oauth exchange", "error", err)
		h.failRedirect(c)
		return
	}

	res, err := h.auth.LoginExternal(ctx, identity)
	if err != nil {
		h.logger.ErrorContext(ctx, "oauth login", "error", err)
		h.failRedirect(c)
		return
	}

	user, err := json.Marshal(callbackUser{
		ID:    res.User.ID,
		Name:  res.User.Fullname,
		Email: res.User.Email,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "encode callback user", "error", err)
		h.failRedirect(c)
		return
	}

	setTokenCookie(c, res.Token, h.cookies)
	q := url.Values{}
	q.Set("token", res.Token)
	q.Set("user", string(user))
	c.Redirect(http.StatusFound, h.clientURL+"/auth/callback?"+q.Encode())
}

func (h *OAuthHandler) failRedirect(c *gin.Context) {
	c.Redirect(http.StatusFound, h.clientURL+"/login?error=auth_failed")
}
