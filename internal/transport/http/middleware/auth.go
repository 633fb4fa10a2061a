package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/ankitojha2705/marketmind/internal/metrics"
	"github.com/ankitojha2705/marketmind/internal/reqctx"
	"github.com/gin-gonic/gin"
)

// TokenCookie is the cookie the API sets on login and reads back here when
// no Authorization header is sent.
const TokenCookie = "token"

const currentUserKey = "currentUser"

type TokenVerifier interface {
	Verify(raw string) (string, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Auth resolves the bearer token to a user. The token is read from the
// Authorization header, falling back to the token cookie.
func Auth(tokens TokenVerifier, users UserFinder, logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "auth_middleware")

	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			reject(c, http.StatusUnauthorized, "missing_token", domain.ErrUnauthenticated)
			return
		}

		userID, err := tokens.Verify(raw)
		if err != nil {
			reject(c, http.StatusUnauthorized, "invalid_token", domain.ErrUnauthenticated)
			return
		}

		ctx := c.Request.Context()
		user, err := users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				reject(c, http.StatusUnauthorized, "unknown_user", domain.ErrUnauthenticated)
				return
			}
			logger.ErrorContext(ctx, "find user", "user_id", userID, "error", err)
			abortJSON(c, http.StatusInternalServerError, errInternalServer)
			return
		}

		c.Request = c.Request.WithContext(reqctx.WithUserID(ctx, user.ID))
		c.Set(currentUserKey, user)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

// RequireRole must run after Auth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			reject(c, http.StatusUnauthorized, "missing_token", domain.ErrUnauthenticated)
			return
		}
		if !user.HasRole(roles...) {
			reject(c, http.StatusForbidden, "forbidden",
				fmt.Errorf("user role %s %w", user.Role, domain.ErrForbidden))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user set by Auth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

// reject records err on the context for the request logger and answers with
// its message.
func reject(c *gin.Context, status int, reason string, err error) {
	metrics.GuardRejectionsTotal.WithLabelValues(reason).Inc()
	_ = c.Error(err)
	abortJSON(c, status, capitalize(err.Error()))
}
