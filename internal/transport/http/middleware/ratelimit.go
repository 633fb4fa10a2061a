package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimit keys requests by scope and client IP. A nil limiter lets
// everything through, which is how the API runs without Redis.
func RateLimit(limiter Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP()) {
			abortJSON(c, http.StatusTooManyRequests, errTooManyRequests)
			return
		}
		c.Next()
	}
}
