package middleware

import (
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

const (
	errInternalServer  = "Internal server error"
	errTooManyRequests = "Too many requests, please try again later"
)

func abortJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// capitalize turns a sentinel's lower-case message into a user-facing one.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
