package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	errInternalServer     = "Internal server error"
	errInvalidRequestBody = "Invalid request body"
	errUserExists         = "User already exists"
	errInvalidCredentials = "Invalid credentials"
	errDraftNotFound      = "Draft not found"
	errUserNotFound       = "User not found"
	errInvalidStatus      = "Status must be draft or scheduled"
	errPlannerUnavailable = "Planner is temporarily unavailable"
)

// fieldError is one entry of the validation envelope.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// fieldRule names a request field and the message shown when any of its
// binding rules fail.
type fieldRule struct {
	field   string
	message string
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// bindJSON binds the body and writes the 400 response itself when binding
// fails. rules is keyed by struct field name.
func bindJSON(c *gin.Context, dst any, rules map[string]fieldRule) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fail(c, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}

	out := make([]fieldError, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		name := fe.StructField()
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i] // element of a dive rule
		}
		rule, ok := rules[name]
		if !ok {
			rule = fieldRule{field: fe.Field(), message: "Invalid value"}
		}
		if seen[rule.field] {
			continue
		}
		seen[rule.field] = true
		out = append(out, fieldError{Field: rule.field, Message: rule.message})
	}
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": out})
	return false
}
