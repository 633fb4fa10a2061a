package domain

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("user already exists")
	ErrInvalidLogin      = errors.New("invalid credentials")
	ErrInvalidCredential = errors.New("token is invalid or expired")
	ErrUnauthenticated   = errors.New("not authorized to access this route")
	ErrForbidden         = errors.New("is not authorized to access this route") // prefixed with the offending role
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string // empty for users that only ever signed in through Google
	Fullname     string
	Role         Role
	GoogleID     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user's role is one of roles.
func (u *User) HasRole(roles ...Role) bool {
	return slices.Contains(roles, u.Role)
}

// ExternalIdentity is what an identity provider tells us about a user after
// a successful sign-in.
type ExternalIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}
