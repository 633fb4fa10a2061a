package repository

import (
	"context"

	"github.com/ankitojha2705/marketmind/internal/domain"
)

// UserRepository is the identity store. Usecases and the route guard depend
// on this interface, so tests can hand in a fake instead of Postgres.
type UserRepository interface {
	// Create inserts a new user. Returns domain.ErrEmailTaken when the email
	// is already registered.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	LinkGoogleID(ctx context.Context, userID, googleID string) error
}
