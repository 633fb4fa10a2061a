package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/ankitojha2705/marketmind/internal/email"
	"github.com/ankitojha2705/marketmind/internal/metrics"
	"github.com/ankitojha2705/marketmind/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs bearer tokens for a principal id.
type TokenIssuer interface {
	Issue(principalID string) (string, error)
}

type RegisterInput struct {
	Email    string
	Password string
	Fullname string
}

// AuthResult is a signed-in principal plus the token that identifies them.
type AuthResult struct {
	User  *domain.User
	Token string
}

type AuthUsecase struct {
	users      repository.UserRepository
	tokens     TokenIssuer
	email      email.Sender
	clientURL  string
	bcryptCost int
	logger     *slog.Logger
}

type AuthOption func(*AuthUsecase)

// WithBcryptCost lowers the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AuthOption {
	return func(u *AuthUsecase) { u.bcryptCost = cost }
}

func NewAuthUsecase(users repository.UserRepository, tokens TokenIssuer, emailSender email.Sender, clientURL string, logger *slog.Logger, opts ...AuthOption) *AuthUsecase {
	u := &AuthUsecase{
		users:      users,
		tokens:     tokens,
		email:      emailSender,
		clientURL:  clientURL,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger.With("component", "auth_usecase"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Register creates a password user and signs them in. Returns
// domain.ErrEmailTaken when the address is already registered.
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	addr := normalizeEmail(in.Email)

	if _, err := u.users.FindByEmail(ctx, addr); err == nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.bcryptCost)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := u.users.Create(ctx, &domain.User{
		Email:        addr,
		PasswordHash: string(hash),
		Fullname:     strings.TrimSpace(in.Fullname),
		Role:         domain.RoleUser,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			metrics.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
			return nil, domain.ErrEmailTaken
		}
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("create user: %w", err)
	}

	u.sendWelcome(ctx, user)

	res, err := u.signIn(user)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, err
	}
	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	return res, nil
}

// Login checks the password. Unknown email, wrong password and Google-only
// accounts all return domain.ErrInvalidLogin.
func (u *AuthUsecase) Login(ctx context.Context, addr, password string) (*AuthResult, error) {
	user, err := u.users.FindByEmail(ctx, normalizeEmail(addr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
			return nil, domain.ErrInvalidLogin
		}
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
		return nil, domain.ErrInvalidLogin
	}

	res, err := u.signIn(user)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return nil, err
	}
	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return res, nil
}

// Me returns the principal with the given id.
func (u *AuthUsecase) Me(ctx context.Context, id string) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// LoginExternal signs in a user vouched for by an identity provider. Lookup
// order is provider subject, then email (linking the subject on a match),
// and a new account is created when neither matches.
func (u *AuthUsecase) LoginExternal(ctx context.Context, id domain.ExternalIdentity) (*AuthResult, error) {
	user, err := u.resolveExternal(ctx, id)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("external", "error").Inc()
		return nil, err
	}

	res, err := u.signIn(user)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("external", "error").Inc()
		return nil, err
	}
	metrics.AuthAttemptsTotal.WithLabelValues("external", "success").Inc()
	return res, nil
}

func (u *AuthUsecase) resolveExternal(ctx context.Context, id domain.ExternalIdentity) (*domain.User, error) {
	if id.Subject == "" {
		return nil, errors.New("external identity without subject")
	}

	user, err := u.users.FindByGoogleID(ctx, id.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("find user by google id: %w", err)
	}

	addr := normalizeEmail(id.Email)
	if addr == "" {
		return nil, errors.New("external identity without email")
	}

	user, err = u.users.FindByEmail(ctx, addr)
	switch {
	case err == nil:
		if err := u.users.LinkGoogleID(ctx, user.ID, id.Subject); err != nil {
			return nil, fmt.Errorf("link google id: %w", err)
		}
		subject := id.Subject
		user.GoogleID = &subject
		return user, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	subject := id.Subject
	user, err = u.users.Create(ctx, &domain.User{
		Email:    addr,
		Fullname: strings.TrimSpace(id.Name),
		Role:     domain.RoleUser,
		GoogleID: &subject,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	u.sendWelcome(ctx, user)
	return user, nil
}

func (u *AuthUsecase) signIn(user *domain.User) (*AuthResult, error) {
	tok, err := u.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	metrics.TokensIssuedTotal.Inc()
	return &AuthResult{User: user, Token: tok}, nil
}

// sendWelcome never fails the registration; a lost welcome email is logged.
func (u *AuthUsecase) sendWelcome(ctx context.Context, user *domain.User) {
	subject, body := email.Welcome(user.Fullname, u.clientURL)
	if err := u.email.Send(ctx, user.Email, subject, body); err != nil {
		u.logger.WarnContext(ctx, "send welcome email", "user_id", user.ID, "error", err)
	}
}
