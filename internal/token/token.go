package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL matches the 30 day lifetime the web client has always assumed.
const DefaultTTL = 30 * 24 * time.Hour

type claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 bearer tokens. It keeps no state besides
// the shared secret, so a token can only be invalidated by expiry.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for iat/exp and for validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service signing with secret. A zero ttl is kept as is:
// tokens issued with it are already expired.
func NewService(secret []byte, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) TTL() time.Duration { return s.ttl }

// Issue returns a signed token for principalID.
func (s *Service) Issue(principalID string) (string, error) {
	if principalID == "" {
		return "", errors.New("issue token: empty principal id")
	}

	now := s.now()
	c := claims{
		ID: principalID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded principal id.
// No clock-skew leeway is applied. Every failure wraps
// domain.ErrInvalidCredential.
func (s *Service) Verify(raw string) (string, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidCredential, err)
	}
	if !tok.Valid || c.ID == "" {
		return "", domain.ErrInvalidCredential
	}
	return c.ID, nil
}
