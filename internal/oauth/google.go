package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	ProviderGoogle = "google"

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Provider is an external identity provider using the authorization code flow.
type Provider interface {
	// AuthCodeURL is where the browser is sent to sign in. state comes back
	// unchanged on the callback.
	AuthCodeURL(state string) string
	// Exchange trades the callback code for the signed-in identity.
	Exchange(ctx context.Context, code string) (domain.ExternalIdentity, error)
}

type Google struct {
	config      *oauth2.Config
	userInfoURL string
}

type GoogleOption func(*Google)

// WithEndpoints points the provider at other servers; used by tests.
func WithEndpoints(endpoint oauth2.Endpoint, userInfoURL string) GoogleOption {
	return func(g *Google) {
		g.config.Endpoint = endpoint
		g.userInfoURL = userInfoURL
	}
}

func NewGoogle(clientID, clientSecret, callbackURL string, opts ...GoogleOption) *Google {
	g := &Google{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "profile", "email"},
		},
		userInfoURL: googleUserInfoURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Google) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state)
}

func (g *Google) Exchange(ctx context.Context, code string) (domain.ExternalIdentity, error) {
	if code == "" {
		return domain.ExternalIdentity{}, errors.New("missing authorization code")
	}

	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.config.Client(ctx, tok).Do(req)
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.ExternalIdentity{}, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var profile struct {
		Sub           string `json:"sub"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if profile.Sub == "" {
		return domain.ExternalIdentity{}, errors.New("userinfo without subject")
	}
	// An unverified address must not be linked to an existing account.
	if profile.Email == "" || !profile.EmailVerified {
		return domain.ExternalIdentity{}, errors.New("google account has no verified email")
	}

	return domain.ExternalIdentity{
		Provider: ProviderGoogle,
		Subject:  profile.Sub,
		Email:    profile.Email,
		Name:     profile.Name,
	}, nil
}
