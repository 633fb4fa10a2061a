package oauth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ankitojha2705/marketmind/internal/oauth"
	"golang.org/x/oauth2"
)

type fakeGoogle struct {
	profile    map[string]any
	userStatus int
	gotCode    string
	gotBearer  string
}

func (f *fakeGoogle) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		f.gotCode = r.PostForm.Get("code")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		f.gotBearer = r.Header.Get("Authorization")
		if f.userStatus != 0 {
			w.WriteHeader(f.userStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newProvider(srv *httptest.Server) *oauth.Google {
	return oauth.NewGoogle("client-1", "secret-1", "http://localhost:5000/api/auth/google/callback",
		oauth.WithEndpoints(oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}, srv.URL+"/userinfo"),
	)
}

func TestGoogle_AuthCodeURL(t *testing.T) {
	g := oauth.NewGoogle("client-1", "secret-1", "http://localhost:5000/cb")

	u, err := url.Parse(g.AuthCodeURL("state-xyz"))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	if u.Host != "accounts.google.com" {
		t.Errorf("host = %q", u.Host)
	}
	if q.Get("state") != "state-xyz" || q.Get("client_id") != "client-1" {
		t.Errorf("query = %v", q)
	}
	if q.Get("redirect_uri") != "http://localhost:5000/cb" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("scope") != "openid profile email" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestGoogle_Exchange(t *testing.T) {
	fake := &fakeGoogle{profile: map[string]any{
		"sub": "g-123", "name": "Ada", "email": "ada@example.com", "email_verified": true,
	}}
	srv := fake.server(t)

	id, err := newProvider(srv).Exchange(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if fake.gotCode != "code-1" {
		t.Errorf("token endpoint got code %q", fake.gotCode)
	}
	if fake.gotBearer != "Bearer access-1" {
		t.Errorf("userinfo got authorization %q", fake.gotBearer)
	}
	if id.Provider != oauth.ProviderGoogle || id.Subject != "g-123" || id.Email != "ada@example.com" || id.Name != "Ada" {
		t.Errorf("identity = %+v", id)
	}
}

func TestGoogle_Exchange_Failures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeGoogle
		code string
	}{
		{"missing code", &fakeGoogle{}, ""},
		{"userinfo error", &fakeGoogle{userStatus: http.StatusUnauthorized}, "code-1"},
		{"no subject", &fakeGoogle{profile: map[string]any{"email": "a@example.com", "email_verified": true}}, "code-1"},
		{"unverified email", &fakeGoogle{profile: map[string]any{"sub": "g-1", "email": "a@example.com"}}, "code-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := tt.fake.server(t)
			if _, err := newProvider(srv).Exchange(context.Background(), tt.code); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
