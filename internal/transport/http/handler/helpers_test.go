package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/ankitojha2705/marketmind/internal/planner"
	"github.com/ankitojha2705/marketmind/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// identityVerifier treats the bearer token as the principal id.
type identityVerifier struct{}

func (identityVerifier) Verify(raw string) (string, error) {
	if raw == "" {
		return "", domain.ErrInvalidCredential
	}
	return raw, nil
}

type fakeUsers struct {
	findByID func(ctx context.Context, id string) (*domain.User, error)
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return f.findByID(ctx, id)
}

// usersByID returns every id as a user, with role admin for ids starting
// with "admin".
func usersByID() *fakeUsers {
	return &fakeUsers{findByID: func(_ context.Context, id string) (*domain.User, error) {
		if strings.HasPrefix(id, "ghost") {
			return nil, domain.ErrUserNotFound
		}
		role := domain.RoleUser
		if strings.HasPrefix(id, "admin") {
			role = domain.RoleAdmin
		}
		return &domain.User{ID: id, Email: id + "@example.com", Fullname: "User " + id, Role: role}, nil
	}}
}

func testAuth() gin.HandlerFunc {
	return middleware.Auth(identityVerifier{}, usersByID(), discard())
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func doJSON(r http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func storeFor(t *testing.T, reg *planner.Registry, userID string) *planner.Store {
	t.Helper()
	s, err := reg.For(context.Background(), userID)
	if err != nil {
		t.Fatalf("load planner for %s: %v", userID, err)
	}
	return s
}

// unavailableSnapshots fails every read and write.
type unavailableSnapshots struct{}

func (unavailableSnapshots) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("snapshot store unavailable")
}

func (unavailableSnapshots) Save(context.Context, string, []byte) error {
	return errors.New("snapshot store unavailable")
}
