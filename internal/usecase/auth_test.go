package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/ankitojha2705/marketmind/internal/usecase"
	"golang.org/x/crypto/bcrypt"
)

// ---- fakes ----

type fakeUserRepo struct {
	create         func(ctx context.Context, u *domain.User) (*domain.User, error)
	findByID       func(ctx context.Context, id string) (*domain.User, error)
	findByEmail    func(ctx context.Context, email string) (*domain.User, error)
	findByGoogleID func(ctx context.Context, googleID string) (*domain.User, error)
	linkGoogleID   func(ctx context.Context, userID, googleID string) error
}

func (r *fakeUserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	return r.create(ctx, u)
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findByID(ctx, id)
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByEmail(ctx, email)
}

func (r *fakeUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return r.findByGoogleID(ctx, googleID)
}

func (r *fakeUserRepo) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	return r.linkGoogleID(ctx, userID, googleID)
}

type fakeTokens struct {
	issue func(id string) (string, error)
}

func (f *fakeTokens) Issue(id string) (string, error) { return f.issue(id) }

type fakeEmailSender struct {
	sent []string
	err  error
}

func (s *fakeEmailSender) Send(_ context.Context, to, _, _ string) error {
	s.sent = append(s.sent, to)
	return s.err
}

// ---- helpers ----

func notFound(context.Context, string) (*domain.User, error) { return nil, domain.ErrUserNotFound }

func tokenFor(id string) (string, error) { return "tok-" + id, nil }

func newUsecase(repo *fakeUserRepo, sender *fakeEmailSender) *usecase.AuthUsecase {
	return usecase.NewAuthUsecase(
		repo,
		&fakeTokens{issue: tokenFor},
		sender,
		"http://localhost:5173",
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		usecase.WithBcryptCost(bcrypt.MinCost),
	)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

// ---- Register ----

func TestRegister_CreatesUserAndIssuesToken(t *testing.T) {
	var created *domain.User
	repo := &fakeUserRepo{
		findByEmail: notFound,
		create: func(_ context.Context, u *domain.User) (*domain.User, error) {
			created = u
			out := *u
			out.ID = "user-1"
			return &out, nil
		},
	}
	sender := &fakeEmailSender{}

	res, err := newUsecase(repo, sender).Register(context.Background(), usecase.RegisterInput{
		Email:    "  Ada@Example.COM ",
		Password: "correct horse",
		Fullname: " Ada Lovelace ",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if res.Token != "tok-user-1" {
		t.Errorf("token = %q", res.Token)
	}
	if created.Email != "ada@example.com" {
		t.Errorf("email not normalized: %q", created.Email)
	}
	if created.Fullname != "Ada Lovelace" {
		t.Errorf("fullname = %q", created.Fullname)
	}
	if created.Role != domain.RoleUser {
		t.Errorf("role = %q", created.Role)
	}
	if created.PasswordHash == "correct horse" {
		t.Fatal("password stored in plain text")
	}
	if bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("correct horse")) != nil {
		t.Error("stored hash does not match password")
	}
	if len(sender.sent) != 1 || sender.sent[0] != "ada@example.com" {
		t.Errorf("welcome email sent to %v", sender.sent)
	}
}

func TestRegister_ExistingEmail(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: func(context.Context, string) (*domain.User, error) {
			return &domain.User{ID: "user-1"}, nil
		},
		create: func(context.Context, *domain.User) (*domain.User, error) {
			t.Fatal("create should not be called")
			return nil, nil
		},
	}

	_, err := newUsecase(repo, &fakeEmailSender{}).Register(context.Background(), usecase.RegisterInput{
		Email: "a@example.com", Password: "password1", Fullname: "A",
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegister_CreateRaceReportsEmailTaken(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: notFound,
		create: func(context.Context, *domain.User) (*domain.User, error) {
			return nil, domain.ErrEmailTaken
		},
	}

	_, err := newUsecase(repo, &fakeEmailSender{}).Register(context.Background(), usecase.RegisterInput{
		Email: "a@example.com", Password: "password1", Fullname: "A",
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegister_WelcomeEmailFailureIsIgnored(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: notFound,
		create: func(_ context.Context, u *domain.User) (*domain.User, error) {
			out := *u
			out.ID = "user-1"
			return &out, nil
		},
	}
	sender := &fakeEmailSender{err: errors.New("smtp down")}

	res, err := newUsecase(repo, sender).Register(context.Background(), usecase.RegisterInput{
		Email: "a@example.com", Password: "password1", Fullname: "A",
	})
	if err != nil {
		t.Fatalf("register should succeed despite email failure: %v", err)
	}
	if res.User.ID != "user-1" {
		t.Errorf("user = %+v", res.User)
	}
}

func TestRegister_RepositoryError(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: func(context.Context, string) (*domain.User, error) {
			return nil, errors.New("connection reset")
		},
	}

	_, err := newUsecase(repo, &fakeEmailSender{}).Register(context.Background(), usecase.RegisterInput{
		Email: "a@example.com", Password: "password1", Fullname: "A",
	})
	if err == nil || errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

// ---- Login ----

func TestLogin_Success(t *testing.T) {
	var lookedUp string
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, addr string) (*domain.User, error) {
			lookedUp = addr
			return &domain.User{ID: "user-1", Email: addr, PasswordHash: hashed(t, "password1")}, nil
		},
	}

	res, err := newUsecase(repo, &fakeEmailSender{}).Login(context.Background(), "A@Example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if lookedUp != "a@example.com" {
		t.Errorf("looked up %q", lookedUp)
	}
	if res.Token != "tok-user-1" {
		t.Errorf("token = %q", res.Token)
	}
}

func TestLogin_Rejections(t *testing.T) {
	tests := []struct {
		name string
		user *domain.User
	}{
		{"unknown email", nil},
		{"wrong password", &domain.User{ID: "user-1", PasswordHash: hashed(t, "other-password")}},
		{"google only account", &domain.User{ID: "user-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUserRepo{
				findByEmail: func(context.Context, string) (*domain.User, error) {
					if tt.user == nil {
						return nil, domain.ErrUserNotFound
					}
					return tt.user, nil
				},
			}
			_, err := newUsecase(repo, &fakeEmailSender{}).Login(context.Background(), "a@example.com", "password1")
			if !errors.Is(err, domain.ErrInvalidLogin) {
				t.Fatalf("expected ErrInvalidLogin, got %v", err)
			}
		})
	}
}

func TestLogin_TokenError(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: func(context.Context, string) (*domain.User, error) {
			return &domain.User{ID: "user-1", PasswordHash: hashed(t, "password1")}, nil
		},
	}
	uc := usecase.NewAuthUsecase(repo,
		&fakeTokens{issue: func(string) (string, error) { return "", errors.New("boom") }},
		&fakeEmailSender{}, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	if _, err := uc.Login(context.Background(), "a@example.com", "password1"); err == nil {
		t.Fatal("expected error")
	}
}

// ---- Me ----

func TestMe(t *testing.T) {
	repo := &fakeUserRepo{findByID: notFound}
	_, err := newUsecase(repo, &fakeEmailSender{}).Me(context.Background(), "missing")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

// ---- LoginExternal ----

var googleIdentity = domain.ExternalIdentity{
	Provider: "google",
	Subject:  "g-123",
	Email:    "Ada@Example.com",
	Name:     "Ada",
}

func TestLoginExternal_KnownSubject(t *testing.T) {
	repo := &fakeUserRepo{
		findByGoogleID: func(_ context.Context, id string) (*domain.User, error) {
			if id != "g-123" {
				t.Fatalf("looked up %q", id)
			}
			return &domain.User{ID: "user-1"}, nil
		},
	}

	res, err := newUsecase(repo, &fakeEmailSender{}).LoginExternal(context.Background(), googleIdentity)
	if err != nil {
		t.Fatalf("login external: %v", err)
	}
	if res.User.ID != "user-1" || res.Token != "tok-user-1" {
		t.Errorf("result = %+v", res)
	}
}

func TestLoginExternal_LinksExistingEmail(t *testing.T) {
	var linkedUser, linkedSubject string
	repo := &fakeUserRepo{
		findByGoogleID: notFound,
		findByEmail: func(_ context.Context, addr string) (*domain.User, error) {
			if addr != "ada@example.com" {
				t.Fatalf("looked up %q", addr)
			}
			return &domain.User{ID: "user-1", Email: addr}, nil
		},
		linkGoogleID: func(_ context.Context, userID, googleID string) error {
			linkedUser, linkedSubject = userID, googleID
			return nil
		},
	}

	res, err := newUsecase(repo, &fakeEmailSender{}).LoginExternal(context.Background(), googleIdentity)
	if err != nil {
		t.Fatalf("login external: %v", err)
	}
	if linkedUser != "user-1" || linkedSubject != "g-123" {
		t.Errorf("linked %q -> %q", linkedUser, linkedSubject)
	}
	if res.User.GoogleID == nil || *res.User.GoogleID != "g-123" {
		t.Errorf("google id not set on returned user")
	}
}

func TestLoginExternal_CreatesNewUser(t *testing.T) {
	var created *domain.User
	repo := &fakeUserRepo{
		findByGoogleID: notFound,
		findByEmail:    notFound,
		create: func(_ context.Context, u *domain.User) (*domain.User, error) {
			created = u
			out := *u
			out.ID = "user-9"
			return &out, nil
		},
	}
	sender := &fakeEmailSender{}

	res, err := newUsecase(repo, sender).LoginExternal(context.Background(), googleIdentity)
	if err != nil {
		t.Fatalf("login external: %v", err)
	}
	if created.PasswordHash != "" {
		t.Error("external user should have no password")
	}
	if created.GoogleID == nil || *created.GoogleID != "g-123" {
		t.Error("google id not stored")
	}
	if created.Email != "ada@example.com" || created.Fullname != "Ada" {
		t.Errorf("created = %+v", created)
	}
	if res.Token != "tok-user-9" {
		t.Errorf("token = %q", res.Token)
	}
	if len(sender.sent) != 1 {
		t.Errorf("expected one welcome email, got %d", len(sender.sent))
	}
}

func TestLoginExternal_RequiresSubject(t *testing.T) {
	id := googleIdentity
	id.Subject = ""
	if _, err := newUsecase(&fakeUserRepo{}, &fakeEmailSender{}).LoginExternal(context.Background(), id); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoginExternal_LinkFailure(t *testing.T) {
	repo := &fakeUserRepo{
		findByGoogleID: notFound,
		findByEmail: func(context.Context, string) (*domain.User, error) {
			return &domain.User{ID: "user-1"}, nil
		},
		linkGoogleID: func(context.Context, string, string) error { return errors.New("db down") },
	}
	if _, err := newUsecase(repo, &fakeEmailSender{}).LoginExternal(context.Background(), googleIdentity); err == nil {
		t.Fatal("expected error")
	}
}
