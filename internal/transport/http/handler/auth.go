package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/ankitojha2705/marketmind/internal/transport/http/middleware"
	"github.com/ankitojha2705/marketmind/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.AuthResult, error)
	Login(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	Me(ctx context.Context, id string) (*domain.User, error)
}

// CookieOptions control the token cookie set on sign-in.
type CookieOptions struct {
	MaxAge int // seconds
	Secure bool
}

type AuthHandler struct {
	auth    authUsecaser
	cookies CookieOptions
	logger  *slog.Logger
}

func NewAuthHandler(auth authUsecaser, cookies CookieOptions, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		cookies: cookies,
		logger:  logger.With("component", "auth_handler"),
	}
}

type userResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Fullname  string      `json:"fullname"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Fullname:  u.Fullname,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type registerRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Fullname string `json:"fullname" binding:"required"`
}

var registerRules = map[string]fieldRule{
	"Email":    {"email", "Please include a valid email"},
	"Password": {"password", "Please enter a password with 8 or more characters"},
	"Fullname": {"fullname", "Please include a name"},
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req, registerRules) {
		return
	}

	res, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Fullname: req.Fullname,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			fail(c, http.StatusBadRequest, errUserExists)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "register", "error", err)
		fail(c, http.StatusInternalServerError, errInternalServer)
		return
	}

	h.sendToken(c, http.StatusCreated, res.Token)
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

var loginRules = map[string]fieldRule{
	"Email":    {"email", "Please include a valid email"},
	"Password": {"password", "Password is required"},
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, loginRules) {
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidLogin) {
			fail(c, http.StatusUnauthorized, errInvalidCredentials)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "login", "error", err)
		fail(c, http.StatusInternalServerError, errInternalServer)
		return
	}

	h.sendToken(c, http.StatusOK, res.Token)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)

	user, err := h.auth.Me(c.Request.Context(), current.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			fail(c, http.StatusNotFound, errUserNotFound)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "get current user", "error", err)
		fail(c, http.StatusInternalServerError, errInternalServer)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": toUserResponse(user)})
}

// GET /api/auth/logout
// Tokens are stateless; logging out only clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.cookies.Secure, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

func (h *AuthHandler) sendToken(c *gin.Context, status int, token string) {
	setTokenCookie(c, token, h.cookies)
	c.JSON(status, gin.H{"success": true, "token": token})
}

func setTokenCookie(c *gin.Context, token string, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, opts.MaxAge, "/", "", opts.Secure, true)
}
