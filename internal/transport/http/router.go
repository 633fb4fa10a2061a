package httptransport

import (
	"log/slog"
	"time"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/ankitojha2705/marketmind/internal/transport/http/handler"
	"github.com/ankitojha2705/marketmind/internal/transport/http/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

const eventsPath = "/api/planner/events"

type Deps struct {
	Logger    *slog.Logger
	ClientURL string
	HSTS      bool // set when served over TLS

	Tokens       middleware.TokenVerifier
	Users        middleware.UserFinder
	LoginLimiter middleware.Limiter // nil disables rate limiting

	Auth    *handler.AuthHandler
	OAuth   *handler.OAuthHandler // nil when Google sign-in is not configured
	Planner *handler.PlannerHandler
	Admin   *handler.AdminHandler
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(d.HSTS))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{d.ClientURL},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(sloggin.New(d.Logger))
	r.Use(middleware.Metrics(eventsPath))

	authMW := middleware.Auth(d.Tokens, d.Users, d.Logger)

	auth := r.Group("/api/auth")
	auth.POST("/register", middleware.RateLimit(d.LoginLimiter, "register"), d.Auth.Register)
	auth.POST("/login", middleware.RateLimit(d.LoginLimiter, "login"), d.Auth.Login)
	auth.GET("/me", authMW, d.Auth.Me)
	auth.GET("/logout", authMW, d.Auth.Logout)
	if d.OAuth != nil {
		auth.GET("/google", d.OAuth.Start)
		auth.GET("/google/callback", d.OAuth.Callback)
	}

	planner := r.Group("/api/planner", authMW)
	planner.GET("/state", d.Planner.State)
	planner.GET("/campaigns", d.Planner.ListCampaigns)
	planner.POST("/campaigns", d.Planner.CreateCampaign)
	planner.GET("/drafts", d.Planner.ListDrafts)
	planner.POST("/drafts/:id/schedule", d.Planner.Schedule)
	planner.DELETE("/drafts/:id/schedule", d.Planner.Unschedule)
	planner.POST("/reset", d.Planner.Reset)
	planner.GET("/events", d.Planner.Events)

	admin := r.Group("/api/admin", authMW, middleware.RequireRole(domain.RoleAdmin))
	admin.POST("/planner/:userID/reset", d.Admin.ResetPlanner)

	return r
}
