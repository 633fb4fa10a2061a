package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ankitojha2705/marketmind/config"
	"github.com/ankitojha2705/marketmind/internal/email"
	"github.com/ankitojha2705/marketmind/internal/health"
	"github.com/ankitojha2705/marketmind/internal/infrastructure/postgres"
	"github.com/ankitojha2705/marketmind/internal/infrastructure/redis"
	"github.com/ankitojha2705/marketmind/internal/infrastructure/snapshot"
	ctxlog "github.com/ankitojha2705/marketmind/internal/log"
	"github.com/ankitojha2705/marketmind/internal/metrics"
	"github.com/ankitojha2705/marketmind/internal/oauth"
	"github.com/ankitojha2705/marketmind/internal/planner"
	"github.com/ankitojha2705/marketmind/internal/ratelimit"
	"github.com/ankitojha2705/marketmind/internal/token"
	httptransport "github.com/ankitojha2705/marketmind/internal/transport/http"
	"github.com/ankitojha2705/marketmind/internal/transport/http/handler"
	"github.com/ankitojha2705/marketmind/internal/transport/http/middleware"
	"github.com/ankitojha2705/marketmind/internal/usecase"
	"github.com/ankitojha2705/marketmind/migrations"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, migrations.FS); err != nil {
		stop()
		log.Fatalf("migrate: %v", err)
	}

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer).Add("postgres", pool)

	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			stop()
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		checker.Add("redis", redis.Pinger{Client: redisClient})
	}

	// Users
	userRepo := postgres.NewUserRepository(pool)
	tokens := token.NewService([]byte(cfg.JWTSecret), cfg.JWTExpire)
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	authUsecase := usecase.NewAuthUsecase(userRepo, tokens, sender, cfg.ClientURL, logger)

	cookies := handler.CookieOptions{MaxAge: cfg.CookieMaxAge(), Secure: cfg.Env != "local"}

	var oauthHandler *handler.OAuthHandler
	if cfg.GoogleEnabled() {
		google := oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
		oauthHandler = handler.NewOAuthHandler(google, authUsecase, cfg.ClientURL, cookies, logger)
	}

	var loginLimiter middleware.Limiter
	if redisClient != nil {
		limiter, err := ratelimit.NewFixedWindowLimiter(redisClient, "marketmind:ratelimit", cfg.LoginRateLimit, cfg.LoginRateWindow)
		if err != nil {
			stop()
			log.Fatalf("rate limiter: %v", err)
		}
		loginLimiter = limiter
	}

	// Planner
	snapshots, err := snapshot.Open(cfg.SnapshotBackend, pool, redisClient)
	if err != nil {
		stop()
		log.Fatalf("snapshots: %v", err)
	}
	registry := planner.NewRegistry(snapshots, logger)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(httptransport.Deps{
			Logger:       logger,
			ClientURL:    cfg.ClientURL,
			HSTS:         cfg.Env != "local",
			Tokens:       tokens,
			Users:        userRepo,
			LoginLimiter: loginLimiter,
			Auth:         handler.NewAuthHandler(authUsecase, cookies, logger),
			OAuth:        oauthHandler,
			Planner:      handler.NewPlannerHandler(registry, logger),
			Admin:        handler.NewAdminHandler(registry, userRepo, logger),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "snapshot_backend", cfg.SnapshotBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
