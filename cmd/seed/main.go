// seed creates an admin user and a sample campaign in the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/ankitojha2705/marketmind/internal/infrastructure/postgres"
	"github.com/ankitojha2705/marketmind/internal/infrastructure/redis"
	"github.com/ankitojha2705/marketmind/internal/infrastructure/snapshot"
	"github.com/ankitojha2705/marketmind/internal/planner"
	"github.com/ankitojha2705/marketmind/migrations"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	seedEmail    = "admin@marketmind.local"
	seedPassword = "marketmind-admin"
	seedName     = "Seed Admin"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, migrations.FS); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	users := postgres.NewUserRepository(pool)
	user, created, err := upsertAdmin(ctx, users)
	if err != nil {
		log.Fatalf("upsert admin: %v", err)
	}

	backend := os.Getenv("SNAPSHOT_BACKEND")
	if backend == snapshot.BackendMemory {
		log.Fatal("SNAPSHOT_BACKEND=memory keeps planner state inside the server process; nothing to seed")
	}
	var redisClient *goredis.Client
	if backend == snapshot.BackendRedis {
		redisClient, err = redis.NewClient(ctx, os.Getenv("REDIS_ADDR"), os.Getenv("REDIS_PASSWORD"))
		if err != nil {
			log.Fatalf("redis connect: %v", err)
		}
		defer redisClient.Close()
	}
	snapshots, err := snapshot.Open(backend, pool, redisClient)
	if err != nil {
		log.Fatalf("snapshots: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := planner.NewRegistry(snapshots, logger).For(ctx, user.ID)
	if err != nil {
		log.Fatalf("load planner: %v", err)
	}

	var campaignID string
	if len(store.Campaigns()) == 0 {
		res := store.CreateCampaign(ctx, planner.CreateCampaignInput{
			Name:      "Summer Sale",
			Brief:     "20% off",
			Platforms: []string{"instagram", "tiktok", "facebook"},
		})
		campaignID = res.Campaign.ID

		tomorrow := time.Now().UTC().Truncate(24 * time.Hour).Add(33 * time.Hour) // 09:00 UTC tomorrow
		if _, err := store.ScheduleDraft(ctx, res.Drafts[0].ID, tomorrow); err != nil {
			log.Fatalf("schedule draft: %v", err)
		}
	}

	state := store.State()

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  Admin:        %s (created: %t)\n", seedEmail, created)
	fmt.Printf("  Password:     %s\n", seedPassword)
	fmt.Printf("  User ID:      %s\n", user.ID)
	if campaignID != "" {
		fmt.Printf("  Campaign ID:  %s\n", campaignID)
	} else {
		fmt.Println("  Campaign:     skipped, planner already has campaigns")
	}
	fmt.Printf("  Planner:      %d campaigns, %d drafts\n", len(state.Campaigns), len(state.Drafts))
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1: log in as the seed admin:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:5000/api/auth/login \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", seedEmail, seedPassword)
	fmt.Println("    # → {\"success\":true,\"token\":\"eyJ...\"}")
	fmt.Println()
	fmt.Println("  Step 2: read the planner:")
	fmt.Println()
	fmt.Println("    export JWT=eyJ...")
	fmt.Println("    curl -s http://localhost:5000/api/planner/drafts?status=scheduled -H \"Authorization: Bearer $JWT\"")
	fmt.Println()
	fmt.Println("  Step 3: watch live updates in another terminal, then create a campaign:")
	fmt.Println()
	fmt.Println("    curl -N http://localhost:5000/api/planner/events -H \"Authorization: Bearer $JWT\"")
}

// upsertAdmin creates the seed admin, or returns the existing account so
// re-runs are idempotent.
func upsertAdmin(ctx context.Context, users *postgres.UserRepository) (*domain.User, bool, error) {
	existing, err := users.FindByEmail(ctx, seedEmail)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}
	user, err := users.Create(ctx, &domain.User{
		Email:        seedEmail,
		PasswordHash: string(hash),
		Fullname:     seedName,
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
