// Package snapshot picks the planner snapshot store named by SNAPSHOT_BACKEND.
package snapshot

import (
	"errors"
	"fmt"

	"github.com/ankitojha2705/marketmind/internal/infrastructure/postgres"
	"github.com/ankitojha2705/marketmind/internal/infrastructure/redis"
	"github.com/ankitojha2705/marketmind/internal/planner"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"

	redisPrefix = "marketmind:"
)

var ErrNoRedis = errors.New("redis backend selected without REDIS_ADDR")

// Open returns the store for backend. An empty backend means postgres.
func Open(backend string, pool *pgxpool.Pool, client *goredis.Client) (planner.SnapshotStore, error) {
	switch backend {
	case BackendPostgres, "":
		if pool == nil {
			return nil, errors.New("postgres backend selected without a pool")
		}
		return postgres.NewSnapshotRepository(pool), nil
	case BackendRedis:
		if client == nil {
			return nil, ErrNoRedis
		}
		return redis.NewSnapshotStore(client, redisPrefix), nil
	case BackendMemory:
		return planner.NewMemorySnapshots(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", backend)
	}
}
