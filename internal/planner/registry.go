package planner

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// KeyPrefix namespaces snapshot keys. It is the local-storage key the web
// client used before state moved server side.
const KeyPrefix = "mm_state_v02"

const loadTimeout = 5 * time.Second

// Registry hands out one Store per principal, creating it on first use.
type Registry struct {
	snapshots SnapshotStore
	logger    *slog.Logger
	opts      []Option

	mu     sync.Mutex
	stores map[string]*entry
}

// entry is a store that may still be loading. ready is closed once store or
// err is set.
type entry struct {
	ready chan struct{}
	store *Store
	err   error
}

func NewRegistry(snapshots SnapshotStore, logger *slog.Logger, opts ...Option) *Registry {
	return &Registry{
		snapshots: snapshots,
		logger:    logger,
		opts:      opts,
		stores:    make(map[string]*entry),
	}
}

// SnapshotKey is the persistence key for userID's planner.
func SnapshotKey(userID string) string {
	return KeyPrefix + ":" + userID
}

// For returns userID's store, loading it from the snapshot store the first
// time it is asked for. Concurrent callers share one load. A failed load is
// not cached; the next call tries again.
func (r *Registry) For(ctx context.Context, userID string) (*Store, error) {
	r.mu.Lock()
	e, ok := r.stores[userID]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		r.stores[userID] = e
	}
	r.mu.Unlock()

	if ok {
		select {
		case <-e.ready:
			return e.store, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// The load outlives the request that triggered it, so a caller hanging
	// up cannot fail it for everyone waiting on the same entry.
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
	defer cancel()

	e.store, e.err = NewStore(loadCtx, SnapshotKey(userID), r.snapshots, r.logger, r.opts...)
	if e.err != nil {
		r.logger.WarnContext(ctx, "load planner", "user_id", userID, "error", e.err)
		r.mu.Lock()
		delete(r.stores, userID)
		r.mu.Unlock()
	}
	close(e.ready)
	return e.store, e.err
}
