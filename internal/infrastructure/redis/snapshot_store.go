package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// SnapshotStore keeps each planner snapshot as a plain string value,
// the same shape the browser kept under its local-storage key.
type SnapshotStore struct {
	client *goredis.Client
	prefix string
}

func NewSnapshotStore(client *goredis.Client, prefix string) *SnapshotStore {
	return &SnapshotStore{client: client, prefix: prefix}
}

// Load returns nil, nil when key has never been written.
func (s *SnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return data, nil
}

func (s *SnapshotStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
