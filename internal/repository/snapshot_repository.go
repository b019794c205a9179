package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-practice/internal/config"
)

// SnapshotRepository stores sample-session snapshots in Redis, namespaced
// per client.
type SnapshotRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotRepository creates a new SnapshotRepository. Snapshots expire
// after ttl of inactivity.
func NewSnapshotRepository(rdb *redis.Client, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{rdb: rdb, ttl: ttl}
}

// ForClient returns a key/value view scoped to one client.
func (r *SnapshotRepository) ForClient(clientID string) *ClientSnapshotStorage {
	return &ClientSnapshotStorage{repo: r, clientID: clientID}
}

// ClientSnapshotStorage is one client's snapshot namespace, keyed by exam slug.
type ClientSnapshotStorage struct {
	repo     *SnapshotRepository
	clientID string
}

func (s *ClientSnapshotStorage) key(examSlug string) string {
	return config.CacheKey.SampleSnapshotKey(s.clientID, examSlug)
}

func (s *ClientSnapshotStorage) GetItem(ctx context.Context, examSlug string) (string, bool, error) {
	v, err := s.repo.rdb.Get(ctx, s.key(examSlug)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// SetItem writes the whole blob in one SET.
func (s *ClientSnapshotStorage) SetItem(ctx context.Context, examSlug, value string) error {
	return s.repo.rdb.Set(ctx, s.key(examSlug), value, s.repo.ttl).Err()
}

func (s *ClientSnapshotStorage) RemoveItem(ctx context.Context, examSlug string) error {
	return s.repo.rdb.Del(ctx, s.key(examSlug)).Err()
}
