package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-practice/internal/model"
)

// ExplanationCacheRepository keeps generated explanations in Redis.
type ExplanationCacheRepository struct {
	rdb *redis.Client
}

// NewExplanationCacheRepository creates a new ExplanationCacheRepository.
func NewExplanationCacheRepository(rdb *redis.Client) *ExplanationCacheRepository {
	return &ExplanationCacheRepository{rdb: rdb}
}

// Get returns the cached document for key. ok is false on a miss. An entry
// that no longer decodes is dropped and reported as a miss.
func (r *ExplanationCacheRepository) Get(ctx context.Context, key string) (*model.ExplanationDocument, bool, error) {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var doc model.ExplanationDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		_ = r.rdb.Del(ctx, key).Err()
		return nil, false, nil
	}
	return &doc, true, nil
}

// Set stores doc under key for ttl.
func (r *ExplanationCacheRepository) Set(ctx context.Context, key string, doc *model.ExplanationDocument, ttl time.Duration) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key, data, ttl).Err()
}
