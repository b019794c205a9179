package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/model"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testConfig() *config.Config {
	return &config.Config{
		ExplanationTTL:           time.Hour,
		ExplanationCentsPerToken: 0.01,
		LLM:                      config.LLMConfig{Timeout: 5 * time.Second},
		AIQuota:                  config.DefaultQuota(),
	}
}

func derivativeQuestion() *model.Question {
	return &model.Question{
		ID:        "q-derivative",
		VersionID: "v1",
		Stem:      "What is the derivative of x^2?",
		Choices: []model.Choice{
			{ID: "A", Label: "A", Text: "2x"},
			{ID: "B", Label: "B", Text: "x"},
			{ID: "C", Label: "C", Text: "x^2"},
		},
		CorrectChoiceIDs: []string{"A"},
		Difficulty:       model.DifficultyEasy,
		Subject:          "Calculus",
	}
}

func validExplanationJSON() json.RawMessage {
	return json.RawMessage(`{
		"summary": "The power rule gives 2x.",
		"keyPoints": ["d/dx x^n = n x^(n-1)"],
		"steps": ["Bring the exponent down", "Reduce the exponent by one"],
		"relatedConcepts": ["power rule"],
		"confidence": "high"
	}`)
}

type memoryAuditStore struct {
	mu      sync.Mutex
	records []*model.ExplanationRecord
	err     error
}

func (s *memoryAuditStore) Save(_ context.Context, rec *model.ExplanationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memoryAuditStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (*model.ExplanationDocument, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingCache) Set(context.Context, string, *model.ExplanationDocument, time.Duration) error {
	return errors.New("connection refused")
}

func nopLogger() zerolog.Logger { return zerolog.Nop() }

func boolPtr(v bool) *bool { return &v }
