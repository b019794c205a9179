package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/metrics"
	"github.com/stemsi/exstem-practice/internal/model"
)

// AnalyticsService enqueues analytics events for the analytics worker.
type AnalyticsService struct {
	rdb *redis.Client
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(rdb *redis.Client) *AnalyticsService {
	return &AnalyticsService{rdb: rdb}
}

// Track pushes event onto the analytics queue.
func (s *AnalyticsService) Track(ctx context.Context, event model.AnalyticsEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.AnalyticsEventsQueue, raw).Err(); err != nil {
		metrics.AnalyticsEvents.WithLabelValues("dropped").Inc()
		return fmt.Errorf("enqueue event: %w", err)
	}
	metrics.AnalyticsEvents.WithLabelValues("queued").Inc()
	return nil
}
