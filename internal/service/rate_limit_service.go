package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/apperror"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/metrics"
)

// CounterStore is an atomic fixed-window counter store.
type CounterStore interface {
	// Increment bumps key and returns the new count, setting the expiry to
	// window only when the key is created.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// RateLimitResult is the outcome of one Consume call.
type RateLimitResult struct {
	Allowed           bool  `json:"allowed"`
	Remaining         int   `json:"remaining"`
	RetryAfterSeconds int   `json:"retry_after_seconds"`
	TotalHits         int64 `json:"total_hits"`
}

// QuotaStatus is the combined result of the dual-window AI quota.
type QuotaStatus struct {
	Allowed           bool `json:"allowed"`
	Remaining         int  `json:"remaining"`
	RetryAfterSeconds int  `json:"retry_after_seconds"`
}

// RateLimitService enforces fixed-window quotas. Bursts at a window boundary
// can admit up to twice the limit across the two windows.
type RateLimitService struct {
	store CounterStore
	quota config.QuotaConfig
	log   zerolog.Logger
}

// NewRateLimitService creates a new RateLimitService.
func NewRateLimitService(store CounterStore, quota config.QuotaConfig, log zerolog.Logger) *RateLimitService {
	return &RateLimitService{
		store: store,
		quota: quota,
		log:   log.With().Str("component", "rate_limiter").Logger(),
	}
}

// Consume counts one hit against key. Counter store failures propagate.
func (s *RateLimitService) Consume(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	redisKey := config.CacheKey.RateLimitKey(key)

	count, err := s.store.Increment(ctx, redisKey, window)
	if err != nil {
		return nil, apperror.Dependency("counter store", fmt.Errorf("increment %s: %w", key, err))
	}

	res := &RateLimitResult{
		Allowed:   count <= int64(limit),
		Remaining: max(0, limit-int(count)),
		TotalHits: count,
	}
	if res.Allowed {
		return res, nil
	}

	res.RetryAfterSeconds = int(window / time.Second)
	ttl, err := s.store.TTL(ctx, redisKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("TTL lookup failed, using nominal window")
	} else if ttl > 0 {
		res.RetryAfterSeconds = int((ttl + time.Second - 1) / time.Second)
	}
	return res, nil
}

// CheckAIExplanationQuota consumes one request from both the per-minute and
// per-day windows of identity. Remaining is the smaller of the two, never
// below zero.
func (s *RateLimitService) CheckAIExplanationQuota(ctx context.Context, identity string) (*QuotaStatus, error) {
	minute, err := s.Consume(ctx, config.CacheKey.AIQuotaMinuteKey(identity), s.quota.PerMinute, s.quota.MinuteWindow)
	if err != nil {
		return nil, err
	}
	day, err := s.Consume(ctx, config.CacheKey.AIQuotaDayKey(identity), s.quota.PerDay, s.quota.DayWindow)
	if err != nil {
		return nil, err
	}

	status := &QuotaStatus{
		Allowed:   minute.Allowed && day.Allowed,
		Remaining: max(0, min(minute.Remaining, day.Remaining)),
	}
	if !minute.Allowed {
		metrics.RateLimitDecisions.WithLabelValues("ai_minute", "denied").Inc()
		status.RetryAfterSeconds = minute.RetryAfterSeconds
	}
	if !day.Allowed {
		metrics.RateLimitDecisions.WithLabelValues("ai_day", "denied").Inc()
		status.RetryAfterSeconds = max(status.RetryAfterSeconds, day.RetryAfterSeconds)
	}
	if status.Allowed {
		metrics.RateLimitDecisions.WithLabelValues("ai", "allowed").Inc()
	}
	return status, nil
}

// Limit enforces the AI quota for identity, returning a RateLimitError when
// it is exhausted.
func (s *RateLimitService) Limit(ctx context.Context, identity string) (int, error) {
	status, err := s.CheckAIExplanationQuota(ctx, identity)
	if err != nil {
		return 0, err
	}
	if !status.Allowed {
		return status.Remaining, &apperror.RateLimitError{
			Remaining:  status.Remaining,
			RetryAfter: time.Duration(status.RetryAfterSeconds) * time.Second,
		}
	}
	return status.Remaining, nil
}
