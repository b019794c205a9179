package model

import (
	"time"

	"github.com/google/uuid"
)

// Analytics event names.
const (
	EventExplanationRequested = "explanation_requested"
)

// AnalyticsEvent is a fire-and-forget product analytics event.
type AnalyticsEvent struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	UserID     string         `json:"user_id"`
	Properties map[string]any `json:"properties"`
	OccurredAt time.Time      `json:"occurred_at"`
}
