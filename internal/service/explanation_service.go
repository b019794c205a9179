package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/apperror"
	"github.com/stemsi/exstem-practice/internal/metrics"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/repository"
)

// ExplanationDeps are the swappable capabilities of the explanation
// orchestrator. They are fixed at construction.
type ExplanationDeps struct {
	// FetchQuestion returns nil, nil when the question does not exist.
	FetchQuestion func(ctx context.Context, questionID string) (*model.Question, error)
	Generate      func(ctx context.Context, q *model.Question, selectedChoiceIDs []string, userID, locale string) (*model.ExplanationDocument, error)
	// RateLimit consumes one request for identity and returns the remaining
	// quota, or a *apperror.RateLimitError.
	RateLimit func(ctx context.Context, identity string) (int, error)
}

// NewExplanationDeps wires the production collaborators.
func NewExplanationDeps(catalog *repository.CatalogRepository, generator *ExplanationGenerator, limiter *RateLimitService) ExplanationDeps {
	return ExplanationDeps{
		FetchQuestion: func(ctx context.Context, questionID string) (*model.Question, error) {
			q, err := catalog.GetQuestion(ctx, questionID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil
			}
			return q, err
		},
		Generate:  generator.Generate,
		RateLimit: limiter.Limit,
	}
}

// AnalyticsTracker records product analytics events.
type AnalyticsTracker interface {
	Track(ctx context.Context, event model.AnalyticsEvent) error
}

// ExplanationInput is one explanation request.
type ExplanationInput struct {
	QuestionID        string
	SelectedChoiceIDs []string
	UserID            string
	Locale            string
	// RateLimitIdentity overrides UserID as the quota key when set.
	RateLimitIdentity string
}

// ExplanationService orchestrates quota, lookup, generation and analytics.
type ExplanationService struct {
	deps      ExplanationDeps
	analytics AnalyticsTracker
	log       zerolog.Logger
}

// NewExplanationService creates a new ExplanationService. analytics may be nil.
func NewExplanationService(deps ExplanationDeps, analytics AnalyticsTracker, log zerolog.Logger) *ExplanationService {
	return &ExplanationService{
		deps:      deps,
		analytics: analytics,
		log:       log.With().Str("component", "explanation_service").Logger(),
	}
}

// RequestExplanation returns an explanation for the learner's answer.
func (s *ExplanationService) RequestExplanation(ctx context.Context, in ExplanationInput) (*model.ExplanationResponse, error) {
	resp, err := s.requestExplanation(ctx, in)
	metrics.ExplanationRequests.WithLabelValues(explanationOutcome(err)).Inc()
	return resp, err
}

func (s *ExplanationService) requestExplanation(ctx context.Context, in ExplanationInput) (*model.ExplanationResponse, error) {
	switch {
	case s.deps.RateLimit == nil:
		return nil, apperror.Dependency("rate limiter", nil)
	case s.deps.FetchQuestion == nil:
		return nil, apperror.Dependency("question lookup", nil)
	case s.deps.Generate == nil:
		return nil, apperror.Dependency("explanation generator", nil)
	}

	if in.QuestionID == "" {
		return nil, apperror.Invalid("questionId", "is required")
	}
	if len(in.SelectedChoiceIDs) == 0 {
		return nil, apperror.Invalid("selectedChoiceIds", "must not be empty")
	}

	identity := in.RateLimitIdentity
	if identity == "" {
		identity = in.UserID
	}
	if identity == "" {
		return nil, apperror.Invalid("identity", "a user or rate limit identity is required")
	}

	remaining, err := s.deps.RateLimit(ctx, identity)
	if err != nil {
		return nil, err
	}

	q, err := s.deps.FetchQuestion(ctx, in.QuestionID)
	if err != nil {
		return nil, apperror.Dependency("question lookup", err)
	}
	if q == nil {
		return nil, apperror.NotFound("question", in.QuestionID)
	}
	if err := checkChoices(q, in.SelectedChoiceIDs); err != nil {
		return nil, err
	}

	locale := in.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	doc, err := s.deps.Generate(ctx, q, in.SelectedChoiceIDs, in.UserID, locale)
	if err != nil {
		return nil, err
	}

	s.track(ctx, in, remaining, locale)
	return &model.ExplanationResponse{Explanation: *doc, RateLimitRemaining: remaining}, nil
}

// track emits the analytics event. Failures never reach the caller.
func (s *ExplanationService) track(ctx context.Context, in ExplanationInput, remaining int, locale string) {
	if s.analytics == nil {
		return
	}
	event := model.AnalyticsEvent{
		ID:     uuid.New(),
		Name:   model.EventExplanationRequested,
		UserID: in.UserID,
		Properties: map[string]any{
			"questionId":         in.QuestionID,
			"rateLimitRemaining": remaining,
			"locale":             locale,
		},
		OccurredAt: time.Now(),
	}
	if err := s.analytics.Track(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("question_id", in.QuestionID).Msg("Failed to track explanation event")
	}
}

func checkChoices(q *model.Question, selected []string) error {
	known := make(map[string]struct{}, len(q.Choices))
	for _, c := range q.Choices {
		known[c.ID] = struct{}{}
	}
	for _, id := range selected {
		if _, ok := known[id]; !ok {
			return apperror.Invalid("selectedChoiceIds", "choice %q does not belong to question %q", id, q.ID)
		}
	}
	return nil
}

func explanationOutcome(err error) string {
	var (
		rl  *apperror.RateLimitError
		nf  *apperror.NotFoundError
		val *apperror.ValidationError
		dep *apperror.DependencyError
	)
	switch {
	case err == nil:
		return "served"
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &val):
		return "invalid"
	case errors.As(err, &dep):
		return "dependency_error"
	default:
		return "error"
	}
}
