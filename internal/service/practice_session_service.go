package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/apperror"
	"github.com/stemsi/exstem-practice/internal/metrics"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/practice"
	"github.com/stemsi/exstem-practice/internal/repository"
)

// CatalogReader is the read side of the content catalog.
type CatalogReader interface {
	GetExam(ctx context.Context, slug string) (*model.Exam, error)
	ListQuestionsByExam(ctx context.Context, examSlug string, limit int) ([]model.Question, error)
}

// SessionStore persists server-authoritative sessions.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	SaveOperation(ctx context.Context, next *model.Session, op model.Operation) error
}

// PracticeSessionService runs practice sessions whose state lives in Postgres.
type PracticeSessionService struct {
	catalog       CatalogReader
	sessions      SessionStore
	questionLimit int
	log           zerolog.Logger
}

// NewPracticeSessionService creates a new PracticeSessionService. Sessions
// take at most questionLimit questions unless the exam names its own target.
func NewPracticeSessionService(catalog CatalogReader, sessions SessionStore, questionLimit int, log zerolog.Logger) *PracticeSessionService {
	return &PracticeSessionService{
		catalog:       catalog,
		sessions:      sessions,
		questionLimit: questionLimit,
		log:           log.With().Str("component", "practice_session_service").Logger(),
	}
}

// Start creates an in-progress session for userID on examSlug.
func (s *PracticeSessionService) Start(ctx context.Context, userID, examSlug string) (*model.StartSessionResult, error) {
	if examSlug == "" {
		return nil, apperror.Invalid("slug", "is required")
	}

	exam, err := s.catalog.GetExam(ctx, examSlug)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Dependency("catalog", err)
	}

	limit := s.questionLimit
	if exam != nil && exam.TargetQuestionCount != nil && *exam.TargetQuestionCount > 0 {
		limit = *exam.TargetQuestionCount
	}
	questions, err := s.catalog.ListQuestionsByExam(ctx, examSlug, limit)
	if err != nil {
		return nil, apperror.Dependency("catalog", err)
	}
	if len(questions) == 0 {
		return nil, apperror.NotFound("exam", examSlug)
	}

	session := &model.Session{
		ExamSlug:  examSlug,
		UserID:    userID,
		Status:    model.SessionStatusInProgress,
		Exam:      exam,
		Questions: make([]model.QuestionAttempt, 0, len(questions)),
	}
	if exam != nil && exam.DurationMinutes != nil && *exam.DurationMinutes > 0 {
		remaining := *exam.DurationMinutes * 60
		session.RemainingSeconds = &remaining
	}
	for i, q := range questions {
		session.Questions = append(session.Questions, model.QuestionAttempt{
			QuestionID:      q.ID,
			OrderIndex:      i,
			SelectedAnswers: []int{},
			Question:        q,
		})
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperror.Dependency("session store", fmt.Errorf("create session: %w", err))
	}

	s.log.Info().
		Str("session_id", session.ID).
		Str("user_id", userID).
		Str("exam_slug", examSlug).
		Int("questions", len(session.Questions)).
		Msg("Practice session started")

	return &model.StartSessionResult{SessionID: session.ID}, nil
}

// Get returns the wire representation of a session owned by userID.
func (s *PracticeSessionService) Get(ctx context.Context, userID, sessionID string) (*model.ApiResponse, error) {
	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	resp := practice.ToWireFormat(session)
	return &resp, nil
}

// View returns the client view model of a session owned by userID.
func (s *PracticeSessionService) View(ctx context.Context, userID, sessionID string) (*model.ClientSession, error) {
	resp, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	cs := practice.ToViewModel(*resp)
	return &cs, nil
}

// Apply runs op against the stored session and persists the fields it changed.
func (s *PracticeSessionService) Apply(ctx context.Context, userID, sessionID string, op model.Operation) (*model.ApiResponse, error) {
	resp, err := s.apply(ctx, userID, sessionID, op)
	kind := "unknown"
	if op != nil {
		kind = string(op.Kind())
	}
	metrics.SessionOperations.WithLabelValues(kind, "server", operationOutcome(err)).Inc()
	return resp, err
}

func (s *PracticeSessionService) apply(ctx context.Context, userID, sessionID string, op model.Operation) (*model.ApiResponse, error) {
	current, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	next, err := practice.Apply(current, op)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.SaveOperation(ctx, next, op); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("session", sessionID)
		}
		return nil, apperror.Dependency("session store", fmt.Errorf("save %s: %w", op.Kind(), err))
	}

	resp := practice.ToWireFormat(next)
	return &resp, nil
}

func (s *PracticeSessionService) load(ctx context.Context, userID, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, apperror.Invalid("id", "is required")
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("session", sessionID)
	}
	if err != nil {
		return nil, apperror.Dependency("session store", err)
	}
	// Another learner's session is indistinguishable from a missing one.
	if session.UserID != userID {
		return nil, apperror.NotFound("session", sessionID)
	}
	practice.Normalize(session)
	return session, nil
}

func operationOutcome(err error) string {
	var (
		val *apperror.ValidationError
		nf  *apperror.NotFoundError
	)
	switch {
	case err == nil:
		return "applied"
	case errors.As(err, &val):
		return "rejected"
	case errors.As(err, &nf):
		return "not_found"
	default:
		return "error"
	}
}
