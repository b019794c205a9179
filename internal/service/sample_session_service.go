package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/apperror"
	"github.com/stemsi/exstem-practice/internal/metrics"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/practice"
	"github.com/stemsi/exstem-practice/internal/repository"
)

// SnapshotNamespaces hands out one snapshot storage per client.
type SnapshotNamespaces interface {
	ForClient(clientID string) practice.Storage
}

// SnapshotNamespaceFunc adapts a function to SnapshotNamespaces.
type SnapshotNamespaceFunc func(clientID string) practice.Storage

func (f SnapshotNamespaceFunc) ForClient(clientID string) practice.Storage { return f(clientID) }

// RedisSnapshotNamespaces exposes a SnapshotRepository as SnapshotNamespaces.
func RedisSnapshotNamespaces(repo *repository.SnapshotRepository) SnapshotNamespaces {
	return SnapshotNamespaceFunc(func(clientID string) practice.Storage {
		return repo.ForClient(clientID)
	})
}

// SampleSessionService hosts client-local sample sessions. The session is
// rebuilt from the catalog on every call and reconciled with the client's
// stored snapshot.
type SampleSessionService struct {
	catalog       CatalogReader
	snapshots     SnapshotNamespaces
	questionLimit int
	now           func() time.Time
	log           zerolog.Logger
}

// NewSampleSessionService creates a new SampleSessionService.
func NewSampleSessionService(catalog CatalogReader, snapshots SnapshotNamespaces, questionLimit int, log zerolog.Logger) *SampleSessionService {
	return &SampleSessionService{
		catalog:       catalog,
		snapshots:     snapshots,
		questionLimit: questionLimit,
		now:           time.Now,
		log:           log.With().Str("component", "sample_session_service").Logger(),
	}
}

// Load returns the merged sample session of clientID on examSlug.
func (s *SampleSessionService) Load(ctx context.Context, clientID, examSlug string) (*model.ClientSession, error) {
	store, err := s.store(clientID, examSlug)
	if err != nil {
		return nil, err
	}
	cs := s.hydrate(ctx, store, examSlug)
	return &cs, nil
}

// Apply runs op on the sample session and persists the resulting snapshot.
func (s *SampleSessionService) Apply(ctx context.Context, clientID, examSlug string, op model.Operation) (*model.ClientSession, error) {
	cs, err := s.apply(ctx, clientID, examSlug, op)
	kind := "unknown"
	if op != nil {
		kind = string(op.Kind())
	}
	metrics.SessionOperations.WithLabelValues(kind, "sample", operationOutcome(err)).Inc()
	return cs, err
}

func (s *SampleSessionService) apply(ctx context.Context, clientID, examSlug string, op model.Operation) (*model.ClientSession, error) {
	store, err := s.store(clientID, examSlug)
	if err != nil {
		return nil, err
	}
	current := s.hydrate(ctx, store, examSlug)

	next, err := practice.Apply(practice.FromViewModel(&current), op)
	if err != nil {
		return nil, err
	}
	cs := practice.ToViewModel(practice.ToWireFormat(next))

	if err := store.Persist(ctx, examSlug, &cs, nil); err != nil {
		return nil, apperror.Dependency("snapshot store", err)
	}
	return &cs, nil
}

// Reset discards the stored snapshot so the next Load starts fresh.
func (s *SampleSessionService) Reset(ctx context.Context, clientID, examSlug string) error {
	store, err := s.store(clientID, examSlug)
	if err != nil {
		return err
	}
	if err := store.Clear(ctx, examSlug); err != nil {
		return apperror.Dependency("snapshot store", err)
	}
	s.log.Debug().Str("client_id", clientID).Str("exam_slug", examSlug).Msg("Sample snapshot cleared")
	return nil
}

func (s *SampleSessionService) store(clientID, examSlug string) (*practice.SnapshotStore, error) {
	if clientID == "" {
		return nil, apperror.Invalid("clientId", "is required")
	}
	if examSlug == "" {
		return nil, apperror.Invalid("slug", "is required")
	}
	return practice.NewSnapshotStore(s.snapshots.ForClient(clientID), s.log).WithClock(s.now), nil
}

// hydrate synthesizes the baseline and merges the stored snapshot into it.
func (s *SampleSessionService) hydrate(ctx context.Context, store *practice.SnapshotStore, examSlug string) model.ClientSession {
	exam, page := s.catalogPage(ctx, examSlug)
	baseline := practice.SynthesizeSampleSession(examSlug, exam, page, s.questionLimit)
	return practice.Merge(baseline, store.Load(ctx, examSlug), s.now())
}

// catalogPage reads the exam and its questions. Any failure degrades to an
// empty page, which yields the built-in sample question.
func (s *SampleSessionService) catalogPage(ctx context.Context, examSlug string) (*model.Exam, []model.Question) {
	if s.catalog == nil {
		return nil, nil
	}

	exam, err := s.catalog.GetExam(ctx, examSlug)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn().Err(err).Str("exam_slug", examSlug).Msg("Catalog unavailable, using built-in sample")
			return nil, nil
		}
		exam = nil
	}

	questions, err := s.catalog.ListQuestionsByExam(ctx, examSlug, s.questionLimit)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_slug", examSlug).Msg("Catalog unavailable, using built-in sample")
		return exam, nil
	}
	return exam, questions
}
