package practice

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/model"
)

// Storage is a string key/value store scoped to one client, such as a
// browser's local storage or a per-client Redis namespace.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// SnapshotStore persists in-flight sample sessions, one blob per exam.
type SnapshotStore struct {
	storage Storage
	now     func() time.Time
	log     zerolog.Logger
}

// NewSnapshotStore creates a SnapshotStore backed by storage.
func NewSnapshotStore(storage Storage, log zerolog.Logger) *SnapshotStore {
	return &SnapshotStore{
		storage: storage,
		now:     time.Now,
		log:     log.With().Str("component", "snapshot_store").Logger(),
	}
}

// WithClock overrides the wall clock. Used by tests.
func (s *SnapshotStore) WithClock(now func() time.Time) *SnapshotStore {
	s.now = now
	return s
}

// Persist writes a snapshot of cs. It is a no-op for non-sample sessions.
// overrideRemaining, when set, wins over the session's own timer.
func (s *SnapshotStore) Persist(ctx context.Context, examSlug string, cs *model.ClientSession, overrideRemaining *int) error {
	if cs == nil || !cs.IsSample {
		return nil
	}

	snap := BuildSnapshot(cs, overrideRemaining, s.now())
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.storage.SetItem(ctx, examSlug, string(raw))
}

// Load returns the stored snapshot for examSlug, or nil when there is none
// or it cannot be trusted. Read failures are logged and never returned.
func (s *SnapshotStore) Load(ctx context.Context, examSlug string) *model.LocalSnapshot {
	raw, ok, err := s.storage.GetItem(ctx, examSlug)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_slug", examSlug).Msg("Failed to read sample snapshot")
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var snap model.LocalSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.log.Warn().Err(err).Str("exam_slug", examSlug).Msg("Discarding unreadable sample snapshot")
		return nil
	}
	if !snapshotUsable(&snap) {
		s.log.Debug().Int("version", snap.Version).Str("exam_slug", examSlug).Msg("Discarding stale sample snapshot")
		return nil
	}
	return &snap
}

// Clear removes the stored snapshot for examSlug.
func (s *SnapshotStore) Clear(ctx context.Context, examSlug string) error {
	return s.storage.RemoveItem(ctx, examSlug)
}

// BuildSnapshot captures cs at time now.
func BuildSnapshot(cs *model.ClientSession, overrideRemaining *int, now time.Time) model.LocalSnapshot {
	remaining := cs.RemainingSeconds
	if overrideRemaining != nil {
		remaining = overrideRemaining
	}

	snap := model.LocalSnapshot{
		Version:              model.SnapshotVersion,
		SavedAt:              now.UnixMilli(),
		Status:               cs.Status,
		CurrentQuestionIndex: cs.CurrentQuestionIndex,
		FlaggedQuestionIDs:   normalizeIDs(cs.FlaggedQuestionIDs),
		BookmarkedIDs:        normalizeIDs(cs.BookmarkedQuestionIDs),
		SubmittedIDs:         normalizeIDs(cs.SubmittedQuestionIDs),
		RevealedIDs:          normalizeIDs(cs.RevealedQuestionIDs),
		RemainingSeconds:     remaining,
		Questions:            make(map[string]model.QuestionSnapshot, len(cs.Questions)),
	}
	for _, e := range cs.Questions {
		if e.QuestionID == "" {
			continue
		}
		snap.Questions[e.QuestionID] = model.QuestionSnapshot{
			SelectedAnswers:   model.Some(append([]int{}, e.SelectedAnswers...)),
			IsFlagged:         containsID(snap.FlaggedQuestionIDs, e.QuestionID),
			IsBookmarked:      containsID(snap.BookmarkedIDs, e.QuestionID),
			IsSubmitted:       model.Some(e.IsSubmitted),
			HasRevealedAnswer: model.Some(e.HasRevealedAnswer),
			IsCorrect:         model.Optional[bool]{Set: true, Value: e.IsCorrect},
			TimeSpentSeconds:  model.Optional[int]{Set: true, Value: e.TimeSpentSeconds},
		}
	}
	return snap
}

func snapshotUsable(snap *model.LocalSnapshot) bool {
	if snap.Version != model.SnapshotVersion || snap.SavedAt <= 0 {
		return false
	}
	return snap.Status == "" || snap.Status.Valid()
}

// Merge reconciles a freshly synthesized baseline with a stored snapshot.
// An unusable snapshot returns baseline unchanged. The stored timer decays
// by the wall-clock time elapsed since the snapshot was saved.
func Merge(baseline model.ClientSession, snap *model.LocalSnapshot, now time.Time) model.ClientSession {
	if snap == nil || !snapshotUsable(snap) {
		return baseline
	}

	out := baseline
	out.Questions = make([]model.QuestionEntry, len(baseline.Questions))
	for i, e := range baseline.Questions {
		if override, ok := snap.Questions[e.QuestionID]; ok {
			e = applyOverride(e, override)
		}
		out.Questions[i] = e
	}

	known := make(map[string]struct{}, len(out.Questions))
	for _, e := range out.Questions {
		known[e.QuestionID] = struct{}{}
	}
	out.FlaggedQuestionIDs = restrictIDs(snap.FlaggedQuestionIDs, known)
	out.BookmarkedQuestionIDs = restrictIDs(snap.BookmarkedIDs, known)
	out.SubmittedQuestionIDs = restrictIDs(snap.SubmittedIDs, known)
	out.RevealedQuestionIDs = restrictIDs(snap.RevealedIDs, known)

	if snap.Status.Valid() {
		out.Status = snap.Status
	}
	out.CurrentQuestionIndex = clampIndex(snap.CurrentQuestionIndex, len(out.Questions))

	if snap.RemainingSeconds != nil {
		elapsed := now.UnixMilli() - snap.SavedAt
		if elapsed < 0 {
			elapsed = 0
		}
		remaining := *snap.RemainingSeconds - int(elapsed/1000)
		if remaining < 0 {
			remaining = 0
		}
		out.RemainingSeconds = intPtr(remaining)
	} else if baseline.RemainingSeconds != nil {
		out.RemainingSeconds = intPtr(*baseline.RemainingSeconds)
	}

	refreshActive(&out)
	return out
}

func applyOverride(e model.QuestionEntry, o model.QuestionSnapshot) model.QuestionEntry {
	if answers := o.SelectedAnswers.Or(&e.SelectedAnswers); answers != nil {
		e.SelectedAnswers = dedupeInts(*answers)
	} else {
		e.SelectedAnswers = []int{}
	}
	if v := o.IsSubmitted.Or(&e.IsSubmitted); v != nil {
		e.IsSubmitted = *v
	} else {
		e.IsSubmitted = false
	}
	if v := o.HasRevealedAnswer.Or(&e.HasRevealedAnswer); v != nil {
		e.HasRevealedAnswer = *v
	} else {
		e.HasRevealedAnswer = false
	}
	e.IsCorrect = o.IsCorrect.Or(e.IsCorrect)
	e.TimeSpentSeconds = o.TimeSpentSeconds.Or(e.TimeSpentSeconds)
	return e
}

// MemoryStorage is an in-process Storage, mostly for tests and previews.
type MemoryStorage struct {
	mu    sync.Mutex
	items map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (m *MemoryStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryStorage) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryStorage) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
