package practice

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-practice/internal/model"
)

func sampleBaseline() model.ClientSession {
	page := []model.Question{
		mathQuestion("Q1", model.DifficultyEasy, "Q1-a"),
		mathQuestion("Q2", model.DifficultyHard, "Q2-b"),
	}
	duration := 5
	exam := &model.Exam{Slug: "a-level-math", DurationMinutes: &duration}
	return SynthesizeSampleSession("a-level-math", exam, page, 10)
}

func TestMerge_VersionMismatchReturnsBaseline(t *testing.T) {
	baseline := sampleBaseline()
	snap := BuildSnapshot(&baseline, nil, time.Now())
	snap.Version = model.SnapshotVersion + 1
	snap.FlaggedQuestionIDs = []string{"Q1"}

	merged := Merge(baseline, &snap, time.Now())

	want, err := json.Marshal(baseline)
	require.NoError(t, err)
	got, err := json.Marshal(merged)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestMerge_NilOrInvalidTimestamp(t *testing.T) {
	baseline := sampleBaseline()
	assert.Equal(t, baseline, Merge(baseline, nil, time.Now()))

	snap := BuildSnapshot(&baseline, nil, time.Now())
	snap.SavedAt = 0
	assert.Equal(t, baseline, Merge(baseline, &snap, time.Now()))
}

func TestMerge_TimerDecay(t *testing.T) {
	baseline := sampleBaseline()
	now := time.Now()
	remaining := 100
	snap := BuildSnapshot(&baseline, &remaining, now.Add(-30*time.Second))

	merged := Merge(baseline, &snap, now)
	require.NotNil(t, merged.RemainingSeconds)
	assert.InDelta(t, 70, *merged.RemainingSeconds, 1)

	merged = Merge(baseline, &snap, now.Add(time.Hour))
	assert.Equal(t, 0, *merged.RemainingSeconds)
}

func TestMerge_MissingTimerFallsBackToBaseline(t *testing.T) {
	baseline := sampleBaseline()
	snap := BuildSnapshot(&baseline, nil, time.Now())
	snap.RemainingSeconds = nil

	merged := Merge(baseline, &snap, time.Now().Add(time.Minute))
	require.NotNil(t, merged.RemainingSeconds)
	assert.Equal(t, *baseline.RemainingSeconds, *merged.RemainingSeconds)
}

func TestMerge_AppliesOverridesAndSets(t *testing.T) {
	baseline := sampleBaseline()
	spent := 17
	now := time.Now()
	snap := model.LocalSnapshot{
		Version:              model.SnapshotVersion,
		SavedAt:              now.UnixMilli(),
		Status:               model.SessionStatusInProgress,
		CurrentQuestionIndex: 12,
		FlaggedQuestionIDs:   []string{"Q2", "ghost", ""},
		BookmarkedIDs:        []string{"Q1"},
		SubmittedIDs:         []string{"Q1"},
		Questions: map[string]model.QuestionSnapshot{
			"Q1": {
				SelectedAnswers:  model.Some([]int{0}),
				IsSubmitted:      model.Some(true),
				IsCorrect:        model.Some(true),
				TimeSpentSeconds: model.Some(spent),
			},
			"Q2": {
				TimeSpentSeconds: model.Null[int](),
			},
		},
	}

	merged := Merge(baseline, &snap, now)

	assert.Equal(t, 1, merged.CurrentQuestionIndex)
	assert.Equal(t, []string{"Q2"}, merged.FlaggedQuestionIDs)
	assert.Equal(t, []string{"Q1"}, merged.BookmarkedQuestionIDs)

	q1 := merged.Questions[0]
	assert.Equal(t, []int{0}, q1.SelectedAnswers)
	assert.True(t, q1.IsSubmitted)
	assert.True(t, *q1.IsCorrect)
	assert.Equal(t, 17, *q1.TimeSpentSeconds)
	assert.True(t, q1.IsBookmarked)
	assert.False(t, q1.IsFlagged)

	q2 := merged.Questions[1]
	assert.Equal(t, []int{}, q2.SelectedAnswers)
	assert.False(t, q2.IsSubmitted)
	assert.Nil(t, q2.TimeSpentSeconds)
	assert.True(t, q2.IsFlagged)

	require.NotNil(t, merged.ActiveQuestion)
	assert.Equal(t, "Q2", merged.ActiveQuestion.QuestionID)
	assert.True(t, merged.QuestionState.IsFlagged)
}

func TestOptionalDistinguishesAbsentFromNull(t *testing.T) {
	var qs model.QuestionSnapshot
	require.NoError(t, json.Unmarshal([]byte(`{"isCorrect":null}`), &qs))
	assert.True(t, qs.IsCorrect.Set)
	assert.Nil(t, qs.IsCorrect.Value)
	assert.False(t, qs.TimeSpentSeconds.Set)

	fallback := 9
	assert.Equal(t, &fallback, qs.TimeSpentSeconds.Or(&fallback))
	assert.Nil(t, qs.IsCorrect.Or(boolPtr(true)))
}

func TestSnapshotStore_PersistLoadClear(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	saved := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewSnapshotStore(storage, zerolog.Nop()).WithClock(func() time.Time { return saved })

	cs := sampleBaseline()
	cs.FlaggedQuestionIDs = []string{"Q1", "Q1", ""}
	cs.Questions[0].SelectedAnswers = []int{2}
	override := 45

	require.NoError(t, store.Persist(ctx, "a-level-math", &cs, &override))

	snap := store.Load(ctx, "a-level-math")
	require.NotNil(t, snap)
	assert.Equal(t, model.SnapshotVersion, snap.Version)
	assert.Equal(t, saved.UnixMilli(), snap.SavedAt)
	assert.Equal(t, []string{"Q1"}, snap.FlaggedQuestionIDs)
	assert.Equal(t, 45, *snap.RemainingSeconds)
	assert.Equal(t, []int{2}, *snap.Questions["Q1"].SelectedAnswers.Value)

	require.NoError(t, store.Clear(ctx, "a-level-math"))
	assert.Nil(t, store.Load(ctx, "a-level-math"))
}

func TestSnapshotStore_PersistIgnoresServerSessions(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	store := NewSnapshotStore(storage, zerolog.Nop())

	cs := sampleBaseline()
	cs.IsSample = false
	require.NoError(t, store.Persist(ctx, "a-level-math", &cs, nil))

	_, ok, _ := storage.GetItem(ctx, "a-level-math")
	assert.False(t, ok)
}

func TestSnapshotStore_LoadDiscardsCorruptBlobs(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	store := NewSnapshotStore(storage, zerolog.Nop())

	require.NoError(t, storage.SetItem(ctx, "a", "{not json"))
	assert.Nil(t, store.Load(ctx, "a"))

	require.NoError(t, storage.SetItem(ctx, "b", `{"version":1,"savedAt":1700000000000}`))
	assert.Nil(t, store.Load(ctx, "b"))

	require.NoError(t, storage.SetItem(ctx, "c", `{"version":2,"savedAt":1700000000000,"status":"paused"}`))
	assert.Nil(t, store.Load(ctx, "c"))
}
