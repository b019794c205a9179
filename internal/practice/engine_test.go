package practice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-practice/internal/apperror"
	"github.com/stemsi/exstem-practice/internal/model"
)

func apply(t *testing.T, s *model.Session, ops ...model.Operation) *model.Session {
	t.Helper()
	for _, op := range ops {
		next, err := Apply(s, op)
		require.NoError(t, err, "operation %s", op.Kind())
		s = next
	}
	return s
}

func boolp(v bool) *bool { return &v }

func TestApply_ToggleFlagLastWriteWins(t *testing.T) {
	sequences := [][]*bool{
		{boolp(true)},
		{boolp(true), boolp(false)},
		{boolp(false), boolp(true), boolp(true)},
		{boolp(true), boolp(true), boolp(false), boolp(false)},
	}
	for _, seq := range sequences {
		s := twoQuestionSession()
		for _, v := range seq {
			s = apply(t, s, &model.ToggleFlag{QuestionID: "Q1", Flagged: v})
		}
		want := *seq[len(seq)-1]
		assert.Equal(t, want, containsID(s.FlaggedQuestionIDs, "Q1"))
		assert.LessOrEqual(t, len(s.FlaggedQuestionIDs), 1)
	}
}

func TestApply_ToggleRequiresTargetValue(t *testing.T) {
	ops := []model.Operation{
		&model.ToggleFlag{QuestionID: "Q1"},
		&model.ToggleBookmark{QuestionID: "Q2"},
	}
	for _, op := range ops {
		_, err := Apply(twoQuestionSession(), op)
		var verr *apperror.ValidationError
		require.ErrorAs(t, err, &verr, "operation %s", op.Kind())
	}
}

func TestApply_ToggleRetryKeepsState(t *testing.T) {
	op, err := model.DecodeOperation([]byte(`{"operation":"toggle-flag","questionId":"Q1","flagged":true}`))
	require.NoError(t, err)

	once := apply(t, twoQuestionSession(), op)
	twice := apply(t, once, op)
	assert.Equal(t, []string{"Q1"}, once.FlaggedQuestionIDs)
	assert.Equal(t, once.FlaggedQuestionIDs, twice.FlaggedQuestionIDs)

	op, err = model.DecodeOperation([]byte(`{"operation":"toggle-bookmark","questionId":"Q2","bookmarked":true}`))
	require.NoError(t, err)
	once = apply(t, twoQuestionSession(), op)
	twice = apply(t, once, op)
	assert.Equal(t, []string{"Q2"}, twice.BookmarkedQuestionIDs)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := twoQuestionSession()
	_, err := Apply(in, &model.RecordAnswer{QuestionID: "Q1", SelectedAnswers: []int{2}})
	require.NoError(t, err)
	assert.Empty(t, in.Questions[0].SelectedAnswers)
}

func TestApply_UnknownQuestionFails(t *testing.T) {
	ops := []model.Operation{
		&model.ToggleFlag{QuestionID: "nope", Flagged: boolp(true)},
		&model.ToggleBookmark{QuestionID: "nope", Bookmarked: boolp(true)},
		&model.RecordAnswer{QuestionID: "nope", SelectedAnswers: []int{0}},
		&model.SubmitAnswer{QuestionID: "nope"},
		&model.RevealAnswer{QuestionID: "nope"},
	}
	for _, op := range ops {
		_, err := Apply(twoQuestionSession(), op)
		var verr *apperror.ValidationError
		require.ErrorAs(t, err, &verr, "operation %s", op.Kind())
		assert.Equal(t, "questionId", verr.Field)
	}
}

func TestApply_RecordAnswerDedupesAndValidatesRange(t *testing.T) {
	spent := 12
	s := apply(t, twoQuestionSession(), &model.RecordAnswer{
		QuestionID:       "Q2",
		SelectedAnswers:  []int{2, 1, 2},
		TimeSpentSeconds: &spent,
	})
	assert.Equal(t, []int{2, 1}, s.Questions[1].SelectedAnswers)
	require.NotNil(t, s.Questions[1].TimeSpentSeconds)
	assert.Equal(t, 12, *s.Questions[1].TimeSpentSeconds)

	_, err := Apply(s, &model.RecordAnswer{QuestionID: "Q2", SelectedAnswers: []int{4}})
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "selectedAnswers", verr.Field)
}

func TestApply_RecordAnswerKeepsHigherTimeSpent(t *testing.T) {
	high, low := 40, 10
	s := apply(t, twoQuestionSession(),
		&model.RecordAnswer{QuestionID: "Q1", SelectedAnswers: []int{0}, TimeSpentSeconds: &high},
		&model.RecordAnswer{QuestionID: "Q1", SelectedAnswers: []int{0}, TimeSpentSeconds: &low},
	)
	assert.Equal(t, 40, *s.Questions[0].TimeSpentSeconds)
}

func TestApply_RecordAnswerAfterSubmit(t *testing.T) {
	s := apply(t, twoQuestionSession(),
		&model.RecordAnswer{QuestionID: "Q1", SelectedAnswers: []int{0}},
		&model.SubmitAnswer{QuestionID: "Q1"},
	)

	// identical replay is accepted
	s = apply(t, s, &model.RecordAnswer{QuestionID: "Q1", SelectedAnswers: []int{0}})
	assert.Equal(t, []int{0}, s.Questions[0].SelectedAnswers)

	_, err := Apply(s, &model.RecordAnswer{QuestionID: "Q1", SelectedAnswers: []int{1}})
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestApply_SubmitIsIdempotent(t *testing.T) {
	s := apply(t, twoQuestionSession(),
		&model.RecordAnswer{QuestionID: "Q2", SelectedAnswers: []int{2, 1}},
		&model.SubmitAnswer{QuestionID: "Q2"},
	)
	first := s.Questions[1].IsCorrect
	require.NotNil(t, first)
	assert.True(t, *first)

	s = apply(t, s, &model.SubmitAnswer{QuestionID: "Q2"})
	require.NotNil(t, s.Questions[1].IsCorrect)
	assert.Equal(t, *first, *s.Questions[1].IsCorrect)
	assert.Equal(t, []string{"Q2"}, s.SubmittedQuestionIDs)
}

func TestApply_SubmitWrongAnswer(t *testing.T) {
	s := apply(t, twoQuestionSession(),
		&model.RecordAnswer{QuestionID: "Q2", SelectedAnswers: []int{1}},
		&model.SubmitAnswer{QuestionID: "Q2"},
	)
	require.NotNil(t, s.Questions[1].IsCorrect)
	assert.False(t, *s.Questions[1].IsCorrect)
}

func TestApply_SubmitWithoutCorrectIDsYieldsNull(t *testing.T) {
	s := newSession(mathQuestion("broken", model.DifficultyMedium))
	s = apply(t, s,
		&model.RecordAnswer{QuestionID: "broken", SelectedAnswers: []int{0}},
		&model.SubmitAnswer{QuestionID: "broken"},
	)
	assert.True(t, s.Questions[0].IsSubmitted)
	assert.Nil(t, s.Questions[0].IsCorrect)
}

func TestApply_RevealDoesNotRequireSubmission(t *testing.T) {
	s := apply(t, twoQuestionSession(), &model.RevealAnswer{QuestionID: "Q1"})
	assert.True(t, s.Questions[0].HasRevealedAnswer)
	assert.False(t, s.Questions[0].IsSubmitted)
	assert.Equal(t, []string{"Q1"}, s.RevealedQuestionIDs)

	// reveal stays set after a later submission
	s = apply(t, s, &model.SubmitAnswer{QuestionID: "Q1"})
	assert.True(t, s.Questions[0].HasRevealedAnswer)
}

func TestApply_UpdateTimer(t *testing.T) {
	v := 42.9
	s := apply(t, twoQuestionSession(), &model.UpdateTimer{RemainingSeconds: &v})
	require.NotNil(t, s.RemainingSeconds)
	assert.Equal(t, 42, *s.RemainingSeconds)

	neg := -5.0
	s = apply(t, s, &model.UpdateTimer{RemainingSeconds: &neg})
	assert.Equal(t, 0, *s.RemainingSeconds)

	for _, bad := range []float64{math.NaN(), math.Inf(1)} {
		bad := bad
		_, err := Apply(s, &model.UpdateTimer{RemainingSeconds: &bad})
		var verr *apperror.ValidationError
		require.ErrorAs(t, err, &verr)
	}
}

func TestApply_UpdateTimerRequiresInProgress(t *testing.T) {
	s := apply(t, twoQuestionSession(), &model.CompleteSession{})
	v := 10.0
	_, err := Apply(s, &model.UpdateTimer{RemainingSeconds: &v})
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
}

func TestApply_AdvanceRange(t *testing.T) {
	one := 1
	s := apply(t, twoQuestionSession(), &model.Advance{CurrentQuestionIndex: &one})
	assert.Equal(t, 1, s.CurrentQuestionIndex)

	for _, idx := range []int{-1, 2} {
		idx := idx
		_, err := Apply(s, &model.Advance{CurrentQuestionIndex: &idx})
		var verr *apperror.ValidationError
		require.ErrorAs(t, err, &verr)
	}
}

func TestApply_ALevelMathScenario(t *testing.T) {
	one := 1
	s := apply(t, twoQuestionSession(),
		&model.RecordAnswer{QuestionID: "Q1", SelectedAnswers: []int{0}},
		&model.SubmitAnswer{QuestionID: "Q1"},
		&model.ToggleFlag{QuestionID: "Q1", Flagged: boolp(true)},
		&model.Advance{CurrentQuestionIndex: &one},
		&model.RecordAnswer{QuestionID: "Q2", SelectedAnswers: []int{1, 2}},
		&model.SubmitAnswer{QuestionID: "Q2"},
		&model.CompleteSession{},
	)

	assert.Equal(t, model.SessionStatusCompleted, s.Status)
	assert.ElementsMatch(t, []string{"Q1", "Q2"}, s.SubmittedQuestionIDs)
	assert.Equal(t, []string{"Q1"}, s.FlaggedQuestionIDs)
	assert.Equal(t, 1, s.CurrentQuestionIndex)
	assert.True(t, *s.Questions[0].IsCorrect)
	assert.Empty(t, s.RevealedQuestionIDs)
}

func TestApply_ReplayIsIdempotent(t *testing.T) {
	spent := 5
	ops := []model.Operation{
		&model.ToggleFlag{QuestionID: "Q1", Flagged: boolp(true)},
		&model.ToggleBookmark{QuestionID: "Q1", Bookmarked: boolp(true)},
		&model.RecordAnswer{QuestionID: "Q1", SelectedAnswers: []int{0}, TimeSpentSeconds: &spent},
		&model.SubmitAnswer{QuestionID: "Q1"},
		&model.RevealAnswer{QuestionID: "Q1"},
		&model.CompleteSession{},
	}
	for _, op := range ops {
		once := apply(t, twoQuestionSession(), op)
		twice := apply(t, once, op)
		assert.Equal(t, once, twice, "operation %s", op.Kind())
	}
}

func TestNormalize_DropsForeignIDsAndClamps(t *testing.T) {
	s := twoQuestionSession()
	s.FlaggedQuestionIDs = []string{"Q1", "", "ghost", "Q1"}
	s.CurrentQuestionIndex = 9
	s.Status = "bogus"

	Normalize(s)

	assert.Equal(t, []string{"Q1"}, s.FlaggedQuestionIDs)
	assert.Equal(t, 1, s.CurrentQuestionIndex)
	assert.Equal(t, model.SessionStatusInProgress, s.Status)
}
