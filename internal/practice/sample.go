package practice

import (
	"fmt"

	"github.com/stemsi/exstem-practice/internal/model"
)

// SampleSessionPrefix prefixes the id of every synthesized sample session.
const SampleSessionPrefix = "sample-"

// BuiltinSampleQuestion is used when the catalog has no questions to offer.
var BuiltinSampleQuestion = model.Question{
	ID:        "builtin-derivative",
	VersionID: "builtin-derivative-v1",
	Stem:      "If f(x) = 3x^2 - 2x + 1, what is f'(2)?",
	Choices: []model.Choice{
		{ID: "builtin-derivative-a", Label: "A", Text: "10"},
		{ID: "builtin-derivative-b", Label: "B", Text: "12"},
		{ID: "builtin-derivative-c", Label: "C", Text: "8"},
		{ID: "builtin-derivative-d", Label: "D", Text: "11"},
	},
	CorrectChoiceIDs: []string{"builtin-derivative-a"},
	Difficulty:       model.DifficultyMedium,
	Subject:          "Mathematics",
}

// SynthesizeSampleSession builds a client-local session from a catalog page.
// limit <= 0 keeps every question. An empty page yields one built-in question
// so the session is never empty.
func SynthesizeSampleSession(examSlug string, exam *model.Exam, page []model.Question, limit int) model.ClientSession {
	questions := page
	if limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}
	if len(questions) == 0 {
		questions = fabricateSampleQuestions(examSlug, 1)
	}

	s := &model.Session{
		ID:        SampleSessionPrefix + examSlug,
		ExamSlug:  examSlug,
		Status:    model.SessionStatusInProgress,
		Exam:      exam,
		Questions: make([]model.QuestionAttempt, 0, len(questions)),
		IsSample:  true,
	}
	if exam != nil && exam.DurationMinutes != nil && *exam.DurationMinutes > 0 {
		s.RemainingSeconds = intPtr(*exam.DurationMinutes * 60)
	}
	for i, q := range questions {
		s.Questions = append(s.Questions, model.QuestionAttempt{
			QuestionID:      q.ID,
			OrderIndex:      i,
			SelectedAnswers: []int{},
			Question:        q,
		})
	}

	return ToViewModel(ToWireFormat(s))
}

// fabricateSampleQuestions duplicates the built-in question n times, giving
// each copy a unique id.
func fabricateSampleQuestions(examSlug string, n int) []model.Question {
	out := make([]model.Question, 0, n)
	for i := 1; i <= n; i++ {
		q := BuiltinSampleQuestion
		q.ID = fmt.Sprintf("%s-%d", BuiltinSampleQuestion.ID, i)
		q.ExamSlug = examSlug
		q.OrderNum = i
		q.Choices = append([]model.Choice(nil), BuiltinSampleQuestion.Choices...)
		q.CorrectChoiceIDs = append([]string(nil), BuiltinSampleQuestion.CorrectChoiceIDs...)
		out = append(out, q)
	}
	return out
}
