package practice

import (
	"github.com/stemsi/exstem-practice/internal/model"
)

func mathQuestion(id string, difficulty model.Difficulty, correct ...string) model.Question {
	return model.Question{
		ID:        id,
		VersionID: id + "-v1",
		ExamSlug:  "a-level-math",
		Stem:      "Stem of " + id,
		Choices: []model.Choice{
			{ID: id + "-a", Label: "A", Text: "1"},
			{ID: id + "-b", Label: "B", Text: "2"},
			{ID: id + "-c", Label: "C", Text: "3"},
			{ID: id + "-d", Label: "D", Text: "4"},
		},
		CorrectChoiceIDs: correct,
		Difficulty:       difficulty,
		Subject:          "Mathematics",
	}
}

func newSession(questions ...model.Question) *model.Session {
	s := &model.Session{
		ID:       "sess-1",
		ExamSlug: "a-level-math",
		UserID:   "user-1",
		Status:   model.SessionStatusInProgress,
	}
	for i, q := range questions {
		s.Questions = append(s.Questions, model.QuestionAttempt{
			QuestionID:      q.ID,
			OrderIndex:      i,
			SelectedAnswers: []int{},
			Question:        q,
		})
	}
	return s
}

func twoQuestionSession() *model.Session {
	return newSession(
		mathQuestion("Q1", model.DifficultyEasy, "Q1-a"),
		mathQuestion("Q2", model.DifficultyHard, "Q2-b", "Q2-c"),
	)
}
