// Package practice holds the pure practice-session logic: the transition
// engine, the wire/view mapper, sample-session synthesis and the local
// snapshot reconciler. Nothing here performs network I/O.
package practice

import (
	"fmt"
	"math"

	"github.com/stemsi/exstem-practice/internal/apperror"
	"github.com/stemsi/exstem-practice/internal/model"
)

// Apply applies op to a copy of s and returns the updated session. The input
// is never mutated. Replaying the same op on the result yields an equal session.
func Apply(s *model.Session, op model.Operation) (*model.Session, error) {
	if s == nil {
		return nil, apperror.Invalid("session", "is required")
	}
	if op == nil {
		return nil, apperror.Invalid("operation", "is required")
	}

	out := s.Clone()

	switch o := op.(type) {
	case *model.ToggleFlag:
		if _, err := questionAt(out, o.QuestionID); err != nil {
			return nil, err
		}
		if o.Flagged == nil {
			return nil, apperror.Invalid("flagged", "is required")
		}
		out.FlaggedQuestionIDs = setMembership(out.FlaggedQuestionIDs, o.QuestionID, *o.Flagged)

	case *model.ToggleBookmark:
		if _, err := questionAt(out, o.QuestionID); err != nil {
			return nil, err
		}
		if o.Bookmarked == nil {
			return nil, apperror.Invalid("bookmarked", "is required")
		}
		out.BookmarkedQuestionIDs = setMembership(out.BookmarkedQuestionIDs, o.QuestionID, *o.Bookmarked)

	case *model.RecordAnswer:
		q, err := questionAt(out, o.QuestionID)
		if err != nil {
			return nil, err
		}
		if err := recordAnswer(q, o); err != nil {
			return nil, err
		}

	case *model.SubmitAnswer:
		q, err := questionAt(out, o.QuestionID)
		if err != nil {
			return nil, err
		}
		q.IsSubmitted = true
		q.IsCorrect = Evaluate(q)
		out.SubmittedQuestionIDs = setMembership(out.SubmittedQuestionIDs, q.QuestionID, true)

	case *model.RevealAnswer:
		q, err := questionAt(out, o.QuestionID)
		if err != nil {
			return nil, err
		}
		q.HasRevealedAnswer = true
		out.RevealedQuestionIDs = setMembership(out.RevealedQuestionIDs, q.QuestionID, true)

	case *model.UpdateTimer:
		if out.Status != model.SessionStatusInProgress {
			return nil, apperror.Invalid("status", "timer can only change while the session is in progress")
		}
		if o.RemainingSeconds == nil {
			return nil, apperror.Invalid("remainingSeconds", "is required")
		}
		v := *o.RemainingSeconds
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, apperror.Invalid("remainingSeconds", "must be a finite number")
		}
		out.RemainingSeconds = intPtr(int(math.Floor(math.Max(0, v))))

	case *model.Advance:
		if o.CurrentQuestionIndex == nil {
			return nil, apperror.Invalid("currentQuestionIndex", "is required")
		}
		idx := *o.CurrentQuestionIndex
		if idx < 0 || idx >= len(out.Questions) {
			return nil, apperror.Invalid("currentQuestionIndex", "must be between 0 and %d", len(out.Questions)-1)
		}
		out.CurrentQuestionIndex = idx

	case *model.CompleteSession:
		out.Status = model.SessionStatusCompleted

	default:
		return nil, &apperror.ValidationError{
			Field:   "operation",
			Message: fmt.Sprintf("unsupported operation %q", op.Kind()),
			Err:     model.ErrUnknownOperation,
		}
	}

	Normalize(out)
	return out, nil
}

func recordAnswer(q *model.QuestionAttempt, o *model.RecordAnswer) error {
	answers := dedupeInts(o.SelectedAnswers)
	for _, idx := range answers {
		if idx < 0 || idx >= len(q.Question.Choices) {
			return apperror.Invalid("selectedAnswers", "option index %d is out of range", idx)
		}
	}

	// Replays of the answer that was submitted are accepted as no-ops.
	if q.IsSubmitted && !sameIntSet(answers, q.SelectedAnswers) {
		return apperror.Invalid("questionId", "question %q is already submitted", q.QuestionID)
	}

	q.SelectedAnswers = answers
	if o.TimeSpentSeconds != nil {
		spent := *o.TimeSpentSeconds
		if spent < 0 {
			return apperror.Invalid("timeSpentSeconds", "must not be negative")
		}
		// Accumulated on the client; a stale retry never lowers it.
		if q.TimeSpentSeconds == nil || spent > *q.TimeSpentSeconds {
			q.TimeSpentSeconds = intPtr(spent)
		}
	}
	return nil
}

// Evaluate compares the selected answers with the correct option indices as
// sets. A question with no correct options configured yields nil.
func Evaluate(q *model.QuestionAttempt) *bool {
	correct := q.Question.CorrectIndices()
	if len(correct) == 0 {
		return nil
	}
	return boolPtr(sameIntSet(correct, q.SelectedAnswers))
}

// Normalize enforces the aggregate invariants in place: id sets are unique
// subsets of the session's questions and the cursor is within range.
func Normalize(s *model.Session) {
	known := make(map[string]struct{}, len(s.Questions))
	for _, q := range s.Questions {
		known[q.QuestionID] = struct{}{}
	}
	s.FlaggedQuestionIDs = restrictIDs(s.FlaggedQuestionIDs, known)
	s.BookmarkedQuestionIDs = restrictIDs(s.BookmarkedQuestionIDs, known)
	s.SubmittedQuestionIDs = restrictIDs(s.SubmittedQuestionIDs, known)
	s.RevealedQuestionIDs = restrictIDs(s.RevealedQuestionIDs, known)
	s.CurrentQuestionIndex = clampIndex(s.CurrentQuestionIndex, len(s.Questions))
	if !s.Status.Valid() {
		s.Status = model.SessionStatusInProgress
	}
}

func questionAt(s *model.Session, questionID string) (*model.QuestionAttempt, error) {
	if questionID == "" {
		return nil, apperror.Invalid("questionId", "is required")
	}
	pos := s.QuestionPosition(questionID)
	if pos < 0 {
		return nil, &apperror.ValidationError{
			Field:   "questionId",
			Message: fmt.Sprintf("question %q is not part of this session", questionID),
		}
	}
	return &s.Questions[pos], nil
}
