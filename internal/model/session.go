package model

import (
	"time"
)

// SessionStatus enumerates practice session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	return s == SessionStatusInProgress || s == SessionStatusCompleted
}

// Session is the aggregate root for one learner's attempt at one exam.
type Session struct {
	ID       string
	ExamSlug string
	UserID   string
	Status   SessionStatus

	// Exam is the catalog metadata; nil when the exam record is missing.
	Exam *Exam

	// Questions are kept in exam order; OrderIndex is authoritative.
	Questions []QuestionAttempt

	FlaggedQuestionIDs    []string
	BookmarkedQuestionIDs []string
	SubmittedQuestionIDs  []string
	RevealedQuestionIDs   []string

	// RemainingSeconds is nil for untimed sessions.
	RemainingSeconds     *int
	CurrentQuestionIndex int

	// IsSample marks a client-local fallback session. Only the persistence
	// path differs.
	IsSample bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuestionAttempt is the per-question mutable state nested under a Session.
type QuestionAttempt struct {
	QuestionID        string
	OrderIndex        int
	SelectedAnswers   []int
	IsSubmitted       bool
	HasRevealedAnswer bool
	IsCorrect         *bool
	TimeSpentSeconds  *int
	Question          Question
}

// QuestionPosition returns the slice position of a question id, or -1.
func (s *Session) QuestionPosition(questionID string) int {
	for i := range s.Questions {
		if s.Questions[i].QuestionID == questionID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so transitions never alias the caller's state.
func (s *Session) Clone() *Session {
	out := *s
	out.Questions = make([]QuestionAttempt, len(s.Questions))
	for i, q := range s.Questions {
		q.SelectedAnswers = append([]int(nil), q.SelectedAnswers...)
		if q.IsCorrect != nil {
			v := *q.IsCorrect
			q.IsCorrect = &v
		}
		if q.TimeSpentSeconds != nil {
			v := *q.TimeSpentSeconds
			q.TimeSpentSeconds = &v
		}
		out.Questions[i] = q
	}
	out.FlaggedQuestionIDs = append([]string(nil), s.FlaggedQuestionIDs...)
	out.BookmarkedQuestionIDs = append([]string(nil), s.BookmarkedQuestionIDs...)
	out.SubmittedQuestionIDs = append([]string(nil), s.SubmittedQuestionIDs...)
	out.RevealedQuestionIDs = append([]string(nil), s.RevealedQuestionIDs...)
	if s.RemainingSeconds != nil {
		v := *s.RemainingSeconds
		out.RemainingSeconds = &v
	}
	return &out
}

// StartSessionResult is returned when a new session is created.
type StartSessionResult struct {
	SessionID string `json:"sessionId"`
}
