package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OperationKind is the discriminator of a session mutation envelope.
type OperationKind string

const (
	OpToggleFlag      OperationKind = "toggle-flag"
	OpToggleBookmark  OperationKind = "toggle-bookmark"
	OpRecordAnswer    OperationKind = "record-answer"
	OpSubmitAnswer    OperationKind = "submit-answer"
	OpRevealAnswer    OperationKind = "reveal-answer"
	OpUpdateTimer     OperationKind = "update-timer"
	OpAdvance         OperationKind = "advance"
	OpCompleteSession OperationKind = "complete-session"
)

// ErrUnknownOperation is returned for envelopes with a missing or unknown discriminator.
var ErrUnknownOperation = errors.New("unknown operation")

// Operation is one variant of the session mutation envelope.
type Operation interface {
	Kind() OperationKind
}

// OperationEnvelope is used to peek at the discriminator before full parsing.
type OperationEnvelope struct {
	Operation OperationKind `json:"operation"`
}

// ToggleFlag sets flag membership to Flagged. The target value is explicit so
// a retried request lands on the same state.
type ToggleFlag struct {
	QuestionID string `json:"questionId" binding:"required,max=128"`
	Flagged    *bool  `json:"flagged" binding:"required"`
}

// ToggleBookmark sets bookmark membership to Bookmarked.
type ToggleBookmark struct {
	QuestionID string `json:"questionId" binding:"required,max=128"`
	Bookmarked *bool  `json:"bookmarked" binding:"required"`
}

// RecordAnswer replaces the selected answers of a question.
type RecordAnswer struct {
	QuestionID       string `json:"questionId" binding:"required,max=128"`
	SelectedAnswers  []int  `json:"selectedAnswers" binding:"required,max=64,dive,min=0"`
	TimeSpentSeconds *int   `json:"timeSpentSeconds" binding:"omitempty,min=0"`
}

// SubmitAnswer locks in a question and evaluates it.
type SubmitAnswer struct {
	QuestionID string `json:"questionId" binding:"required,max=128"`
}

// RevealAnswer marks the correct answer of a question as shown.
type RevealAnswer struct {
	QuestionID string `json:"questionId" binding:"required,max=128"`
}

// UpdateTimer overwrites the remaining seconds.
type UpdateTimer struct {
	RemainingSeconds *float64 `json:"remainingSeconds" binding:"required"`
}

// Advance moves the cursor to another question.
type Advance struct {
	CurrentQuestionIndex *int `json:"currentQuestionIndex" binding:"required"`
}

// CompleteSession finishes the session.
type CompleteSession struct{}

func (*ToggleFlag) Kind() OperationKind      { return OpToggleFlag }
func (*ToggleBookmark) Kind() OperationKind  { return OpToggleBookmark }
func (*RecordAnswer) Kind() OperationKind    { return OpRecordAnswer }
func (*SubmitAnswer) Kind() OperationKind    { return OpSubmitAnswer }
func (*RevealAnswer) Kind() OperationKind    { return OpRevealAnswer }
func (*UpdateTimer) Kind() OperationKind     { return OpUpdateTimer }
func (*Advance) Kind() OperationKind         { return OpAdvance }
func (*CompleteSession) Kind() OperationKind { return OpCompleteSession }

// DecodeOperation parses a raw mutation envelope into its concrete variant.
// Unknown discriminators are rejected rather than ignored.
func DecodeOperation(raw []byte) (Operation, error) {
	var env OperationEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var op Operation
	switch env.Operation {
	case OpToggleFlag:
		op = &ToggleFlag{}
	case OpToggleBookmark:
		op = &ToggleBookmark{}
	case OpRecordAnswer:
		op = &RecordAnswer{}
	case OpSubmitAnswer:
		op = &SubmitAnswer{}
	case OpRevealAnswer:
		op = &RevealAnswer{}
	case OpUpdateTimer:
		op = &UpdateTimer{}
	case OpAdvance:
		op = &Advance{}
	case OpCompleteSession:
		return &CompleteSession{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, env.Operation)
	}

	if err := json.Unmarshal(raw, op); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Operation, err)
	}
	return op, nil
}
