package model

import "time"

// Confidence is the generator's self-reported confidence.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ExplanationDocument is the structured explanation returned to learners and
// stored in the cache.
type ExplanationDocument struct {
	Summary         string     `json:"summary"`
	KeyPoints       []string   `json:"keyPoints"`
	Steps           []string   `json:"steps"`
	RelatedConcepts []string   `json:"relatedConcepts,omitempty"`
	Confidence      Confidence `json:"confidence"`
}

// ExplanationRecord is the durable audit copy of a generated explanation.
type ExplanationRecord struct {
	QuestionID        string
	QuestionVersionID string
	AnswerHash        string
	ModelName         string
	Locale            string
	Explanation       ExplanationDocument
	PromptTokens      int
	CompletionTokens  int
	TotalTokens       int
	CostCents         int
	CreatedAt         time.Time
}

// ExplanationRequest is the payload for requesting an explanation.
type ExplanationRequest struct {
	QuestionID        string   `json:"questionId" binding:"required,max=128"`
	SelectedChoiceIDs []string `json:"selectedChoiceIds" binding:"required,min=1,max=32,dive,required,max=128"`
	Locale            string   `json:"locale" binding:"omitempty,locale"`
}

// ExplanationResponse is returned on success.
type ExplanationResponse struct {
	Explanation        ExplanationDocument `json:"explanation"`
	RateLimitRemaining int                 `json:"rateLimitRemaining"`
}
