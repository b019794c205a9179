package model

// SnapshotVersion tags the current LocalSnapshot layout. Snapshots written
// with any other version are discarded on load.
const SnapshotVersion = 2

// LocalSnapshot is the persisted copy of an in-flight sample session.
type LocalSnapshot struct {
	Version              int                         `json:"version"`
	SavedAt              int64                       `json:"savedAt"` // unix milliseconds
	Status               SessionStatus               `json:"status"`
	CurrentQuestionIndex int                         `json:"currentQuestionIndex"`
	FlaggedQuestionIDs   []string                    `json:"flaggedQuestionIds"`
	BookmarkedIDs        []string                    `json:"bookmarkedQuestionIds"`
	SubmittedIDs         []string                    `json:"submittedQuestionIds"`
	RevealedIDs          []string                    `json:"revealedQuestionIds"`
	RemainingSeconds     *int                        `json:"remainingSeconds"`
	Questions            map[string]QuestionSnapshot `json:"questions"`
}

// QuestionSnapshot is the per-question override stored in a LocalSnapshot.
// Absent fields fall back to the baseline; explicit nulls are kept.
type QuestionSnapshot struct {
	SelectedAnswers   Optional[[]int] `json:"selectedAnswers,omitzero"`
	IsFlagged         bool            `json:"isFlagged,omitempty"`
	IsBookmarked      bool            `json:"isBookmarked,omitempty"`
	IsSubmitted       Optional[bool]  `json:"isSubmitted,omitzero"`
	HasRevealedAnswer Optional[bool]  `json:"hasRevealedAnswer,omitzero"`
	IsCorrect         Optional[bool]  `json:"isCorrect,omitzero"`
	TimeSpentSeconds  Optional[int]   `json:"timeSpentSeconds,omitzero"`
}
