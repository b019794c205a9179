package model

// ApiResponse is the wire representation of a session returned by the API.
type ApiResponse struct {
	Session   WireSession     `json:"session"`
	Exam      WireExam        `json:"exam"`
	Questions []QuestionEntry `json:"questions"`
}

// WireSession carries the session-level fields of an ApiResponse.
type WireSession struct {
	ID                    string        `json:"id"`
	ExamSlug              string        `json:"examSlug"`
	Status                SessionStatus `json:"status"`
	CurrentQuestionIndex  int           `json:"currentQuestionIndex"`
	TotalQuestions        int           `json:"totalQuestions"`
	RemainingSeconds      *int          `json:"remainingSeconds"`
	FlaggedQuestionIDs    []string      `json:"flaggedQuestionIds"`
	BookmarkedQuestionIDs []string      `json:"bookmarkedQuestionIds"`
	SubmittedQuestionIDs  []string      `json:"submittedQuestionIds"`
	RevealedQuestionIDs   []string      `json:"revealedQuestionIds"`
	IsSample              bool          `json:"isSample"`
}

// WireExam carries exam metadata with defaults already applied.
type WireExam struct {
	Slug            string   `json:"slug"`
	Title           string   `json:"title"`
	Description     *string  `json:"description,omitempty"`
	Tags            []string `json:"tags"`
	DurationMinutes *int     `json:"durationMinutes,omitempty"`
	PassingScore    *int     `json:"passingScore,omitempty"`
	DifficultyMix   string   `json:"difficultyMix,omitempty"`
	AttemptsAllowed *int     `json:"attemptsAllowed,omitempty"`
	TotalQuestions  int      `json:"totalQuestions"`
}

// QuestionEntry is one flattened question of a session, as sent over the wire
// and as kept in the client view model.
type QuestionEntry struct {
	QuestionID        string   `json:"questionId"`
	OrderIndex        int      `json:"orderIndex"`
	SelectedAnswers   []int    `json:"selectedAnswers"`
	IsFlagged         bool     `json:"isFlagged"`
	IsBookmarked      bool     `json:"isBookmarked"`
	IsSubmitted       bool     `json:"isSubmitted"`
	HasRevealedAnswer bool     `json:"hasRevealedAnswer"`
	IsCorrect         *bool    `json:"isCorrect"`
	TimeSpentSeconds  *int     `json:"timeSpentSeconds"`
	Question          Question `json:"question"`
}

// ClientSession is the view model consumed by rendering logic.
type ClientSession struct {
	ID                    string          `json:"id"`
	ExamSlug              string          `json:"examSlug"`
	Status                SessionStatus   `json:"status"`
	IsSample              bool            `json:"isSample"`
	Exam                  WireExam        `json:"exam"`
	Questions             []QuestionEntry `json:"questions"`
	TotalQuestions        int             `json:"totalQuestions"`
	CurrentQuestionIndex  int             `json:"currentQuestionIndex"`
	RemainingSeconds      *int            `json:"remainingSeconds"`
	FlaggedQuestionIDs    []string        `json:"flaggedQuestionIds"`
	BookmarkedQuestionIDs []string        `json:"bookmarkedQuestionIds"`
	SubmittedQuestionIDs  []string        `json:"submittedQuestionIds"`
	RevealedQuestionIDs   []string        `json:"revealedQuestionIds"`

	// ActiveQuestion is nil only when the session has no questions.
	ActiveQuestion *QuestionEntry `json:"activeQuestion"`
	QuestionState  QuestionState  `json:"questionState"`
}

// QuestionState flattens the active question's mutable fields for the UI.
type QuestionState struct {
	QuestionID        string `json:"questionId"`
	IsFlagged         bool   `json:"isFlagged"`
	IsBookmarked      bool   `json:"isBookmarked"`
	SelectedAnswers   []int  `json:"selectedAnswers"`
	TimeSpentSeconds  *int   `json:"timeSpentSeconds"`
	IsSubmitted       bool   `json:"isSubmitted"`
	HasRevealedAnswer bool   `json:"hasRevealedAnswer"`
	IsCorrect         *bool  `json:"isCorrect"`
}
