package model

// Exam is the catalog's exam metadata. Every optional field may be absent.
type Exam struct {
	Slug                string   `json:"slug"`
	Title               string   `json:"title"`
	Description         *string  `json:"description,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	DurationMinutes     *int     `json:"durationMinutes,omitempty"`
	PassingScore        *int     `json:"passingScore,omitempty"`
	AttemptsAllowed     *int     `json:"attemptsAllowed,omitempty"`
	TargetQuestionCount *int     `json:"targetQuestionCount,omitempty"`
}
