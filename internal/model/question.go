package model

// Difficulty enumerates question difficulty levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DifficultyOrder is the fixed severity order used when summarizing a mix.
var DifficultyOrder = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Letter returns the single-letter abbreviation shown in difficulty mixes.
func (d Difficulty) Letter() string {
	switch d {
	case DifficultyEasy:
		return "E"
	case DifficultyMedium:
		return "M"
	case DifficultyHard:
		return "H"
	default:
		return ""
	}
}

// Choice is one answer option of a question.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is the catalog's denormalized question snapshot. Read-only here.
type Question struct {
	ID               string     `json:"id"`
	VersionID        string     `json:"versionId"`
	ExamSlug         string     `json:"examSlug,omitempty"`
	Stem             string     `json:"stem"`
	Choices          []Choice   `json:"choices"`
	CorrectChoiceIDs []string   `json:"correctChoiceIds"`
	Difficulty       Difficulty `json:"difficulty"`
	Subject          string     `json:"subject"`
	OrderNum         int        `json:"orderNum"`
}

// CorrectIndices returns the option indices whose ids are marked correct.
func (q *Question) CorrectIndices() []int {
	correct := make(map[string]struct{}, len(q.CorrectChoiceIDs))
	for _, id := range q.CorrectChoiceIDs {
		correct[id] = struct{}{}
	}
	var out []int
	for i, c := range q.Choices {
		if _, ok := correct[c.ID]; ok {
			out = append(out, i)
		}
	}
	return out
}

// ChoiceLabels returns the labels for the given choice ids, in choice order.
// Unknown ids are ignored.
func (q *Question) ChoiceLabels(ids []string) []string {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []string
	for _, c := range q.Choices {
		if _, ok := wanted[c.ID]; ok {
			out = append(out, c.Label)
		}
	}
	return out
}
