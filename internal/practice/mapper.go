package practice

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/stemsi/exstem-practice/internal/model"
)

// Exam defaults applied when the catalog record omits a field.
const (
	DefaultPassingScore    = 70
	DefaultAttemptsAllowed = 3
)

// DefaultTags is used when the exam record carries no tags.
var DefaultTags = []string{"practice"}

// ToWireFormat converts a session aggregate into its API representation.
// Questions are emitted in OrderIndex order and the cursor is clamped.
func ToWireFormat(s *model.Session) model.ApiResponse {
	attempts := make([]model.QuestionAttempt, len(s.Questions))
	copy(attempts, s.Questions)
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].OrderIndex < attempts[j].OrderIndex
	})

	flagged := normalizeIDs(s.FlaggedQuestionIDs)
	bookmarked := normalizeIDs(s.BookmarkedQuestionIDs)

	entries := make([]model.QuestionEntry, 0, len(attempts))
	questions := make([]model.Question, 0, len(attempts))
	for _, a := range attempts {
		entries = append(entries, model.QuestionEntry{
			QuestionID:        a.QuestionID,
			OrderIndex:        a.OrderIndex,
			SelectedAnswers:   append([]int{}, a.SelectedAnswers...),
			IsFlagged:         containsID(flagged, a.QuestionID),
			IsBookmarked:      containsID(bookmarked, a.QuestionID),
			IsSubmitted:       a.IsSubmitted,
			HasRevealedAnswer: a.HasRevealedAnswer,
			IsCorrect:         a.IsCorrect,
			TimeSpentSeconds:  a.TimeSpentSeconds,
			Question:          a.Question,
		})
		questions = append(questions, a.Question)
	}

	return model.ApiResponse{
		Session: model.WireSession{
			ID:                    s.ID,
			ExamSlug:              s.ExamSlug,
			Status:                s.Status,
			CurrentQuestionIndex:  clampIndex(s.CurrentQuestionIndex, len(entries)),
			TotalQuestions:        len(entries),
			RemainingSeconds:      s.RemainingSeconds,
			FlaggedQuestionIDs:    flagged,
			BookmarkedQuestionIDs: bookmarked,
			SubmittedQuestionIDs:  normalizeIDs(s.SubmittedQuestionIDs),
			RevealedQuestionIDs:   normalizeIDs(s.RevealedQuestionIDs),
			IsSample:              s.IsSample,
		},
		Exam:      BuildExam(s.ExamSlug, s.Exam, questions),
		Questions: entries,
	}
}

// BuildExam merges catalog metadata with defaults. The actual question count
// wins over any declared target count.
func BuildExam(slug string, exam *model.Exam, questions []model.Question) model.WireExam {
	out := model.WireExam{
		Slug:            slug,
		Title:           titleFromSlug(slug),
		Tags:            append([]string{}, DefaultTags...),
		PassingScore:    intPtr(DefaultPassingScore),
		AttemptsAllowed: intPtr(DefaultAttemptsAllowed),
		DifficultyMix:   DifficultyMix(questions),
		TotalQuestions:  len(questions),
	}
	if exam == nil {
		return out
	}

	if exam.Title != "" {
		out.Title = exam.Title
	}
	out.Description = exam.Description
	if len(exam.Tags) > 0 {
		out.Tags = append([]string{}, exam.Tags...)
	}
	out.DurationMinutes = exam.DurationMinutes
	if exam.PassingScore != nil {
		out.PassingScore = exam.PassingScore
	}
	if exam.AttemptsAllowed != nil {
		out.AttemptsAllowed = exam.AttemptsAllowed
	}
	if len(questions) == 0 && exam.TargetQuestionCount != nil {
		out.TotalQuestions = *exam.TargetQuestionCount
	}
	return out
}

// DifficultyMix summarizes the distinct difficulties present, in severity
// order, e.g. "E • M • H". Empty when no question carries a known difficulty.
func DifficultyMix(questions []model.Question) string {
	present := make(map[model.Difficulty]bool, len(model.DifficultyOrder))
	for _, q := range questions {
		present[q.Difficulty] = true
	}
	var letters []string
	for _, d := range model.DifficultyOrder {
		if present[d] {
			letters = append(letters, d.Letter())
		}
	}
	return strings.Join(letters, " • ")
}

// ToViewModel converts an API response into the client view model and
// derives the active question and its flattened state.
func ToViewModel(resp model.ApiResponse) model.ClientSession {
	entries := make([]model.QuestionEntry, len(resp.Questions))
	copy(entries, resp.Questions)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].OrderIndex < entries[j].OrderIndex
	})

	cs := model.ClientSession{
		ID:                    resp.Session.ID,
		ExamSlug:              resp.Session.ExamSlug,
		Status:                resp.Session.Status,
		IsSample:              resp.Session.IsSample,
		Exam:                  resp.Exam,
		Questions:             entries,
		TotalQuestions:        len(entries),
		CurrentQuestionIndex:  resp.Session.CurrentQuestionIndex,
		RemainingSeconds:      resp.Session.RemainingSeconds,
		FlaggedQuestionIDs:    normalizeIDs(resp.Session.FlaggedQuestionIDs),
		BookmarkedQuestionIDs: normalizeIDs(resp.Session.BookmarkedQuestionIDs),
		SubmittedQuestionIDs:  normalizeIDs(resp.Session.SubmittedQuestionIDs),
		RevealedQuestionIDs:   normalizeIDs(resp.Session.RevealedQuestionIDs),
	}
	if cs.ExamSlug == "" {
		cs.ExamSlug = resp.Exam.Slug
	}
	refreshActive(&cs)
	return cs
}

// FromViewModel rebuilds a session aggregate from a client view model so
// that sample sessions go through the same transition engine.
func FromViewModel(cs *model.ClientSession) *model.Session {
	s := &model.Session{
		ID:                    cs.ID,
		ExamSlug:              cs.ExamSlug,
		Status:                cs.Status,
		Exam:                  examFromWire(cs.Exam),
		Questions:             make([]model.QuestionAttempt, 0, len(cs.Questions)),
		FlaggedQuestionIDs:    append([]string(nil), cs.FlaggedQuestionIDs...),
		BookmarkedQuestionIDs: append([]string(nil), cs.BookmarkedQuestionIDs...),
		SubmittedQuestionIDs:  append([]string(nil), cs.SubmittedQuestionIDs...),
		RevealedQuestionIDs:   append([]string(nil), cs.RevealedQuestionIDs...),
		RemainingSeconds:      cs.RemainingSeconds,
		CurrentQuestionIndex:  cs.CurrentQuestionIndex,
		IsSample:              cs.IsSample,
	}
	for _, e := range cs.Questions {
		s.Questions = append(s.Questions, model.QuestionAttempt{
			QuestionID:        e.QuestionID,
			OrderIndex:        e.OrderIndex,
			SelectedAnswers:   append([]int{}, e.SelectedAnswers...),
			IsSubmitted:       e.IsSubmitted,
			HasRevealedAnswer: e.HasRevealedAnswer,
			IsCorrect:         e.IsCorrect,
			TimeSpentSeconds:  e.TimeSpentSeconds,
			Question:          e.Question,
		})
	}
	Normalize(s)
	return s.Clone()
}

func examFromWire(w model.WireExam) *model.Exam {
	exam := &model.Exam{
		Slug:            w.Slug,
		Title:           w.Title,
		Description:     w.Description,
		Tags:            append([]string(nil), w.Tags...),
		DurationMinutes: w.DurationMinutes,
		PassingScore:    w.PassingScore,
		AttemptsAllowed: w.AttemptsAllowed,
	}
	if w.TotalQuestions > 0 {
		exam.TargetQuestionCount = intPtr(w.TotalQuestions)
	}
	return exam
}

// refreshActive clamps the cursor, syncs per-entry flags with the id sets
// and recomputes the active question and its flattened state.
func refreshActive(cs *model.ClientSession) {
	cs.TotalQuestions = len(cs.Questions)
	cs.CurrentQuestionIndex = clampIndex(cs.CurrentQuestionIndex, len(cs.Questions))

	for i := range cs.Questions {
		e := &cs.Questions[i]
		e.IsFlagged = containsID(cs.FlaggedQuestionIDs, e.QuestionID)
		e.IsBookmarked = containsID(cs.BookmarkedQuestionIDs, e.QuestionID)
		if e.SelectedAnswers == nil {
			e.SelectedAnswers = []int{}
		}
	}

	if len(cs.Questions) == 0 {
		cs.ActiveQuestion = nil
		cs.QuestionState = model.QuestionState{SelectedAnswers: []int{}}
		return
	}

	active := cs.Questions[cs.CurrentQuestionIndex]
	cs.ActiveQuestion = &active
	cs.QuestionState = model.QuestionState{
		QuestionID:        active.QuestionID,
		IsFlagged:         active.IsFlagged,
		IsBookmarked:      active.IsBookmarked,
		SelectedAnswers:   append([]int{}, active.SelectedAnswers...),
		TimeSpentSeconds:  active.TimeSpentSeconds,
		IsSubmitted:       active.IsSubmitted,
		HasRevealedAnswer: active.HasRevealedAnswer,
		IsCorrect:         active.IsCorrect,
	}
}

func titleFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
