package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-practice/internal/model"
)

// PracticeSessionRepository stores server-authoritative practice sessions.
// Mutations write only the columns the applied operation owns, so concurrent
// operations on one session resolve last-write-wins per field.
type PracticeSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPracticeSessionRepository creates a new PracticeSessionRepository.
func NewPracticeSessionRepository(pool *pgxpool.Pool) *PracticeSessionRepository {
	return &PracticeSessionRepository{pool: pool}
}

// Create inserts a session and its question attempts in one transaction.
// s.ID is assigned when empty.
func (r *PracticeSessionRepository) Create(ctx context.Context, s *model.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO practice_sessions (id, exam_slug, user_id, status, remaining_seconds, current_question_index)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		s.ID, s.ExamSlug, s.UserID, s.Status, s.RemainingSeconds, s.CurrentQuestionIndex,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"practice_session_questions"},
		[]string{"session_id", "question_id", "order_index", "selected_answers"},
		pgx.CopyFromSlice(len(s.Questions), func(i int) ([]any, error) {
			q := s.Questions[i]
			return []any{s.ID, q.QuestionID, q.OrderIndex, nonNilInts(q.SelectedAnswers)}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("insert session questions: %w", err)
	}

	return tx.Commit(ctx)
}

// Get loads a session with its exam metadata and question snapshots.
func (r *PracticeSessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	s := &model.Session{}
	var (
		examTitle   *string
		description *string
		tags        []string
		duration    *int
		passing     *int
		attempts    *int
		target      *int
	)
	err := r.pool.QueryRow(ctx,
		`SELECT ps.id, ps.exam_slug, ps.user_id, ps.status, ps.remaining_seconds, ps.current_question_index,
		        ps.flagged_question_ids, ps.bookmarked_question_ids, ps.submitted_question_ids,
		        ps.revealed_question_ids, ps.created_at, ps.updated_at,
		        e.title, e.description, e.tags, e.duration_minutes, e.passing_score,
		        e.attempts_allowed, e.target_question_count
		 FROM practice_sessions ps
		 LEFT JOIN exams e ON e.slug = ps.exam_slug
		 WHERE ps.id = $1`, id,
	).Scan(&s.ID, &s.ExamSlug, &s.UserID, &s.Status, &s.RemainingSeconds, &s.CurrentQuestionIndex,
		&s.FlaggedQuestionIDs, &s.BookmarkedQuestionIDs, &s.SubmittedQuestionIDs,
		&s.RevealedQuestionIDs, &s.CreatedAt, &s.UpdatedAt,
		&examTitle, &description, &tags, &duration, &passing, &attempts, &target)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if examTitle != nil {
		s.Exam = &model.Exam{
			Slug:                s.ExamSlug,
			Title:               *examTitle,
			Description:         description,
			Tags:                tags,
			DurationMinutes:     duration,
			PassingScore:        passing,
			AttemptsAllowed:     attempts,
			TargetQuestionCount: target,
		}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT psq.question_id, psq.order_index, psq.selected_answers, psq.is_submitted,
		        psq.has_revealed_answer, psq.is_correct, psq.time_spent_seconds,
		        q.version_id, q.exam_slug, q.stem, q.choices, q.correct_choice_ids,
		        q.difficulty, q.subject, q.order_num
		 FROM practice_session_questions psq
		 JOIN questions q ON q.id = psq.question_id
		 WHERE psq.session_id = $1
		 ORDER BY psq.order_index`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.QuestionAttempt
		if err := rows.Scan(&a.QuestionID, &a.OrderIndex, &a.SelectedAnswers, &a.IsSubmitted,
			&a.HasRevealedAnswer, &a.IsCorrect, &a.TimeSpentSeconds,
			&a.Question.VersionID, &a.Question.ExamSlug, &a.Question.Stem, &a.Question.Choices,
			&a.Question.CorrectChoiceIDs, &a.Question.Difficulty, &a.Question.Subject,
			&a.Question.OrderNum); err != nil {
			return nil, err
		}
		a.Question.ID = a.QuestionID
		s.Questions = append(s.Questions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// SaveOperation persists the fields op changed, reading the new values
// from next.
func (r *PracticeSessionRepository) SaveOperation(ctx context.Context, next *model.Session, op model.Operation) error {
	switch o := op.(type) {
	case *model.ToggleFlag:
		return r.setMembership(ctx, next.ID, "flagged_question_ids", o.QuestionID, containsString(next.FlaggedQuestionIDs, o.QuestionID))
	case *model.ToggleBookmark:
		return r.setMembership(ctx, next.ID, "bookmarked_question_ids", o.QuestionID, containsString(next.BookmarkedQuestionIDs, o.QuestionID))
	case *model.RecordAnswer:
		a, err := attemptOf(next, o.QuestionID)
		if err != nil {
			return err
		}
		return r.execOne(ctx,
			`UPDATE practice_session_questions
			 SET selected_answers = $3, time_spent_seconds = $4
			 WHERE session_id = $1 AND question_id = $2`,
			next.ID, o.QuestionID, nonNilInts(a.SelectedAnswers), a.TimeSpentSeconds)
	case *model.SubmitAnswer:
		a, err := attemptOf(next, o.QuestionID)
		if err != nil {
			return err
		}
		return r.inTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx,
				`UPDATE practice_session_questions
				 SET is_submitted = TRUE, is_correct = $3
				 WHERE session_id = $1 AND question_id = $2`,
				next.ID, o.QuestionID, a.IsCorrect); err != nil {
				return err
			}
			return addMember(ctx, tx, next.ID, "submitted_question_ids", o.QuestionID)
		})
	case *model.RevealAnswer:
		return r.inTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx,
				`UPDATE practice_session_questions
				 SET has_revealed_answer = TRUE
				 WHERE session_id = $1 AND question_id = $2`,
				next.ID, o.QuestionID); err != nil {
				return err
			}
			return addMember(ctx, tx, next.ID, "revealed_question_ids", o.QuestionID)
		})
	case *model.UpdateTimer:
		return r.execOne(ctx,
			`UPDATE practice_sessions SET remaining_seconds = $2, updated_at = NOW() WHERE id = $1`,
			next.ID, next.RemainingSeconds)
	case *model.Advance:
		return r.execOne(ctx,
			`UPDATE practice_sessions SET current_question_index = $2, updated_at = NOW() WHERE id = $1`,
			next.ID, next.CurrentQuestionIndex)
	case *model.CompleteSession:
		return r.execOne(ctx,
			`UPDATE practice_sessions SET status = $2, updated_at = NOW() WHERE id = $1`,
			next.ID, next.Status)
	default:
		return fmt.Errorf("%w: %s", model.ErrUnknownOperation, op.Kind())
	}
}

// setMembership adds or removes member in one of the session's id-set
// columns. column is always a constant from SaveOperation.
func (r *PracticeSessionRepository) setMembership(ctx context.Context, sessionID, column, member string, present bool) error {
	if present {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			return addMember(ctx, tx, sessionID, column, member)
		})
	}
	return r.execOne(ctx,
		fmt.Sprintf(`UPDATE practice_sessions SET %[1]s = array_remove(%[1]s, $2), updated_at = NOW() WHERE id = $1`, column),
		sessionID, member)
}

func addMember(ctx context.Context, tx pgx.Tx, sessionID, column, member string) error {
	tag, err := tx.Exec(ctx,
		fmt.Sprintf(`UPDATE practice_sessions
		 SET %[1]s = array_append(array_remove(%[1]s, $2), $2), updated_at = NOW()
		 WHERE id = $1`, column),
		sessionID, member)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PracticeSessionRepository) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PracticeSessionRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func attemptOf(s *model.Session, questionID string) (*model.QuestionAttempt, error) {
	pos := s.QuestionPosition(questionID)
	if pos < 0 {
		return nil, ErrNotFound
	}
	return &s.Questions[pos], nil
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
