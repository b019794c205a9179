package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-practice/internal/model"
)

// CatalogRepository reads exams and questions from the content catalog.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

const questionColumns = `id, version_id, exam_slug, stem, choices, correct_choice_ids, difficulty, subject, order_num`

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	if err := row.Scan(&q.ID, &q.VersionID, &q.ExamSlug, &q.Stem, &q.Choices,
		&q.CorrectChoiceIDs, &q.Difficulty, &q.Subject, &q.OrderNum); err != nil {
		return nil, err
	}
	return q, nil
}

// GetQuestion returns a question by id, or ErrNotFound.
func (r *CatalogRepository) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	q, err := scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}

// ListQuestionsByExam returns up to limit questions of an exam in order.
// limit <= 0 returns every question.
func (r *CatalogRepository) ListQuestionsByExam(ctx context.Context, examSlug string, limit int) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE exam_slug = $1 ORDER BY order_num, id`
	args := []any{examSlug}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// GetExam returns exam metadata by slug, or ErrNotFound.
func (r *CatalogRepository) GetExam(ctx context.Context, slug string) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT slug, title, description, tags, duration_minutes, passing_score,
		        attempts_allowed, target_question_count
		 FROM exams WHERE slug = $1`, slug,
	).Scan(&e.Slug, &e.Title, &e.Description, &e.Tags, &e.DurationMinutes, &e.PassingScore,
		&e.AttemptsAllowed, &e.TargetQuestionCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpsertExam inserts or replaces an exam record.
func (r *CatalogRepository) UpsertExam(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exams (slug, title, description, tags, duration_minutes, passing_score,
		                    attempts_allowed, target_question_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (slug) DO UPDATE
		 SET title = EXCLUDED.title,
		     description = EXCLUDED.description,
		     tags = EXCLUDED.tags,
		     duration_minutes = EXCLUDED.duration_minutes,
		     passing_score = EXCLUDED.passing_score,
		     attempts_allowed = EXCLUDED.attempts_allowed,
		     target_question_count = EXCLUDED.target_question_count`,
		e.Slug, e.Title, e.Description, e.Tags, e.DurationMinutes, e.PassingScore,
		e.AttemptsAllowed, e.TargetQuestionCount,
	)
	return err
}

// UpsertQuestion inserts or replaces a question.
func (r *CatalogRepository) UpsertQuestion(ctx context.Context, q *model.Question) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO questions (`+questionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE
		 SET version_id = EXCLUDED.version_id,
		     exam_slug = EXCLUDED.exam_slug,
		     stem = EXCLUDED.stem,
		     choices = EXCLUDED.choices,
		     correct_choice_ids = EXCLUDED.correct_choice_ids,
		     difficulty = EXCLUDED.difficulty,
		     subject = EXCLUDED.subject,
		     order_num = EXCLUDED.order_num`,
		q.ID, q.VersionID, q.ExamSlug, q.Stem, q.Choices, q.CorrectChoiceIDs, q.Difficulty, q.Subject, q.OrderNum,
	)
	return err
}
