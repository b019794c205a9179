package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-practice/internal/model"
)

// ExplanationRepository persists the audit copy of generated explanations.
type ExplanationRepository struct {
	pool *pgxpool.Pool
}

// NewExplanationRepository creates a new ExplanationRepository.
func NewExplanationRepository(pool *pgxpool.Pool) *ExplanationRepository {
	return &ExplanationRepository{pool: pool}
}

// Save upserts rec keyed by (question_id, question_version_id, answer_hash).
func (r *ExplanationRepository) Save(ctx context.Context, rec *model.ExplanationRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ai_explanations
		   (question_id, question_version_id, answer_hash, model_name, locale, explanation,
		    prompt_tokens, completion_tokens, total_tokens, cost_cents, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (question_id, question_version_id, answer_hash) DO UPDATE
		 SET model_name = EXCLUDED.model_name,
		     locale = EXCLUDED.locale,
		     explanation = EXCLUDED.explanation,
		     prompt_tokens = EXCLUDED.prompt_tokens,
		     completion_tokens = EXCLUDED.completion_tokens,
		     total_tokens = EXCLUDED.total_tokens,
		     cost_cents = EXCLUDED.cost_cents,
		     created_at = EXCLUDED.created_at`,
		rec.QuestionID, rec.QuestionVersionID, rec.AnswerHash, rec.ModelName, rec.Locale, rec.Explanation,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.CostCents, rec.CreatedAt,
	)
	return err
}
