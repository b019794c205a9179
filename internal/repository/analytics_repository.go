package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-practice/internal/model"
)

// AnalyticsRepository writes analytics events.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// InsertBatch bulk-inserts events with COPY.
func (r *AnalyticsRepository) InsertBatch(ctx context.Context, events []model.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}
	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"analytics_events"},
		[]string{"id", "name", "user_id", "properties", "occurred_at"},
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{e.ID, e.Name, e.UserID, e.Properties, e.OccurredAt}, nil
		}),
	)
	return err
}

// Insert writes a single event. Duplicate ids are ignored so requeued events
// are not double counted.
func (r *AnalyticsRepository) Insert(ctx context.Context, e *model.AnalyticsEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO analytics_events (id, name, user_id, properties, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Name, e.UserID, e.Properties, e.OccurredAt,
	)
	return err
}
