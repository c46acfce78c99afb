package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/reloop-app/sync-engine/internal/core/domain"
)

type PostgresCompletionRepository struct {
	db *sqlx.DB
}

func NewPostgresCompletionRepository(db *sqlx.DB) *PostgresCompletionRepository {
	return &PostgresCompletionRepository{db: db}
}

// Upsert enforces the one-record-per-loop-per-day invariant at the storage
// level via the (loop_id, date) unique constraint.
func (r *PostgresCompletionRepository) Upsert(ctx context.Context, record *domain.CompletionRecord) error {
	query := `
		INSERT INTO completion_records (loop_id, date, completed, total)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (loop_id, date)
		DO UPDATE SET completed = EXCLUDED.completed, total = EXCLUDED.total`

	_, err := r.db.ExecContext(ctx, query,
		record.LoopID, domain.DayOf(record.Date), record.Completed, record.Total)
	if err != nil {
		return fmt.Errorf("completion upsert failed: %w", err)
	}
	return nil
}

func (r *PostgresCompletionRepository) ListByLoopID(ctx context.Context, loopID string) ([]*domain.CompletionRecord, error) {
	records := []*domain.CompletionRecord{}

	query := `
		SELECT loop_id, date, completed, total FROM completion_records
		WHERE loop_id = $1
		ORDER BY date ASC`

	err := r.db.SelectContext(ctx, &records, query, loopID)
	if err != nil {
		return nil, fmt.Errorf("completion list query failed: %w", err)
	}

	return records, nil
}
