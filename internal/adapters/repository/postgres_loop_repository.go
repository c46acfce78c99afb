package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/reloop-app/sync-engine/internal/core/domain"
	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresLoopRepository struct {
	db *sqlx.DB
}

func NewPostgresLoopRepository(db *sqlx.DB) *PostgresLoopRepository {
	return &PostgresLoopRepository{db: db}
}

type scannable interface {
	Scan(dest ...interface{}) error
}

const loopColumns = `
        id, user_id, title, description, kind, color, favorite, practice_mode,
        reset_rule, custom_reset_days, reset_time, reset_day_of_week, next_reset_at,
        current_streak, longest_streak, last_completed_date,
        total_tasks, completed_tasks,
        version, deleted_at, archived_at, created_at, updated_at`

func (r *PostgresLoopRepository) scanRow(row scannable) (*domain.Loop, error) {
	var l domain.Loop
	var customDaysJSON []byte

	err := row.Scan(
		&l.ID, &l.UserID, &l.Title, &l.Description, &l.Kind, &l.Color, &l.Favorite, &l.PracticeMode,
		&l.ResetRule, &customDaysJSON, &l.ResetTime, &l.ResetDayOfWeek, &l.NextResetAt,
		&l.CurrentStreak, &l.LongestStreak, &l.LastCompletedDate,
		&l.TotalTasks, &l.CompletedTasks,
		&l.Version, &l.DeletedAt, &l.ArchivedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(customDaysJSON) > 0 {
		if err := json.Unmarshal(customDaysJSON, &l.CustomResetDays); err != nil {
			return nil, fmt.Errorf("failed to unmarshal custom reset days: %w", err)
		}
	}

	return &l, nil
}

func (r *PostgresLoopRepository) Create(ctx context.Context, l *domain.Loop) error {
	customDaysJSON, err := json.Marshal(l.CustomResetDays)
	if err != nil {
		return fmt.Errorf("failed to marshal custom reset days: %w", err)
	}

	query := `
        INSERT INTO loops (
            id, user_id, title, description, kind, color, favorite, practice_mode,
            reset_rule, custom_reset_days, reset_time, reset_day_of_week, next_reset_at,
            current_streak, longest_streak, last_completed_date,
            total_tasks, completed_tasks,
            version, deleted_at, archived_at, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8,
            $9, $10, $11, $12, $13,
            $14, $15, $16,
            $17, $18,
            1, NULL, $19, $20, $21
        )`

	_, err = r.db.ExecContext(ctx, query,
		l.ID, l.UserID, l.Title, l.Description, l.Kind, l.Color, l.Favorite, l.PracticeMode,
		l.ResetRule, customDaysJSON, l.ResetTime, l.ResetDayOfWeek, l.NextResetAt,
		l.CurrentStreak, l.LongestStreak, l.LastCompletedDate,
		l.TotalTasks, l.CompletedTasks,
		l.ArchivedAt, l.CreatedAt, l.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert loop: %w", err)
	}

	l.Version = 1
	return nil
}

func (r *PostgresLoopRepository) GetByID(ctx context.Context, id string) (*domain.Loop, error) {
	query := `SELECT` + loopColumns + ` FROM loops WHERE id = $1 AND deleted_at IS NULL`

	row := r.db.QueryRowContext(ctx, query, id)

	l, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLoopNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return l, nil
}

func (r *PostgresLoopRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Loop, error) {
	query := `
        SELECT` + loopColumns + ` FROM loops
        WHERE user_id = $1 AND deleted_at IS NULL
        ORDER BY favorite DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var loops []*domain.Loop

	for rows.Next() {
		l, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		loops = append(loops, l)
	}

	return loops, nil
}

func (r *PostgresLoopRepository) Update(ctx context.Context, l *domain.Loop) error {
	customDaysJSON, err := json.Marshal(l.CustomResetDays)
	if err != nil {
		return err
	}

	query := `
        UPDATE loops SET
            title=$1, description=$2, kind=$3, color=$4, favorite=$5, practice_mode=$6,
            reset_rule=$7, custom_reset_days=$8, reset_time=$9, reset_day_of_week=$10, next_reset_at=$11,
            current_streak=$12, longest_streak=$13, last_completed_date=$14,
            total_tasks=$15, completed_tasks=$16,
            archived_at=$17,
            updated_at=NOW(), version = version + 1
        WHERE id=$18 AND version=$19 AND deleted_at IS NULL
        RETURNING version, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		l.Title, l.Description, l.Kind, l.Color, l.Favorite, l.PracticeMode,
		l.ResetRule, customDaysJSON, l.ResetTime, l.ResetDayOfWeek, l.NextResetAt,
		l.CurrentStreak, l.LongestStreak, l.LastCompletedDate,
		l.TotalTasks, l.CompletedTasks,
		l.ArchivedAt,
		l.ID, l.Version,
	)

	var newVersion int
	var newUpdatedAt time.Time

	err = row.Scan(&newVersion, &newUpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			existsQuery := `SELECT count(*) FROM loops WHERE id = $1`
			var count int
			if checkErr := r.db.QueryRowContext(ctx, existsQuery, l.ID).Scan(&count); checkErr != nil {
				return fmt.Errorf("existence check failed: %w", checkErr)
			}

			if count == 0 {
				return domain.ErrLoopNotFound
			}
			return domain.ErrLoopConflict
		}
		return fmt.Errorf("update query failed: %w", err)
	}

	l.Version = newVersion
	l.UpdatedAt = newUpdatedAt

	return nil
}

func (r *PostgresLoopRepository) Delete(ctx context.Context, id string) error {
	query := `
        UPDATE loops
        SET deleted_at = NOW(), updated_at = NOW(), version = version + 1
        WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrLoopNotFound
	}

	return nil
}

func (r *PostgresLoopRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Loop, error) {
	query := `
        SELECT` + loopColumns + ` FROM loops
        WHERE user_id = $1 AND updated_at > $2
        ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("sync query error: %w", err)
	}
	defer rows.Close()

	var loops []*domain.Loop

	for rows.Next() {
		l, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sync row scan error: %w", err)
		}
		loops = append(loops, l)
	}

	return loops, nil
}

// UpdateStreaks writes the streak record directly, without touching the
// version column, so background recomputes never conflict with user edits.
func (r *PostgresLoopRepository) UpdateStreaks(ctx context.Context, id string, current, longest int, lastCompleted *time.Time) error {
	query := `
        UPDATE loops
        SET current_streak = $1, longest_streak = $2, last_completed_date = $3, updated_at = NOW()
        WHERE id = $4 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, current, longest, lastCompleted, id)
	if err != nil {
		return fmt.Errorf("streak update failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrLoopNotFound
	}

	return nil
}

// ListDueForReset feeds the reset worker: loops whose scheduled instant has
// passed, plus custom-rule loops that have never been scheduled (their
// eligibility is a per-day weekday check the worker performs itself).
func (r *PostgresLoopRepository) ListDueForReset(ctx context.Context, now time.Time) ([]*domain.Loop, error) {
	query := `
        SELECT` + loopColumns + ` FROM loops
        WHERE deleted_at IS NULL AND archived_at IS NULL
          AND (next_reset_at <= $1 OR (reset_rule = 'custom' AND next_reset_at IS NULL))
        ORDER BY next_reset_at ASC NULLS LAST`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("due loops query error: %w", err)
	}
	defer rows.Close()

	var loops []*domain.Loop

	for rows.Next() {
		l, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("due loops scan error: %w", err)
		}
		loops = append(loops, l)
	}

	return loops, nil
}
