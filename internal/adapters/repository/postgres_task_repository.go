package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/reloop-app/sync-engine/internal/core/domain"
)

type PostgresTaskRepository struct {
	db *sqlx.DB
}

func NewPostgresTaskRepository(db *sqlx.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

func (r *PostgresTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	query := `
		INSERT INTO tasks (
			id, loop_id, description, completed, one_time,
			parent_task_id, order_index, created_at, updated_at
		) VALUES (
			:id, :loop_id, :description, :completed, :one_time,
			:parent_task_id, :order_index, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, task)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23503" {
				return errors.New("referenced loop or parent task does not exist")
			}
		}
		return err
	}
	return nil
}

func (r *PostgresTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	query := `SELECT * FROM tasks WHERE id = $1`

	err := r.db.GetContext(ctx, &task, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *PostgresTaskRepository) ListByLoopID(ctx context.Context, loopID string) ([]*domain.Task, error) {
	tasks := []*domain.Task{}

	query := `
		SELECT * FROM tasks
		WHERE loop_id = $1
		ORDER BY parent_task_id NULLS FIRST, order_index ASC`

	err := r.db.SelectContext(ctx, &tasks, query, loopID)
	if err != nil {
		return nil, fmt.Errorf("task list query failed: %w", err)
	}

	return tasks, nil
}

func (r *PostgresTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	query := `
		UPDATE tasks SET
			description = :description, completed = :completed, one_time = :one_time,
			parent_task_id = :parent_task_id, order_index = :order_index,
			updated_at = NOW()
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, task)
	if err != nil {
		return fmt.Errorf("task update failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// ApplySync persists a flattened tree as independent per-id updates. No
// transaction spans the records: a failure mid-way leaves earlier updates
// applied, which callers recover from by re-fetching and re-flattening.
func (r *PostgresTaskRepository) ApplySync(ctx context.Context, loopID string, records []domain.SyncRecord) error {
	query := `
		UPDATE tasks
		SET order_index = $1, parent_task_id = $2, updated_at = NOW()
		WHERE id = $3 AND loop_id = $4`

	for _, rec := range records {
		if _, err := r.db.ExecContext(ctx, query, rec.OrderIndex, rec.ParentID, rec.ID, loopID); err != nil {
			return fmt.Errorf("tree sync failed at task %s: %w", rec.ID, err)
		}
	}
	return nil
}

func (r *PostgresTaskRepository) UpdateCompleted(ctx context.Context, id string, completed bool) error {
	query := `UPDATE tasks SET completed = $1, updated_at = NOW() WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, completed, id)
	if err != nil {
		return fmt.Errorf("task completion update failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *PostgresTaskRepository) Delete(ctx context.Context, id string) error {
	// Children are reparented to the top level rather than cascaded away.
	reparent := `UPDATE tasks SET parent_task_id = NULL, updated_at = NOW() WHERE parent_task_id = $1`
	if _, err := r.db.ExecContext(ctx, reparent, id); err != nil {
		return fmt.Errorf("task reparent failed: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("task delete failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *PostgresTaskRepository) Archive(ctx context.Context, archived *domain.ArchivedTask) error {
	query := `
		INSERT INTO archived_tasks (
			id, task_id, loop_id, description, completed_at, archived_at
		) VALUES (
			:id, :task_id, :loop_id, :description, :completed_at, :archived_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, archived)
	if err != nil {
		return fmt.Errorf("task archive failed: %w", err)
	}
	return nil
}
