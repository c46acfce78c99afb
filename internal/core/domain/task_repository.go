package domain

import (
	"context"
	"errors"
)

var (
	ErrTaskNotFound = errors.New("task not found")
)

type TaskRepository interface {
	// Create persists a new task.
	Create(ctx context.Context, task *Task) error

	// GetByID retrieves a single task by its ID.
	GetByID(ctx context.Context, id string) (*Task, error)

	// ListByLoopID retrieves a loop's full task set ordered by sibling
	// index. This is the snapshot the tree engine operates on.
	ListByLoopID(ctx context.Context, loopID string) ([]*Task, error)

	// Update modifies an existing task's fields.
	Update(ctx context.Context, task *Task) error

	// ApplySync applies a flattened tree as a set of per-id
	// {order_index, parent_task_id} updates. No transaction is assumed
	// across records; callers must tolerate partial application and re-sync.
	ApplySync(ctx context.Context, loopID string, records []SyncRecord) error

	// UpdateCompleted flips a single task's completed flag.
	UpdateCompleted(ctx context.Context, id string, completed bool) error

	// Delete permanently removes a task.
	Delete(ctx context.Context, id string) error

	// Archive inserts an archived-task record for a completed one-time task.
	Archive(ctx context.Context, archived *ArchivedTask) error
}

type CompletionRepository interface {
	// Upsert records or replaces the completion summary for a loop's
	// calendar day. At most one record exists per loop per day.
	Upsert(ctx context.Context, record *CompletionRecord) error

	// ListByLoopID returns a loop's completion history ordered by date.
	ListByLoopID(ctx context.Context, loopID string) ([]*CompletionRecord, error)
}
