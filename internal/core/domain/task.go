package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTaskDescEmpty     = errors.New("task description cannot be empty")
	ErrTaskInvalidLoopID = errors.New("invalid loop id")
)

// Task is a node in a loop's task tree. One-time tasks are excluded from
// recurrence resets and are archived then deleted once completed.
type Task struct {
	ID          string  `json:"id" db:"id"`
	LoopID      string  `json:"loop_id" db:"loop_id"`
	Description string  `json:"description" db:"description"`
	Completed   bool    `json:"completed" db:"completed"`
	OneTime     bool    `json:"one_time" db:"one_time"`
	ParentID    *string `json:"parent_task_id,omitempty" db:"parent_task_id"`
	OrderIndex  int     `json:"order_index" db:"order_index"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func NewTask(loopID, description string, oneTime bool, parentID *string) (*Task, error) {
	if loopID == "" {
		return nil, ErrTaskInvalidLoopID
	}

	desc := strings.TrimSpace(description)
	if desc == "" {
		return nil, ErrTaskDescEmpty
	}

	now := time.Now().UTC()

	return &Task{
		ID:          uuid.New().String(),
		LoopID:      loopID,
		Description: desc,
		OneTime:     oneTime,
		ParentID:    parentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (t *Task) Recurring() bool {
	return !t.OneTime
}

func (t *Task) SetCompleted(completed bool) {
	if t.Completed == completed {
		return
	}
	t.Completed = completed
	t.UpdatedAt = time.Now().UTC()
}

// ArchivedTask is the record kept when a completed one-time task is removed
// from its loop.
type ArchivedTask struct {
	ID          string    `json:"id" db:"id"`
	TaskID      string    `json:"task_id" db:"task_id"`
	LoopID      string    `json:"loop_id" db:"loop_id"`
	Description string    `json:"description" db:"description"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
	ArchivedAt  time.Time `json:"archived_at" db:"archived_at"`
}

func NewArchivedTask(t *Task) *ArchivedTask {
	now := time.Now().UTC()
	return &ArchivedTask{
		ID:          uuid.New().String(),
		TaskID:      t.ID,
		LoopID:      t.LoopID,
		Description: t.Description,
		CompletedAt: t.UpdatedAt,
		ArchivedAt:  now,
	}
}
