package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLoopNotFound = errors.New("loop not found")
	ErrLoopConflict = errors.New("loop version conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

type LoopRepository interface {
	// Create persists a new loop definition in the storage.
	Create(ctx context.Context, loop *Loop) error

	// GetByID retrieves a loop by its unique identifier.
	GetByID(ctx context.Context, id string) (*Loop, error)

	// ListByUserID retrieves all loops associated with a specific user.
	ListByUserID(ctx context.Context, userID string) ([]*Loop, error)

	// Update modifies the state of an existing loop. Implementations must
	// enforce optimistic locking on the version column.
	Update(ctx context.Context, loop *Loop) error

	// Delete removes a loop from the system.
	Delete(ctx context.Context, id string) error

	// GetChanges [SYNC] Returns only the deltas (changes) occurring after a
	// specific date. Crucial for offline-first synchronization.
	GetChanges(ctx context.Context, userID string, since time.Time) ([]*Loop, error)

	// UpdateStreaks persists the per-loop streak record without bumping the
	// loop version.
	UpdateStreaks(ctx context.Context, id string, current, longest int, lastCompleted *time.Time) error

	// ListDueForReset returns loops whose next_reset_at has passed, plus
	// custom-rule loops, which carry no scheduled instant and are evaluated
	// per-day by the reset worker.
	ListDueForReset(ctx context.Context, now time.Time) ([]*Loop, error)
}
