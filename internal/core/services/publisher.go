package services

import (
	"context"
	"time"
)

const (
	ChangeLoopCreated = "loop_created"
	ChangeLoopUpdated = "loop_updated"
	ChangeLoopDeleted = "loop_deleted"
	ChangeLoopReset   = "loop_reset"
	ChangeTasksSynced = "tasks_synced"
)

// ChangeEvent is the at-least-once, best-effort cue delivered to connected
// clients. Consumers treat it purely as a signal to re-fetch; re-deriving
// from a fresh snapshot is always safe and idempotent.
type ChangeEvent struct {
	UserID string    `json:"user_id"`
	LoopID string    `json:"loop_id"`
	Kind   string    `json:"kind"`
	At     time.Time `json:"at"`
}

// ChangePublisher fans change cues out to the realtime collaborator.
// Publish failures are logged by implementations, never surfaced to the
// mutation path.
type ChangePublisher interface {
	PublishChange(ctx context.Context, event ChangeEvent)
}
