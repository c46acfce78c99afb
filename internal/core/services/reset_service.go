package services

import (
	"context"
	"log"
	"time"

	"github.com/reloop-app/sync-engine/internal/core/domain"
)

type ResetService struct {
	loopRepo  domain.LoopRepository
	taskRepo  domain.TaskRepository
	publisher ChangePublisher
}

func NewResetService(loopRepo domain.LoopRepository, taskRepo domain.TaskRepository, publisher ChangePublisher) *ResetService {
	return &ResetService{
		loopRepo:  loopRepo,
		taskRepo:  taskRepo,
		publisher: publisher,
	}
}

// ResetOutcome reports what a reset changed, so callers can warn when a
// reloop touched nothing (a loop with zero recurring tasks).
type ResetOutcome struct {
	Loop           *domain.Loop `json:"loop"`
	TasksReset     int          `json:"tasks_reset"`
	RecurringTasks int          `json:"recurring_tasks"`
}

// Reloop applies the recurrence-aware reset to a loop: recurring tasks
// revert to incomplete, one-time tasks keep their state. The loop's
// next_reset_at is recomputed from its rule, and practice-mode loops that
// stood at 100% before the reset earn a streak day.
func (s *ResetService) Reloop(ctx context.Context, loopID, userID string) (*ResetOutcome, error) {
	return s.reset(ctx, loopID, userID, domain.Reloop)
}

// ResetAll forces every task in the loop back to incomplete regardless of
// the one-time flag. The caller is expected to have confirmed the action on
// an in-progress loop; the engine resets unconditionally once invoked.
func (s *ResetService) ResetAll(ctx context.Context, loopID, userID string) (*ResetOutcome, error) {
	return s.reset(ctx, loopID, userID, domain.ResetAll)
}

func (s *ResetService) reset(ctx context.Context, loopID, userID string, apply func([]*domain.Task) int) (*ResetOutcome, error) {
	loop, err := s.loopRepo.GetByID(ctx, loopID)
	if err != nil {
		return nil, err
	}
	if userID != "" && loop.UserID != userID {
		return nil, domain.ErrLoopNotFound
	}

	tasks, err := s.taskRepo.ListByLoopID(ctx, loopID)
	if err != nil {
		return nil, err
	}

	wasComplete := loop.IsComplete()

	changed := apply(tasks)

	for _, t := range tasks {
		if err := s.taskRepo.UpdateCompleted(ctx, t.ID, t.Completed); err != nil {
			// Partial application is tolerated; the next sync re-derives
			// from whatever state actually persisted.
			log.Printf("reset service: failed to persist task %s: %v", t.ID, err)
		}
	}

	loop.RecalcCounters(tasks)

	now := time.Now().UTC()
	if loop.ResetRule == domain.ResetCustom {
		// The policy schedules no instant for custom rules; book the next
		// configured weekday here so the sweep does not fire again today.
		loop.NextResetAt = domain.NextEligibleDay(loop.CustomResetDays, now)
	} else {
		loop.NextResetAt = domain.NextReset(loop.ResetRule, now)
	}

	if loop.PracticeMode && wasComplete {
		loop.RecordCompletion(now)
	}

	if err := s.loopRepo.Update(ctx, loop); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.PublishChange(ctx, ChangeEvent{
			UserID: loop.UserID,
			LoopID: loop.ID,
			Kind:   ChangeLoopReset,
			At:     now,
		})
	}

	return &ResetOutcome{
		Loop:           loop,
		TasksReset:     changed,
		RecurringTasks: domain.CountRecurring(tasks),
	}, nil
}
