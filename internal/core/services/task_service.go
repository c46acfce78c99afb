package services

import (
	"context"
	"log"
	"time"

	"github.com/reloop-app/sync-engine/internal/core/domain"
)

type TaskService struct {
	repo           domain.TaskRepository
	loopRepo       domain.LoopRepository
	completionRepo domain.CompletionRepository
	publisher      ChangePublisher
}

func NewTaskService(repo domain.TaskRepository, loopRepo domain.LoopRepository, completionRepo domain.CompletionRepository, publisher ChangePublisher) *TaskService {
	return &TaskService{
		repo:           repo,
		loopRepo:       loopRepo,
		completionRepo: completionRepo,
		publisher:      publisher,
	}
}

type CreateTaskInput struct {
	LoopID      string
	UserID      string
	Description string
	OneTime     bool
	ParentID    *string
}

func (s *TaskService) ownedLoop(ctx context.Context, loopID, userID string) (*domain.Loop, error) {
	loop, err := s.loopRepo.GetByID(ctx, loopID)
	if err != nil {
		return nil, err
	}
	if loop.UserID != userID {
		return nil, domain.ErrLoopNotFound
	}
	return loop, nil
}

func (s *TaskService) Create(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	loop, err := s.ownedLoop(ctx, input.LoopID, input.UserID)
	if err != nil {
		return nil, err
	}

	task, err := domain.NewTask(input.LoopID, input.Description, input.OneTime, input.ParentID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.repo.ListByLoopID(ctx, input.LoopID)
	if err != nil {
		return nil, err
	}

	// Append at the end of its sibling group.
	siblings := 0
	for _, t := range tasks {
		if equalParent(t.ParentID, input.ParentID) {
			siblings++
		}
	}
	task.OrderIndex = siblings

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.recalcAndSave(ctx, loop, append(tasks, task))
	s.notify(ctx, loop.UserID, loop.ID, ChangeTasksSynced)

	return task, nil
}

// ListTree returns the loop's task set hydrated as an ordered forest.
func (s *TaskService) ListTree(ctx context.Context, loopID, userID string) ([]*domain.TaskNode, error) {
	if _, err := s.ownedLoop(ctx, loopID, userID); err != nil {
		return nil, err
	}

	tasks, err := s.repo.ListByLoopID(ctx, loopID)
	if err != nil {
		return nil, err
	}

	return domain.BuildTree(tasks), nil
}

// ToggleComplete flips a task's completed state. Completing a one-time task
// archives it and removes it from the loop instead of keeping it around for
// the next cycle. The loop's counters and today's completion record are
// rederived from the surviving task set.
func (s *TaskService) ToggleComplete(ctx context.Context, taskID, userID string) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	loop, err := s.ownedLoop(ctx, task.LoopID, userID)
	if err != nil {
		return nil, err
	}

	task.SetCompleted(!task.Completed)

	if task.OneTime && task.Completed {
		if err := s.repo.Archive(ctx, domain.NewArchivedTask(task)); err != nil {
			return nil, err
		}
		if err := s.repo.Delete(ctx, task.ID); err != nil {
			return nil, err
		}
	} else {
		if err := s.repo.UpdateCompleted(ctx, task.ID, task.Completed); err != nil {
			return nil, err
		}
	}

	tasks, err := s.repo.ListByLoopID(ctx, task.LoopID)
	if err != nil {
		return nil, err
	}

	s.recalcAndSave(ctx, loop, tasks)
	s.recordToday(ctx, loop)
	s.notify(ctx, loop.UserID, loop.ID, ChangeTasksSynced)

	return task, nil
}

type treeMutation func(forest []*domain.TaskNode) []*domain.TaskNode

func (s *TaskService) mutateTree(ctx context.Context, loopID, userID string, mutate treeMutation) ([]*domain.TaskNode, error) {
	loop, err := s.ownedLoop(ctx, loopID, userID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.repo.ListByLoopID(ctx, loopID)
	if err != nil {
		return nil, err
	}

	forest := mutate(domain.BuildTree(tasks))

	records := domain.FlattenForSync(forest)
	if err := s.repo.ApplySync(ctx, loopID, records); err != nil {
		return nil, err
	}

	s.notify(ctx, loop.UserID, loop.ID, ChangeTasksSynced)

	return forest, nil
}

// Promote lifts a nested task up one level, making it a sibling of its
// former parent. Unknown or already top-level tasks leave the tree as-is.
func (s *TaskService) Promote(ctx context.Context, loopID, taskID, userID string) ([]*domain.TaskNode, error) {
	return s.mutateTree(ctx, loopID, userID, func(forest []*domain.TaskNode) []*domain.TaskNode {
		return domain.Promote(forest, taskID)
	})
}

// NestUnder reparents a task as the last child of another task. Cycle-
// inducing requests are rejected and the tree persists unchanged.
func (s *TaskService) NestUnder(ctx context.Context, loopID, taskID, newParentID, userID string) ([]*domain.TaskNode, error) {
	return s.mutateTree(ctx, loopID, userID, func(forest []*domain.TaskNode) []*domain.TaskNode {
		return domain.NestUnder(forest, taskID, newParentID)
	})
}

// Reorder moves a task to a new position among its current siblings.
func (s *TaskService) Reorder(ctx context.Context, loopID, taskID string, position int, userID string) ([]*domain.TaskNode, error) {
	return s.mutateTree(ctx, loopID, userID, func(forest []*domain.TaskNode) []*domain.TaskNode {
		return domain.Reorder(forest, taskID, position)
	})
}

func (s *TaskService) Delete(ctx context.Context, taskID, userID string) error {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	loop, err := s.ownedLoop(ctx, task.LoopID, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, taskID); err != nil {
		return err
	}

	tasks, err := s.repo.ListByLoopID(ctx, task.LoopID)
	if err != nil {
		return err
	}

	// Children of the deleted task survive; rebuild indices so every
	// sibling group stays a dense permutation.
	forest := domain.RebuildIndices(domain.BuildTree(tasks))
	if err := s.repo.ApplySync(ctx, task.LoopID, domain.FlattenForSync(forest)); err != nil {
		return err
	}

	s.recalcAndSave(ctx, loop, tasks)
	s.notify(ctx, loop.UserID, loop.ID, ChangeTasksSynced)

	return nil
}

func (s *TaskService) recalcAndSave(ctx context.Context, loop *domain.Loop, tasks []*domain.Task) {
	loop.RecalcCounters(tasks)
	if err := s.loopRepo.Update(ctx, loop); err != nil {
		log.Printf("task service: failed to update counters for loop %s: %v", loop.ID, err)
	}
}

func (s *TaskService) recordToday(ctx context.Context, loop *domain.Loop) {
	record := domain.NewCompletionRecord(loop.ID, time.Now().UTC(), loop.CompletedTasks, loop.TotalTasks)
	if err := s.completionRepo.Upsert(ctx, record); err != nil {
		log.Printf("task service: failed to upsert completion record for loop %s: %v", loop.ID, err)
	}
}

func (s *TaskService) notify(ctx context.Context, userID, loopID, kind string) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishChange(ctx, ChangeEvent{
		UserID: userID,
		LoopID: loopID,
		Kind:   kind,
		At:     time.Now().UTC(),
	})
}

func equalParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
