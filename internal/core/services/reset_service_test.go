package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reloop-app/sync-engine/internal/adapters/repository"
	"github.com/reloop-app/sync-engine/internal/core/domain"
)

type resetFixture struct {
	svc   *ResetService
	tasks *TaskService
	loops *repository.InMemoryLoopRepository
	store *repository.InMemoryTaskRepository
	pub   *capturePublisher
	loop  *domain.Loop
}

func newResetFixture(t *testing.T, practiceMode bool) *resetFixture {
	t.Helper()

	loops := repository.NewInMemoryLoopRepository()
	store := repository.NewInMemoryTaskRepository()
	records := repository.NewInMemoryCompletionRepository()
	pub := &capturePublisher{}

	loop, err := NewLoopService(loops, nil).Create(context.Background(), CreateLoopInput{
		UserID:       "user-1",
		Title:        "Morning Routine",
		ResetRule:    "daily",
		PracticeMode: practiceMode,
	})
	require.NoError(t, err)

	return &resetFixture{
		svc:   NewResetService(loops, store, pub),
		tasks: NewTaskService(store, loops, records, nil),
		loops: loops,
		store: store,
		pub:   pub,
		loop:  loop,
	}
}

func (f *resetFixture) addCompleted(t *testing.T, description string, oneTime bool) *domain.Task {
	t.Helper()
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, CreateTaskInput{
		LoopID:      f.loop.ID,
		UserID:      "user-1",
		Description: description,
		OneTime:     oneTime,
	})
	require.NoError(t, err)

	if !oneTime {
		_, err = f.tasks.ToggleComplete(ctx, task.ID, "user-1")
		require.NoError(t, err)
	} else {
		// Complete one-time tasks directly; toggling would archive them.
		require.NoError(t, f.store.UpdateCompleted(ctx, task.ID, true))
	}
	return task
}

func TestResetService_Reloop(t *testing.T) {
	t.Parallel()

	t.Run("Success: Should uncheck recurring tasks and reschedule", func(t *testing.T) {
		f := newResetFixture(t, false)
		ctx := context.Background()

		recurring := f.addCompleted(t, "Stretch", false)
		oneTime := f.addCompleted(t, "Buy mat", true)

		outcome, err := f.svc.Reloop(ctx, f.loop.ID, "user-1")
		require.NoError(t, err)

		assert.Equal(t, 1, outcome.TasksReset)
		assert.Equal(t, 1, outcome.RecurringTasks)
		require.NotNil(t, outcome.Loop.NextResetAt)
		assert.True(t, outcome.Loop.NextResetAt.After(time.Now().UTC()))

		storedRecurring, err := f.store.GetByID(ctx, recurring.ID)
		require.NoError(t, err)
		assert.False(t, storedRecurring.Completed)

		storedOneTime, err := f.store.GetByID(ctx, oneTime.ID)
		require.NoError(t, err)
		assert.True(t, storedOneTime.Completed, "one-time state survives a reloop")

		assert.Contains(t, f.pub.kinds(), ChangeLoopReset)
	})

	t.Run("Success: Should book the next configured day for custom rules", func(t *testing.T) {
		loops := repository.NewInMemoryLoopRepository()
		store := repository.NewInMemoryTaskRepository()
		svc := NewResetService(loops, store, nil)
		ctx := context.Background()

		now := time.Now().UTC()
		loop, err := NewLoopService(loops, nil).Create(ctx, CreateLoopInput{
			UserID:          "user-1",
			Title:           "Gym",
			ResetRule:       "custom",
			CustomResetDays: []int{int(now.Weekday())},
		})
		require.NoError(t, err)

		outcome, err := svc.Reloop(ctx, loop.ID, "user-1")
		require.NoError(t, err)

		// A manual reloop must not clear the worker's day bookkeeping,
		// or the next sweep would reset the loop a second time today.
		require.NotNil(t, outcome.Loop.NextResetAt)
		assert.True(t, outcome.Loop.NextResetAt.Equal(domain.DayOf(now).AddDate(0, 0, 7)))
	})

	t.Run("Success: Should be idempotent", func(t *testing.T) {
		f := newResetFixture(t, false)
		ctx := context.Background()
		f.addCompleted(t, "Stretch", false)

		first, err := f.svc.Reloop(ctx, f.loop.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 1, first.TasksReset)

		second, err := f.svc.Reloop(ctx, f.loop.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 0, second.TasksReset)
	})

	t.Run("Success: Practice mode earns a streak day when the loop was complete", func(t *testing.T) {
		f := newResetFixture(t, true)
		ctx := context.Background()
		f.addCompleted(t, "Practice scales", false)

		outcome, err := f.svc.Reloop(ctx, f.loop.ID, "user-1")
		require.NoError(t, err)

		assert.Equal(t, 1, outcome.Loop.CurrentStreak)
		require.NotNil(t, outcome.Loop.LastCompletedDate)
	})

	t.Run("Success: Practice mode earns nothing on an incomplete loop", func(t *testing.T) {
		f := newResetFixture(t, true)
		ctx := context.Background()
		f.addCompleted(t, "Practice scales", false)

		task, err := f.tasks.Create(ctx, CreateTaskInput{
			LoopID:      f.loop.ID,
			UserID:      "user-1",
			Description: "Practice arpeggios",
		})
		require.NoError(t, err)
		_ = task

		outcome, err := f.svc.Reloop(ctx, f.loop.ID, "user-1")
		require.NoError(t, err)
		assert.Zero(t, outcome.Loop.CurrentStreak)
	})

	t.Run("Fail: Should hide foreign loops", func(t *testing.T) {
		f := newResetFixture(t, false)

		_, err := f.svc.Reloop(context.Background(), f.loop.ID, "intruder")
		assert.ErrorIs(t, err, domain.ErrLoopNotFound)
	})

	t.Run("Success: Worker calls skip the ownership check", func(t *testing.T) {
		f := newResetFixture(t, false)

		_, err := f.svc.Reloop(context.Background(), f.loop.ID, "")
		assert.NoError(t, err)
	})
}

func TestResetService_ResetAll(t *testing.T) {
	t.Parallel()

	f := newResetFixture(t, false)
	ctx := context.Background()

	recurring := f.addCompleted(t, "Stretch", false)
	oneTime := f.addCompleted(t, "Buy mat", true)

	outcome, err := f.svc.ResetAll(ctx, f.loop.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.TasksReset)

	for _, id := range []string{recurring.ID, oneTime.ID} {
		stored, err := f.store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, stored.Completed)
	}
}
