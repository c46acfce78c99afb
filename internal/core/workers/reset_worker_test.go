package workers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reloop-app/sync-engine/internal/adapters/repository"
	"github.com/reloop-app/sync-engine/internal/core/domain"
	"github.com/reloop-app/sync-engine/internal/core/services"
)

type workerFixture struct {
	worker *ResetWorker
	runner *services.ResetService
	loops  *repository.InMemoryLoopRepository
	tasks  *repository.InMemoryTaskRepository
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	loops := repository.NewInMemoryLoopRepository()
	tasks := repository.NewInMemoryTaskRepository()
	runner := services.NewResetService(loops, tasks, nil)

	return &workerFixture{
		worker: NewResetWorker(loops, runner, time.Minute),
		runner: runner,
		loops:  loops,
		tasks:  tasks,
	}
}

func (f *workerFixture) seedLoop(t *testing.T, rule domain.ResetRule, customDays []int, nextReset *time.Time) *domain.Loop {
	t.Helper()
	ctx := context.Background()

	loop, err := domain.NewLoop("user-1", "Routine", "", "", "", rule, "", 0, customDays)
	require.NoError(t, err)
	loop.NextResetAt = nextReset
	require.NoError(t, f.loops.Create(ctx, loop))

	task, err := domain.NewTask(loop.ID, "Stretch", false, nil)
	require.NoError(t, err)
	task.Completed = true
	require.NoError(t, f.tasks.Create(ctx, task))

	return loop
}

func TestResetWorker_Sweep(t *testing.T) {
	t.Parallel()

	t.Run("Should reset a loop whose scheduled instant has passed", func(t *testing.T) {
		f := newWorkerFixture(t)
		ctx := context.Background()

		past := time.Now().UTC().Add(-1 * time.Hour)
		loop := f.seedLoop(t, domain.ResetDaily, nil, &past)

		f.worker.Sweep(ctx, time.Now().UTC())

		tasks, err := f.tasks.ListByLoopID(ctx, loop.ID)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.False(t, tasks[0].Completed)

		stored, err := f.loops.GetByID(ctx, loop.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.NextResetAt)
		assert.True(t, stored.NextResetAt.After(time.Now().UTC()))
	})

	t.Run("Should leave loops alone before their scheduled instant", func(t *testing.T) {
		f := newWorkerFixture(t)
		ctx := context.Background()

		future := time.Now().UTC().Add(1 * time.Hour)
		loop := f.seedLoop(t, domain.ResetDaily, nil, &future)

		f.worker.Sweep(ctx, time.Now().UTC())

		tasks, err := f.tasks.ListByLoopID(ctx, loop.ID)
		require.NoError(t, err)
		assert.True(t, tasks[0].Completed)
	})

	t.Run("Should reset a custom loop on a configured weekday and book the next day", func(t *testing.T) {
		f := newWorkerFixture(t)
		ctx := context.Background()

		now := time.Now().UTC()
		loop := f.seedLoop(t, domain.ResetCustom, []int{int(now.Weekday())}, nil)

		f.worker.Sweep(ctx, now)

		tasks, err := f.tasks.ListByLoopID(ctx, loop.ID)
		require.NoError(t, err)
		assert.False(t, tasks[0].Completed)

		// Bookkeeping prevents a second reset today: the next eligible
		// day boundary is stored, a week out for a single-day rule.
		stored, err := f.loops.GetByID(ctx, loop.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.NextResetAt)
		assert.True(t, stored.NextResetAt.Equal(domain.DayOf(now).AddDate(0, 0, 7)))
	})

	t.Run("Should not reset a custom loop again after a manual reloop", func(t *testing.T) {
		f := newWorkerFixture(t)
		ctx := context.Background()

		now := time.Now().UTC()
		loop := f.seedLoop(t, domain.ResetCustom, []int{int(now.Weekday())}, nil)

		f.worker.Sweep(ctx, now)

		// The user reloops by hand later the same day, then completes a
		// task again.
		_, err := f.runner.Reloop(ctx, loop.ID, "user-1")
		require.NoError(t, err)

		tasks, err := f.tasks.ListByLoopID(ctx, loop.ID)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		require.NoError(t, f.tasks.UpdateCompleted(ctx, tasks[0].ID, true))

		f.worker.Sweep(ctx, now)

		tasks, err = f.tasks.ListByLoopID(ctx, loop.ID)
		require.NoError(t, err)
		assert.True(t, tasks[0].Completed, "progress made after the manual reloop must survive the next sweep")
	})

	t.Run("Should skip a custom loop on an unconfigured weekday", func(t *testing.T) {
		f := newWorkerFixture(t)
		ctx := context.Background()

		now := time.Now().UTC()
		otherDay := (int(now.Weekday()) + 1) % 7
		loop := f.seedLoop(t, domain.ResetCustom, []int{otherDay}, nil)

		f.worker.Sweep(ctx, now)

		tasks, err := f.tasks.ListByLoopID(ctx, loop.ID)
		require.NoError(t, err)
		assert.True(t, tasks[0].Completed)
	})

	t.Run("Should never touch manual loops", func(t *testing.T) {
		f := newWorkerFixture(t)
		ctx := context.Background()

		loop := f.seedLoop(t, domain.ResetManual, nil, nil)

		f.worker.Sweep(ctx, time.Now().UTC())

		tasks, err := f.tasks.ListByLoopID(ctx, loop.ID)
		require.NoError(t, err)
		assert.True(t, tasks[0].Completed)
	})
}

func TestResetWorker_Wake(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t)

	// A second Wake before the sweep runs must not block.
	f.worker.Wake()
	f.worker.Wake()

	ctx, cancel := context.WithCancel(context.Background())
	f.worker.Start(ctx)

	past := time.Now().UTC().Add(-1 * time.Hour)
	loop := f.seedLoop(t, domain.ResetDaily, nil, &past)

	f.worker.Wake()

	require.Eventually(t, func() bool {
		tasks, err := f.tasks.ListByLoopID(context.Background(), loop.ID)
		return err == nil && len(tasks) == 1 && !tasks[0].Completed
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
}
