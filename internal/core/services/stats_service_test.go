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

func newStatsFixture(t *testing.T) (*StatsService, *repository.InMemoryLoopRepository, *repository.InMemoryCompletionRepository, *domain.Loop) {
	t.Helper()

	loops := repository.NewInMemoryLoopRepository()
	records := repository.NewInMemoryCompletionRepository()

	loop, err := NewLoopService(loops, nil).Create(context.Background(), CreateLoopInput{
		UserID:    "user-1",
		Title:     "Morning Routine",
		ResetRule: "daily",
	})
	require.NoError(t, err)

	return NewStatsService(loops, records), loops, records, loop
}

func seedHistory(t *testing.T, records *repository.InMemoryCompletionRepository, loopID string, offsets []int) {
	t.Helper()
	ctx := context.Background()
	today := time.Now().UTC()

	for _, off := range offsets {
		rec := domain.NewCompletionRecord(loopID, today.AddDate(0, 0, off), 2, 2)
		require.NoError(t, records.Upsert(ctx, rec))
	}
}

func TestStatsService_GetMomentum(t *testing.T) {
	t.Parallel()

	t.Run("Success: Should default the window and size the series exactly", func(t *testing.T) {
		svc, _, records, loop := newStatsFixture(t)
		seedHistory(t, records, loop.ID, []int{0, -1})

		points, err := svc.GetMomentum(context.Background(), loop.ID, "user-1", 0)
		require.NoError(t, err)
		require.Len(t, points, domain.DefaultMomentumDays)

		// Today sits at the end of the series with full weight.
		last := points[len(points)-1]
		assert.InDelta(t, 1.0, last.Intensity, 1e-9)
	})

	t.Run("Fail: Should hide foreign loops", func(t *testing.T) {
		svc, _, _, loop := newStatsFixture(t)

		_, err := svc.GetMomentum(context.Background(), loop.ID, "intruder", 7)
		assert.ErrorIs(t, err, domain.ErrLoopNotFound)
	})
}

func TestStatsService_GetStreak(t *testing.T) {
	t.Parallel()

	t.Run("Success: Should derive the streak from history and persist it", func(t *testing.T) {
		svc, loops, records, loop := newStatsFixture(t)
		ctx := context.Background()
		seedHistory(t, records, loop.ID, []int{0, -1, -2, -5})

		summary, err := svc.GetStreak(ctx, loop.ID, "user-1")
		require.NoError(t, err)

		assert.Equal(t, 3, summary.CurrentStreak)
		assert.Equal(t, 3, summary.LongestStreak)

		stored, err := loops.GetByID(ctx, loop.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.CurrentStreak)
		assert.Equal(t, 3, stored.LongestStreak)
	})

	t.Run("Success: Should never lower a previously earned longest streak", func(t *testing.T) {
		svc, loops, records, loop := newStatsFixture(t)
		ctx := context.Background()

		require.NoError(t, loops.UpdateStreaks(ctx, loop.ID, 0, 10, nil))
		seedHistory(t, records, loop.ID, []int{0, -1})

		summary, err := svc.GetStreak(ctx, loop.ID, "user-1")
		require.NoError(t, err)

		assert.Equal(t, 2, summary.CurrentStreak)
		assert.Equal(t, 10, summary.LongestStreak)
	})

	t.Run("Success: Empty history yields zeroes", func(t *testing.T) {
		svc, _, _, loop := newStatsFixture(t)

		summary, err := svc.GetStreak(context.Background(), loop.ID, "user-1")
		require.NoError(t, err)
		assert.Zero(t, summary.CurrentStreak)
		assert.Zero(t, summary.LongestStreak)
	})
}
