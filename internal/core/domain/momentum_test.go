package domain_test

import (
	"testing"
	"time"

	"github.com/reloop-app/sync-engine/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMomentum(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)
	day := func(offset int) time.Time { return domain.DayOf(today).AddDate(0, 0, offset) }

	t.Run("Should emit exactly one point per day, oldest first", func(t *testing.T) {
		points := domain.GenerateMomentum(nil, 7, today)

		require.Len(t, points, 7)
		assert.True(t, points[0].Date.Equal(day(-6)))
		assert.True(t, points[6].Date.Equal(day(0)))
		for _, p := range points {
			assert.Zero(t, p.Intensity)
			assert.Zero(t, p.Completed)
			assert.Zero(t, p.Total)
		}
	})

	t.Run("Should weight today fully and the oldest day at 0.3", func(t *testing.T) {
		history := []*domain.CompletionRecord{
			record("l", day(0), 4, 4),
			record("l", day(-6), 4, 4),
		}

		points := domain.GenerateMomentum(history, 7, today)

		assert.InDelta(t, 1.0, points[6].Intensity, 1e-9)
		assert.InDelta(t, 0.3, points[0].Intensity, 1e-9)
	})

	t.Run("Should scale intensity by the day's completion rate", func(t *testing.T) {
		history := []*domain.CompletionRecord{
			record("l", day(0), 1, 4),
		}

		points := domain.GenerateMomentum(history, 7, today)

		assert.InDelta(t, 0.25, points[6].Intensity, 1e-9)
		assert.Equal(t, 1, points[6].Completed)
		assert.Equal(t, 4, points[6].Total)
	})

	t.Run("Should never exceed 1.0", func(t *testing.T) {
		history := []*domain.CompletionRecord{
			record("l", day(0), 8, 4), // counters drifted past total
		}

		points := domain.GenerateMomentum(history, 7, today)
		assert.Equal(t, 1.0, points[6].Intensity)
	})

	t.Run("Should weight a single-day window fully", func(t *testing.T) {
		history := []*domain.CompletionRecord{
			record("l", day(0), 2, 2),
		}

		points := domain.GenerateMomentum(history, 1, today)

		require.Len(t, points, 1)
		assert.InDelta(t, 1.0, points[0].Intensity, 1e-9)
	})

	t.Run("Should return an empty series for non-positive windows", func(t *testing.T) {
		assert.Empty(t, domain.GenerateMomentum(nil, 0, today))
		assert.Empty(t, domain.GenerateMomentum(nil, -3, today))
	})

	t.Run("Should ignore history outside the window", func(t *testing.T) {
		history := []*domain.CompletionRecord{
			record("l", day(-30), 5, 5),
		}

		points := domain.GenerateMomentum(history, 7, today)
		for _, p := range points {
			assert.Zero(t, p.Intensity)
		}
	})
}
