package domain_test

import (
	"testing"

	"github.com/reloop-app/sync-engine/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedTask(id string, oneTime bool) *domain.Task {
	t := makeTask(id, nil, 0)
	t.OneTime = oneTime
	t.Completed = true
	return t
}

func TestReloop(t *testing.T) {
	t.Parallel()

	t.Run("Should uncheck recurring tasks and leave one-time tasks alone", func(t *testing.T) {
		recurring := completedTask("r1", false)
		oneTime := completedTask("o1", true)
		untouched := makeTask("r2", nil, 1)

		changed := domain.Reloop([]*domain.Task{recurring, oneTime, untouched})

		require.Equal(t, 1, changed)
		assert.False(t, recurring.Completed, "recurring task must be unchecked")
		assert.True(t, oneTime.Completed, "one-time task keeps its completed state")
		assert.False(t, untouched.Completed, "incomplete task stays incomplete")
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		tasks := []*domain.Task{completedTask("r1", false), completedTask("r2", false)}

		assert.Equal(t, 2, domain.Reloop(tasks))
		assert.Equal(t, 0, domain.Reloop(tasks))
	})

	t.Run("Should handle an empty task list", func(t *testing.T) {
		assert.Equal(t, 0, domain.Reloop(nil))
	})
}

func TestResetAll(t *testing.T) {
	t.Parallel()

	recurring := completedTask("r1", false)
	oneTime := completedTask("o1", true)

	changed := domain.ResetAll([]*domain.Task{recurring, oneTime})

	require.Equal(t, 2, changed)
	assert.False(t, recurring.Completed)
	assert.False(t, oneTime.Completed, "one-time tasks are unchecked too")

	assert.Equal(t, 0, domain.ResetAll([]*domain.Task{recurring, oneTime}))
}

func TestCountRecurring(t *testing.T) {
	t.Parallel()

	tasks := []*domain.Task{
		makeTask("r1", nil, 0),
		completedTask("r2", false),
		completedTask("o1", true),
	}

	assert.Equal(t, 2, domain.CountRecurring(tasks))
	assert.Equal(t, 0, domain.CountRecurring(nil))
}
