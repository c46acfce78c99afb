package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reloop-app/sync-engine/internal/core/domain"
)

func TestInMemoryLoopRepository_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	newRepoWithLoop := func(t *testing.T) (*InMemoryLoopRepository, *domain.Loop) {
		t.Helper()
		repo := NewInMemoryLoopRepository()
		loop, err := domain.NewLoop("user-1", "Morning Routine", "", "", "", domain.ResetDaily, "", 0, nil)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, loop))
		return repo, loop
	}

	t.Run("Should bump the version on a matching update", func(t *testing.T) {
		repo, loop := newRepoWithLoop(t)

		loop.Title = "Evening Routine"
		require.NoError(t, repo.Update(ctx, loop))
		assert.Equal(t, 2, loop.Version)

		stored, err := repo.GetByID(ctx, loop.ID)
		require.NoError(t, err)
		assert.Equal(t, "Evening Routine", stored.Title)
		assert.Equal(t, 2, stored.Version)
	})

	t.Run("Should reject a stale version", func(t *testing.T) {
		repo, loop := newRepoWithLoop(t)

		stale := *loop
		loop.Title = "First write"
		require.NoError(t, repo.Update(ctx, loop))

		stale.Title = "Replayed write"
		assert.ErrorIs(t, repo.Update(ctx, &stale), domain.ErrLoopConflict)

		stored, err := repo.GetByID(ctx, loop.ID)
		require.NoError(t, err)
		assert.Equal(t, "First write", stored.Title)
	})

	t.Run("Should report unknown and deleted loops as not found", func(t *testing.T) {
		repo, loop := newRepoWithLoop(t)

		missing := *loop
		missing.ID = "nope"
		assert.ErrorIs(t, repo.Update(ctx, &missing), domain.ErrLoopNotFound)

		require.NoError(t, repo.Delete(ctx, loop.ID))
		assert.ErrorIs(t, repo.Update(ctx, loop), domain.ErrLoopNotFound)
	})
}
