package domain_test

import (
	"testing"
	"time"

	"github.com/reloop-app/sync-engine/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTask(id string, parentID *string, order int) *domain.Task {
	now := time.Now().UTC()
	return &domain.Task{
		ID:          id,
		LoopID:      "loop-1",
		Description: "task " + id,
		ParentID:    parentID,
		OrderIndex:  order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ptr(s string) *string { return &s }

// ids walks one level of the forest and returns the task ids in order.
func ids(nodes []*domain.TaskNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Task.ID)
	}
	return out
}

func TestBuildTree(t *testing.T) {
	t.Parallel()

	t.Run("Should group children and sort siblings by order index", func(t *testing.T) {
		tasks := []*domain.Task{
			makeTask("b", nil, 1),
			makeTask("a", nil, 0),
			makeTask("a2", ptr("a"), 1),
			makeTask("a1", ptr("a"), 0),
		}

		forest := domain.BuildTree(tasks)

		require.Equal(t, []string{"a", "b"}, ids(forest))
		require.Equal(t, []string{"a1", "a2"}, ids(forest[0].Children))
		assert.Equal(t, 0, forest[0].Depth)
		assert.Equal(t, 1, forest[0].Children[0].Depth)
	})

	t.Run("Should hoist tasks with a missing parent to top level", func(t *testing.T) {
		tasks := []*domain.Task{
			makeTask("a", nil, 0),
			makeTask("orphan", ptr("gone"), 5),
		}

		forest := domain.BuildTree(tasks)

		require.Len(t, forest, 2)
		assert.Equal(t, []string{"a", "orphan"}, ids(forest))
		assert.Equal(t, 0, forest[1].Depth)
	})

	t.Run("Should handle an empty task list", func(t *testing.T) {
		assert.Empty(t, domain.BuildTree(nil))
	})
}

func TestPromote(t *testing.T) {
	t.Parallel()

	// A contains B, B contains C.
	buildNested := func() []*domain.TaskNode {
		return domain.BuildTree([]*domain.Task{
			makeTask("a", nil, 0),
			makeTask("b", ptr("a"), 0),
			makeTask("c", ptr("b"), 0),
		})
	}

	t.Run("Should reinsert the task right after its former parent", func(t *testing.T) {
		forest := domain.Promote(buildNested(), "c")

		require.Equal(t, []string{"a"}, ids(forest))
		require.Equal(t, []string{"b", "c"}, ids(forest[0].Children))

		c := forest[0].Children[1]
		require.NotNil(t, c.Task.ParentID)
		assert.Equal(t, "a", *c.Task.ParentID)
		assert.Equal(t, 1, c.Depth)
		assert.Equal(t, 1, c.Task.OrderIndex)
		assert.Empty(t, forest[0].Children[0].Children)
	})

	t.Run("Should promote a child of a top-level task to top level", func(t *testing.T) {
		forest := domain.BuildTree([]*domain.Task{
			makeTask("a", nil, 0),
			makeTask("b", ptr("a"), 0),
			makeTask("z", nil, 1),
		})

		forest = domain.Promote(forest, "b")

		require.Equal(t, []string{"a", "b", "z"}, ids(forest))
		assert.Nil(t, forest[1].Task.ParentID)
		assert.Equal(t, 0, forest[1].Depth)
		assert.Equal(t, []int{0, 1, 2}, []int{
			forest[0].Task.OrderIndex,
			forest[1].Task.OrderIndex,
			forest[2].Task.OrderIndex,
		})
	})

	t.Run("Should no-op for a top-level task", func(t *testing.T) {
		forest := buildNested()
		assert.Equal(t, forest, domain.Promote(forest, "a"))
	})

	t.Run("Should no-op for an unknown id", func(t *testing.T) {
		forest := buildNested()
		assert.Equal(t, forest, domain.Promote(forest, "nope"))
	})
}

func TestNestUnder(t *testing.T) {
	t.Parallel()

	build := func() []*domain.TaskNode {
		return domain.BuildTree([]*domain.Task{
			makeTask("a", nil, 0),
			makeTask("b", ptr("a"), 0),
			makeTask("c", ptr("b"), 0),
			makeTask("x", nil, 1),
		})
	}

	t.Run("Should append the task to the new parent's children", func(t *testing.T) {
		forest := domain.NestUnder(build(), "x", "b")

		require.Equal(t, []string{"a"}, ids(forest))
		b := forest[0].Children[0]
		require.Equal(t, []string{"c", "x"}, ids(b.Children))

		x := b.Children[1]
		require.NotNil(t, x.Task.ParentID)
		assert.Equal(t, "b", *x.Task.ParentID)
		assert.Equal(t, 2, x.Depth)
		assert.Equal(t, 1, x.Task.OrderIndex)
	})

	t.Run("Should reject nesting under the task itself", func(t *testing.T) {
		forest := build()
		assert.Equal(t, forest, domain.NestUnder(forest, "a", "a"))
	})

	t.Run("Should reject nesting under a descendant", func(t *testing.T) {
		forest := build()
		got := domain.NestUnder(forest, "a", "c")
		assert.Equal(t, forest, got)
	})

	t.Run("Should no-op for unknown task or parent", func(t *testing.T) {
		forest := build()
		assert.Equal(t, forest, domain.NestUnder(forest, "nope", "a"))
		assert.Equal(t, forest, domain.NestUnder(forest, "x", "nope"))
	})
}

func TestReorder(t *testing.T) {
	t.Parallel()

	build := func() []*domain.TaskNode {
		return domain.BuildTree([]*domain.Task{
			makeTask("a", nil, 0),
			makeTask("b", nil, 1),
			makeTask("c", nil, 2),
		})
	}

	t.Run("Should move a task within its sibling group", func(t *testing.T) {
		forest := domain.Reorder(build(), "c", 0)

		require.Equal(t, []string{"c", "a", "b"}, ids(forest))
		for i, n := range forest {
			assert.Equal(t, i, n.Task.OrderIndex)
		}
	})

	t.Run("Should clamp out-of-range positions", func(t *testing.T) {
		forest := domain.Reorder(build(), "a", 99)
		assert.Equal(t, []string{"b", "c", "a"}, ids(forest))

		forest = domain.Reorder(build(), "c", -5)
		assert.Equal(t, []string{"c", "a", "b"}, ids(forest))
	})

	t.Run("Should no-op when the position is unchanged", func(t *testing.T) {
		forest := build()
		assert.Equal(t, forest, domain.Reorder(forest, "b", 1))
	})

	t.Run("Should no-op for an unknown id", func(t *testing.T) {
		forest := build()
		assert.Equal(t, forest, domain.Reorder(forest, "nope", 0))
	})
}

func TestFlattenForSync(t *testing.T) {
	t.Parallel()

	forest := domain.BuildTree([]*domain.Task{
		makeTask("a", nil, 0),
		makeTask("a1", ptr("a"), 0),
		makeTask("a2", ptr("a"), 1),
		makeTask("b", nil, 1),
	})

	records := domain.FlattenForSync(forest)
	require.Len(t, records, 4)

	byID := make(map[string]domain.SyncRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	assert.Nil(t, byID["a"].ParentID)
	assert.Equal(t, 0, byID["a"].OrderIndex)
	assert.Nil(t, byID["b"].ParentID)
	assert.Equal(t, 1, byID["b"].OrderIndex)

	require.NotNil(t, byID["a1"].ParentID)
	assert.Equal(t, "a", *byID["a1"].ParentID)
	assert.Equal(t, 0, byID["a1"].OrderIndex)
	assert.Equal(t, 1, byID["a2"].OrderIndex)
}

func TestRebuildIndices(t *testing.T) {
	t.Parallel()

	// Sparse indices collapse to dense 0..n-1 per sibling group.
	forest := domain.BuildTree([]*domain.Task{
		makeTask("a", nil, 10),
		makeTask("b", nil, 50),
		makeTask("b1", ptr("b"), 7),
	})

	domain.RebuildIndices(forest)

	assert.Equal(t, 0, forest[0].Task.OrderIndex)
	assert.Equal(t, 1, forest[1].Task.OrderIndex)
	assert.Equal(t, 0, forest[1].Children[0].Task.OrderIndex)
	assert.Equal(t, 3, domain.CountNodes(forest))
}
