package domain

import "sort"

// TaskNode is a task hydrated with its resolved children. The tree engine
// is pure data transformation: every operation either returns a structurally
// valid forest or the input unchanged. Invalid requests (unknown ids,
// cycle-inducing moves) degrade to no-ops rather than raising, since this
// logic runs interactively and must never leave the tree corrupted.
type TaskNode struct {
	Task     *Task       `json:"task"`
	Depth    int         `json:"depth"`
	Children []*TaskNode `json:"children,omitempty"`
}

// SyncRecord is the per-node update produced by FlattenForSync. Callers
// apply the output as a set of per-id updates; list order is insignificant.
type SyncRecord struct {
	ID         string  `json:"id"`
	OrderIndex int     `json:"order_index"`
	ParentID   *string `json:"parent_task_id"`
}

// BuildTree hydrates a forest from a flat task list: children grouped by
// parent id, each sibling group sorted by order index, depth stamped from 0
// at the top level. Tasks referencing a missing parent are treated as
// top-level rather than dropped.
func BuildTree(tasks []*Task) []*TaskNode {
	byID := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	children := make(map[string][]*Task)
	var roots []*Task
	for _, t := range tasks {
		if t.ParentID != nil {
			if _, ok := byID[*t.ParentID]; ok {
				children[*t.ParentID] = append(children[*t.ParentID], t)
				continue
			}
		}
		roots = append(roots, t)
	}

	var hydrate func(group []*Task, depth int) []*TaskNode
	hydrate = func(group []*Task, depth int) []*TaskNode {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].OrderIndex < group[j].OrderIndex
		})

		nodes := make([]*TaskNode, 0, len(group))
		for _, t := range group {
			nodes = append(nodes, &TaskNode{
				Task:     t,
				Depth:    depth,
				Children: hydrate(children[t.ID], depth+1),
			})
		}
		return nodes
	}

	return hydrate(roots, 0)
}

// RebuildIndices reassigns each sibling's order index to its position in the
// sibling list (0..n-1), recursively. Pure and total.
func RebuildIndices(forest []*TaskNode) []*TaskNode {
	for i, node := range forest {
		node.Task.OrderIndex = i
		RebuildIndices(node.Children)
	}
	return forest
}

// FlattenForSync walks the forest depth-first and emits one sync record per
// node carrying its index among its current siblings and its resolved parent
// id (nil at top level).
func FlattenForSync(forest []*TaskNode) []SyncRecord {
	var records []SyncRecord

	var walk func(nodes []*TaskNode, parentID *string)
	walk = func(nodes []*TaskNode, parentID *string) {
		for i, node := range nodes {
			records = append(records, SyncRecord{
				ID:         node.Task.ID,
				OrderIndex: i,
				ParentID:   parentID,
			})
			id := node.Task.ID
			walk(node.Children, &id)
		}
	}

	walk(forest, nil)
	return records
}

// locate finds the node with the given id along with its parent node (nil
// when top-level) and its index in the sibling list it currently occupies.
func locate(forest []*TaskNode, taskID string) (node, parent *TaskNode, index int) {
	var search func(nodes []*TaskNode, p *TaskNode) (*TaskNode, *TaskNode, int)
	search = func(nodes []*TaskNode, p *TaskNode) (*TaskNode, *TaskNode, int) {
		for i, n := range nodes {
			if n.Task.ID == taskID {
				return n, p, i
			}
			if found, fp, fi := search(n.Children, n); found != nil {
				return found, fp, fi
			}
		}
		return nil, nil, -1
	}
	return search(forest, nil)
}

// descendantSet returns the closed set of a node's id plus all descendant
// ids. Membership in this set is the cycle check for NestUnder.
func descendantSet(node *TaskNode) map[string]bool {
	set := make(map[string]bool)

	var walk func(n *TaskNode)
	walk = func(n *TaskNode) {
		set[n.Task.ID] = true
		for _, c := range n.Children {
			walk(c)
		}
	}

	walk(node)
	return set
}

func restampDepths(forest []*TaskNode, depth int) {
	for _, n := range forest {
		n.Depth = depth
		restampDepths(n.Children, depth+1)
	}
}

func removeAt(nodes []*TaskNode, i int) []*TaskNode {
	out := make([]*TaskNode, 0, len(nodes)-1)
	out = append(out, nodes[:i]...)
	return append(out, nodes[i+1:]...)
}

func insertAt(nodes []*TaskNode, i int, node *TaskNode) []*TaskNode {
	out := make([]*TaskNode, 0, len(nodes)+1)
	out = append(out, nodes[:i]...)
	out = append(out, node)
	return append(out, nodes[i:]...)
}

// Promote moves a task out of its parent's children and reinserts it as a
// sibling immediately after its former parent, inheriting the former
// parent's own parent. No-op when the task is unknown or already top-level.
func Promote(forest []*TaskNode, taskID string) []*TaskNode {
	node, parent, index := locate(forest, taskID)
	if node == nil || parent == nil {
		return forest
	}

	parent.Children = removeAt(parent.Children, index)

	_, grandparent, parentIndex := locate(forest, parent.Task.ID)
	if grandparent == nil {
		node.Task.ParentID = nil
		forest = insertAt(forest, parentIndex+1, node)
	} else {
		gpID := grandparent.Task.ID
		node.Task.ParentID = &gpID
		grandparent.Children = insertAt(grandparent.Children, parentIndex+1, node)
	}

	restampDepths(forest, 0)
	return RebuildIndices(forest)
}

// NestUnder moves a task to the end of another task's children. The move is
// rejected (input returned unchanged) when either id is unknown, the target
// is the task itself, or the target sits inside the task's own subtree.
func NestUnder(forest []*TaskNode, taskID, newParentID string) []*TaskNode {
	if taskID == newParentID {
		return forest
	}

	node, parent, index := locate(forest, taskID)
	if node == nil {
		return forest
	}

	if descendantSet(node)[newParentID] {
		return forest
	}

	newParent, _, _ := locate(forest, newParentID)
	if newParent == nil {
		return forest
	}

	if parent == nil {
		forest = removeAt(forest, index)
	} else {
		parent.Children = removeAt(parent.Children, index)
	}

	pid := newParent.Task.ID
	node.Task.ParentID = &pid
	newParent.Children = append(newParent.Children, node)

	restampDepths(forest, 0)
	return RebuildIndices(forest)
}

// Reorder moves a task to a new position within its current sibling group.
// Positions are clamped to the group bounds; unknown ids are no-ops.
func Reorder(forest []*TaskNode, taskID string, position int) []*TaskNode {
	node, parent, index := locate(forest, taskID)
	if node == nil {
		return forest
	}

	siblings := forest
	if parent != nil {
		siblings = parent.Children
	}

	if position < 0 {
		position = 0
	}
	if position > len(siblings)-1 {
		position = len(siblings) - 1
	}
	if position == index {
		return forest
	}

	siblings = removeAt(siblings, index)
	siblings = insertAt(siblings, position, node)

	if parent != nil {
		parent.Children = siblings
	} else {
		forest = siblings
	}

	return RebuildIndices(forest)
}

// CountNodes returns the number of tasks in the forest.
func CountNodes(forest []*TaskNode) int {
	count := 0
	for _, n := range forest {
		count += 1 + CountNodes(n.Children)
	}
	return count
}
