package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/reloop-app/sync-engine/internal/core/domain"
)

type InMemoryLoopRepository struct {
	store map[string]*domain.Loop

	mu sync.RWMutex
}

func NewInMemoryLoopRepository() *InMemoryLoopRepository {
	return &InMemoryLoopRepository{
		store: make(map[string]*domain.Loop),
	}
}

func (r *InMemoryLoopRepository) Create(ctx context.Context, loop *domain.Loop) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *loop
	r.store[loop.ID] = &clone
	return nil
}

func (r *InMemoryLoopRepository) GetByID(ctx context.Context, id string) (*domain.Loop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loop, ok := r.store[id]
	if !ok || loop.DeletedAt != nil {
		return nil, domain.ErrLoopNotFound
	}
	clone := *loop
	return &clone, nil
}

func (r *InMemoryLoopRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Loop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var loops []*domain.Loop
	for _, l := range r.store {
		if l.UserID == userID && l.DeletedAt == nil {
			clone := *l
			loops = append(loops, &clone)
		}
	}

	sort.Slice(loops, func(i, j int) bool {
		return loops[i].CreatedAt.After(loops[j].CreatedAt)
	})

	return loops, nil
}

func (r *InMemoryLoopRepository) Update(ctx context.Context, loop *domain.Loop) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.store[loop.ID]
	if !ok || existing.DeletedAt != nil {
		return domain.ErrLoopNotFound
	}
	if existing.Version != loop.Version {
		return domain.ErrLoopConflict
	}

	clone := *loop
	clone.Version = existing.Version + 1
	r.store[loop.ID] = &clone
	loop.Version = clone.Version
	return nil
}

func (r *InMemoryLoopRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	loop, ok := r.store[id]
	if !ok || loop.DeletedAt != nil {
		return domain.ErrLoopNotFound
	}

	now := time.Now().UTC()
	loop.DeletedAt = &now
	return nil
}

func (r *InMemoryLoopRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Loop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var loops []*domain.Loop
	for _, l := range r.store {
		if l.UserID == userID && l.UpdatedAt.After(since) {
			clone := *l
			loops = append(loops, &clone)
		}
	}

	sort.Slice(loops, func(i, j int) bool {
		return loops[i].UpdatedAt.Before(loops[j].UpdatedAt)
	})

	return loops, nil
}

func (r *InMemoryLoopRepository) UpdateStreaks(ctx context.Context, id string, current, longest int, lastCompleted *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	loop, ok := r.store[id]
	if !ok || loop.DeletedAt != nil {
		return domain.ErrLoopNotFound
	}

	loop.CurrentStreak = current
	loop.LongestStreak = longest
	loop.LastCompletedDate = lastCompleted
	loop.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryLoopRepository) ListDueForReset(ctx context.Context, now time.Time) ([]*domain.Loop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var loops []*domain.Loop
	for _, l := range r.store {
		if l.DeletedAt != nil || l.ArchivedAt != nil {
			continue
		}
		due := l.NextResetAt != nil && !l.NextResetAt.After(now)
		custom := l.ResetRule == domain.ResetCustom && l.NextResetAt == nil
		if due || custom {
			clone := *l
			loops = append(loops, &clone)
		}
	}

	return loops, nil
}

type InMemoryTaskRepository struct {
	store    map[string]*domain.Task
	archived []*domain.ArchivedTask

	mu sync.RWMutex
}

func NewInMemoryTaskRepository() *InMemoryTaskRepository {
	return &InMemoryTaskRepository{
		store: make(map[string]*domain.Task),
	}
}

func (r *InMemoryTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *task
	r.store[task.ID] = &clone
	return nil
}

func (r *InMemoryTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.store[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	clone := *task
	return &clone, nil
}

func (r *InMemoryTaskRepository) ListByLoopID(ctx context.Context, loopID string) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tasks []*domain.Task
	for _, t := range r.store {
		if t.LoopID == loopID {
			clone := *t
			tasks = append(tasks, &clone)
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].OrderIndex < tasks[j].OrderIndex
	})

	return tasks, nil
}

func (r *InMemoryTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}

	clone := *task
	r.store[task.ID] = &clone
	return nil
}

func (r *InMemoryTaskRepository) ApplySync(ctx context.Context, loopID string, records []domain.SyncRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		task, ok := r.store[rec.ID]
		if !ok || task.LoopID != loopID {
			continue
		}
		task.OrderIndex = rec.OrderIndex
		task.ParentID = rec.ParentID
		task.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *InMemoryTaskRepository) UpdateCompleted(ctx context.Context, id string, completed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.store[id]
	if !ok {
		return domain.ErrTaskNotFound
	}

	task.Completed = completed
	task.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryTaskRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return domain.ErrTaskNotFound
	}

	for _, t := range r.store {
		if t.ParentID != nil && *t.ParentID == id {
			t.ParentID = nil
		}
	}

	delete(r.store, id)
	return nil
}

func (r *InMemoryTaskRepository) Archive(ctx context.Context, archived *domain.ArchivedTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *archived
	r.archived = append(r.archived, &clone)
	return nil
}

// Archived exposes archived records for assertions in tests.
func (r *InMemoryTaskRepository) Archived() []*domain.ArchivedTask {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.ArchivedTask, len(r.archived))
	copy(out, r.archived)
	return out
}

type InMemoryCompletionRepository struct {
	store map[string]map[time.Time]*domain.CompletionRecord

	mu sync.RWMutex
}

func NewInMemoryCompletionRepository() *InMemoryCompletionRepository {
	return &InMemoryCompletionRepository{
		store: make(map[string]map[time.Time]*domain.CompletionRecord),
	}
}

func (r *InMemoryCompletionRepository) Upsert(ctx context.Context, record *domain.CompletionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := domain.DayOf(record.Date)
	if _, ok := r.store[record.LoopID]; !ok {
		r.store[record.LoopID] = make(map[time.Time]*domain.CompletionRecord)
	}

	clone := *record
	clone.Date = day
	r.store[record.LoopID][day] = &clone
	return nil
}

func (r *InMemoryCompletionRepository) ListByLoopID(ctx context.Context, loopID string) ([]*domain.CompletionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []*domain.CompletionRecord
	for _, rec := range r.store[loopID] {
		clone := *rec
		records = append(records, &clone)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	return records, nil
}

type InMemoryUserRepository struct {
	users map[string]*domain.User

	mu sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrEmailAlreadyExists
		}
	}

	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}
