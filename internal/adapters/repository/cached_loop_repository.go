package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/reloop-app/sync-engine/internal/core/domain"
	"github.com/redis/go-redis/v9"
)

var _ domain.LoopRepository = (*CachedLoopRepository)(nil)

// CachedLoopRepository is a cache-aside decorator over another
// LoopRepository. Only the per-user list is cached; every write invalidates
// the owner's entry.
type CachedLoopRepository struct {
	next  domain.LoopRepository
	cache *redis.Client
}

func NewCachedLoopRepository(next domain.LoopRepository, cache *redis.Client) *CachedLoopRepository {
	return &CachedLoopRepository{
		next:  next,
		cache: cache,
	}
}

func (r *CachedLoopRepository) cacheKey(userID string) string {
	return fmt.Sprintf("loops:%s", userID)
}

func (r *CachedLoopRepository) invalidate(ctx context.Context, userID string) {
	if err := r.cache.Del(ctx, r.cacheKey(userID)).Err(); err != nil {
		log.Printf("[CACHE] Failed to invalidate for user %s: %v", userID, err)
	}
}

func (r *CachedLoopRepository) invalidateByLoopID(ctx context.Context, id string) {
	loop, err := r.next.GetByID(ctx, id)
	if err == nil && loop != nil {
		r.invalidate(ctx, loop.UserID)
	}
}

func (r *CachedLoopRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Loop, error) {
	key := r.cacheKey(userID)

	val, err := r.cache.Get(ctx, key).Result()
	if err == nil {
		var loops []*domain.Loop
		if err := json.Unmarshal([]byte(val), &loops); err == nil {
			return loops, nil
		}

		log.Printf("[CACHE] Corrupted data for user %s, cleaning up key", userID)
		r.cache.Del(ctx, key)
	} else if err != redis.Nil {
		log.Printf("[CACHE] Redis read error: %v", err)
	}

	loops, err := r.next.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(loops); err == nil {
		if setErr := r.cache.Set(ctx, key, data, 30*time.Minute).Err(); setErr != nil {
			log.Printf("[CACHE] Redis set error: %v", setErr)
		}
	}

	return loops, nil
}

func (r *CachedLoopRepository) GetByID(ctx context.Context, id string) (*domain.Loop, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedLoopRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Loop, error) {
	return r.next.GetChanges(ctx, userID, since)
}

func (r *CachedLoopRepository) ListDueForReset(ctx context.Context, now time.Time) ([]*domain.Loop, error) {
	return r.next.ListDueForReset(ctx, now)
}

func (r *CachedLoopRepository) Create(ctx context.Context, loop *domain.Loop) error {
	if err := r.next.Create(ctx, loop); err != nil {
		return err
	}
	r.invalidate(ctx, loop.UserID)
	return nil
}

func (r *CachedLoopRepository) Update(ctx context.Context, loop *domain.Loop) error {
	if err := r.next.Update(ctx, loop); err != nil {
		return err
	}
	r.invalidate(ctx, loop.UserID)
	return nil
}

func (r *CachedLoopRepository) Delete(ctx context.Context, id string) error {
	loop, err := r.next.GetByID(ctx, id)
	if err == nil && loop != nil {
		defer r.invalidate(ctx, loop.UserID)
	}

	return r.next.Delete(ctx, id)
}

func (r *CachedLoopRepository) UpdateStreaks(ctx context.Context, id string, current, longest int, lastCompleted *time.Time) error {
	defer r.invalidateByLoopID(ctx, id)
	return r.next.UpdateStreaks(ctx, id, current, longest, lastCompleted)
}
