package services

import (
	"context"
	"time"

	"github.com/reloop-app/sync-engine/internal/core/domain"
)

type StatsService struct {
	loopRepo       domain.LoopRepository
	completionRepo domain.CompletionRepository
}

func NewStatsService(loopRepo domain.LoopRepository, completionRepo domain.CompletionRepository) *StatsService {
	return &StatsService{
		loopRepo:       loopRepo,
		completionRepo: completionRepo,
	}
}

type StreakSummary struct {
	LoopID            string     `json:"loop_id"`
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	LastCompletedDate *time.Time `json:"last_completed_date,omitempty"`
}

func (s *StatsService) ownedLoop(ctx context.Context, loopID, userID string) (*domain.Loop, error) {
	loop, err := s.loopRepo.GetByID(ctx, loopID)
	if err != nil {
		return nil, err
	}
	if loop.UserID != userID {
		return nil, domain.ErrLoopNotFound
	}
	return loop, nil
}

// GetMomentum derives the recency-weighted intensity series for a loop from
// its completion history. Recomputed on every read; nothing is persisted.
func (s *StatsService) GetMomentum(ctx context.Context, loopID, userID string, days int) ([]domain.MomentumPoint, error) {
	if _, err := s.ownedLoop(ctx, loopID, userID); err != nil {
		return nil, err
	}

	if days <= 0 {
		days = domain.DefaultMomentumDays
	}

	history, err := s.completionRepo.ListByLoopID(ctx, loopID)
	if err != nil {
		return nil, err
	}

	return domain.GenerateMomentum(history, days, time.Now().UTC()), nil
}

// GetStreak recomputes the calendar-day streak from the completion history
// and reconciles it with the persisted per-loop record. The longest streak
// never reports lower than what the loop already earned.
func (s *StatsService) GetStreak(ctx context.Context, loopID, userID string) (*StreakSummary, error) {
	loop, err := s.ownedLoop(ctx, loopID, userID)
	if err != nil {
		return nil, err
	}

	history, err := s.completionRepo.ListByLoopID(ctx, loopID)
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC()
	current := domain.CurrentStreak(history, today)
	longest := domain.LongestStreak(history)
	if loop.LongestStreak > longest {
		longest = loop.LongestStreak
	}
	if current > longest {
		longest = current
	}

	if current != loop.CurrentStreak || longest != loop.LongestStreak {
		if err := s.loopRepo.UpdateStreaks(ctx, loopID, current, longest, loop.LastCompletedDate); err != nil {
			return nil, err
		}
	}

	return &StreakSummary{
		LoopID:            loopID,
		CurrentStreak:     current,
		LongestStreak:     longest,
		LastCompletedDate: loop.LastCompletedDate,
	}, nil
}
