package services

import (
	"context"
	"fmt"
	"time"

	"github.com/reloop-app/sync-engine/internal/core/domain"
)

type LoopService struct {
	repo      domain.LoopRepository
	publisher ChangePublisher
}

func NewLoopService(repo domain.LoopRepository, publisher ChangePublisher) *LoopService {
	return &LoopService{
		repo:      repo,
		publisher: publisher,
	}
}

type CreateLoopInput struct {
	UserID          string
	Title           string
	Description     string
	Kind            string
	Color           string
	PracticeMode    bool
	ResetRule       string
	ResetTime       string
	ResetDayOfWeek  int
	CustomResetDays []int
}

type UpdateLoopInput struct {
	ID              string
	UserID          string
	Title           string
	Description     string
	Kind            string
	Color           string
	ResetRule       string
	ResetTime       string
	ResetDayOfWeek  int
	CustomResetDays []int
	Version         int
}

func mergeString(newVal, oldVal string) string {
	if newVal == "" {
		return oldVal
	}
	return newVal
}

func (s *LoopService) Create(ctx context.Context, input CreateLoopInput) (*domain.Loop, error) {
	loop, err := domain.NewLoop(
		input.UserID,
		input.Title,
		input.Description,
		input.Kind,
		input.Color,
		domain.ResetRule(input.ResetRule),
		input.ResetTime,
		input.ResetDayOfWeek,
		input.CustomResetDays,
	)
	if err != nil {
		return nil, err
	}

	loop.PracticeMode = input.PracticeMode

	if err := s.repo.Create(ctx, loop); err != nil {
		return nil, err
	}

	s.notify(ctx, loop.UserID, loop.ID, ChangeLoopCreated)

	return loop, nil
}

func (s *LoopService) GetByID(ctx context.Context, id, userID string) (*domain.Loop, error) {
	loop, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loop.UserID != userID {
		return nil, domain.ErrLoopNotFound
	}
	return loop, nil
}

func (s *LoopService) ListByUserID(ctx context.Context, userID string) ([]*domain.Loop, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *LoopService) GetDelta(ctx context.Context, userID string, lastSync time.Time) ([]*domain.Loop, error) {
	return s.repo.GetChanges(ctx, userID, lastSync)
}

func (s *LoopService) Update(ctx context.Context, input UpdateLoopInput) (*domain.Loop, error) {
	loop, err := s.GetByID(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Version > 0 && loop.Version != input.Version {
		return nil, fmt.Errorf("%w: client v%d vs server v%d", domain.ErrLoopConflict, input.Version, loop.Version)
	}

	title := mergeString(input.Title, loop.Title)
	desc := mergeString(input.Description, loop.Description)
	kind := mergeString(input.Kind, loop.Kind)
	color := mergeString(input.Color, loop.Color)

	rule := loop.ResetRule
	if input.ResetRule != "" {
		rule = domain.ResetRule(input.ResetRule)
	}

	resetTime := mergeString(input.ResetTime, loop.ResetTime)

	customDays := loop.CustomResetDays
	if input.CustomResetDays != nil {
		customDays = input.CustomResetDays
	}

	ruleChanged := rule != loop.ResetRule

	err = loop.Update(title, desc, kind, color, rule, resetTime, input.ResetDayOfWeek, customDays)
	if err != nil {
		return nil, err
	}

	if ruleChanged {
		loop.NextResetAt = domain.NextReset(rule, time.Now().UTC())
	}

	if err := s.repo.Update(ctx, loop); err != nil {
		return nil, err
	}

	s.notify(ctx, loop.UserID, loop.ID, ChangeLoopUpdated)

	return loop, nil
}

func (s *LoopService) ToggleFavorite(ctx context.Context, id, userID string) (*domain.Loop, error) {
	loop, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	loop.ToggleFavorite()

	if err := s.repo.Update(ctx, loop); err != nil {
		return nil, err
	}

	s.notify(ctx, loop.UserID, loop.ID, ChangeLoopUpdated)

	return loop, nil
}

func (s *LoopService) Delete(ctx context.Context, id string, userID string) error {
	loop, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if loop.UserID != userID {
		return domain.ErrLoopNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.notify(ctx, userID, id, ChangeLoopDeleted)

	return nil
}

func (s *LoopService) notify(ctx context.Context, userID, loopID, kind string) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishChange(ctx, ChangeEvent{
		UserID: userID,
		LoopID: loopID,
		Kind:   kind,
		At:     time.Now().UTC(),
	})
}
