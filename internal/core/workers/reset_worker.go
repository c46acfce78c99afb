package workers

import (
	"context"
	"log"
	"time"

	"github.com/reloop-app/sync-engine/internal/core/domain"
	"github.com/reloop-app/sync-engine/internal/core/services"
)

type LoopRepository interface {
	ListDueForReset(ctx context.Context, now time.Time) ([]*domain.Loop, error)
}

type ResetRunner interface {
	Reloop(ctx context.Context, loopID, userID string) (*services.ResetOutcome, error)
}

// ResetWorker sweeps for loops whose scheduled reset has come due and
// applies the recurrence-aware reset. Custom-rule loops carry no scheduled
// instant from the policy itself; the worker evaluates their weekday set
// each sweep, and the reset service books the next eligible day into
// next_reset_at so a loop is not reset twice in one day.
type ResetWorker struct {
	repo     LoopRepository
	runner   ResetRunner
	interval time.Duration
	wake     chan struct{}
}

func NewResetWorker(repo LoopRepository, runner ResetRunner, interval time.Duration) *ResetWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ResetWorker{
		repo:     repo,
		runner:   runner,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

func (w *ResetWorker) Start(ctx context.Context) {
	go func() {
		log.Println("Reset Worker started in background...")
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.Sweep(ctx, time.Now().UTC())
			case <-w.wake:
				w.Sweep(ctx, time.Now().UTC())
			case <-ctx.Done():
				log.Println("Reset Worker shutting down...")
				return
			}
		}
	}()
}

// Wake triggers an immediate sweep without waiting for the next tick.
func (w *ResetWorker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Sweep processes every due loop once. Exported so a cron-style external
// trigger (or a test) can drive the worker directly.
func (w *ResetWorker) Sweep(ctx context.Context, now time.Time) {
	loops, err := w.repo.ListDueForReset(ctx, now)
	if err != nil {
		log.Printf("Reset Worker: failed to list due loops: %v", err)
		return
	}

	for _, loop := range loops {
		if !w.eligible(loop, now) {
			continue
		}
		w.process(ctx, loop)
	}
}

func (w *ResetWorker) eligible(loop *domain.Loop, now time.Time) bool {
	if loop.NextResetAt != nil {
		return !loop.NextResetAt.After(now)
	}

	// No scheduled instant: manual loops never auto-reset, custom loops
	// reset on their configured weekdays.
	if loop.ResetRule != domain.ResetCustom {
		return false
	}
	return domain.ResetsOn(loop.ResetRule, loop.CustomResetDays, now.Weekday())
}

func (w *ResetWorker) process(ctx context.Context, loop *domain.Loop) {
	outcome, err := w.runner.Reloop(ctx, loop.ID, loop.UserID)
	if err != nil {
		log.Printf("Reset Worker: failed to reset loop %s: %v", loop.ID, err)
		return
	}

	log.Printf("Reset Worker: loop %s reset (%d tasks)", loop.ID, outcome.TasksReset)
}
