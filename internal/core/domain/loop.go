package domain

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLoopTitleEmpty    = errors.New("loop title cannot be empty")
	ErrLoopTitleTooLong  = errors.New("loop title is too long (max 100 chars)")
	ErrLoopDescTooLong   = errors.New("loop description is too long (max 500 chars)")
	ErrLoopInvalidUserID = errors.New("invalid user id")
	ErrInvalidColor      = errors.New("invalid color format (must be #RRGGBB)")
	ErrInvalidResetRule  = errors.New("invalid reset rule")
	ErrInvalidResetDays  = errors.New("invalid custom reset days (must be 0-6)")
	ErrInvalidResetTime  = errors.New("invalid reset time format (must be HH:MM 24h)")
	ErrInvalidResetDay   = errors.New("invalid reset day of week (must be 0-6)")
	ErrLoopArchived      = errors.New("cannot update an archived loop")
)

var colorRegex = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
var resetTimeRegex = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

const (
	MaxTitleLen = 100
	MaxDescLen  = 500
)

// Loop is a named, colored, recurring checklist. Task counters are always
// recomputed from the live task set via RecalcCounters, never set directly.
type Loop struct {
	ID          string `json:"id" db:"id"`
	UserID      string `json:"user_id" db:"user_id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description,omitempty" db:"description"`
	Kind        string `json:"kind,omitempty" db:"kind"`
	Color       string `json:"color" db:"color"`
	Favorite    bool   `json:"favorite" db:"favorite"`

	// PracticeMode loops track streak continuity instead of task progress.
	PracticeMode bool `json:"practice_mode" db:"practice_mode"`

	ResetRule       ResetRule  `json:"reset_rule" db:"reset_rule"`
	CustomResetDays []int      `json:"custom_reset_days,omitempty"`
	ResetTime       string     `json:"reset_time,omitempty" db:"reset_time"`
	ResetDayOfWeek  int        `json:"reset_day_of_week" db:"reset_day_of_week"`
	NextResetAt     *time.Time `json:"next_reset_at,omitempty" db:"next_reset_at"`

	CurrentStreak     int        `json:"current_streak" db:"current_streak"`
	LongestStreak     int        `json:"longest_streak" db:"longest_streak"`
	LastCompletedDate *time.Time `json:"last_completed_date,omitempty" db:"last_completed_date"`

	TotalTasks     int `json:"total_tasks" db:"total_tasks"`
	CompletedTasks int `json:"completed_tasks" db:"completed_tasks"`

	Version    int        `json:"version" db:"version"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

func normalizeResetDays(days []int) []int {
	if len(days) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var unique []int
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			unique = append(unique, d)
		}
	}

	sort.Ints(unique)
	return unique
}

func validateLoop(title, desc, color string, rule ResetRule, resetTime string, resetDay int, customDays []int) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ErrLoopTitleEmpty
	}
	if len(trimmed) > MaxTitleLen {
		return ErrLoopTitleTooLong
	}

	if len(strings.TrimSpace(desc)) > MaxDescLen {
		return ErrLoopDescTooLong
	}

	if color != "" && !colorRegex.MatchString(color) {
		return ErrInvalidColor
	}

	if !rule.Valid() {
		return ErrInvalidResetRule
	}

	if resetTime != "" && !resetTimeRegex.MatchString(resetTime) {
		return ErrInvalidResetTime
	}

	if resetDay < 0 || resetDay > 6 {
		return ErrInvalidResetDay
	}

	for _, day := range customDays {
		if day < 0 || day > 6 {
			return ErrInvalidResetDays
		}
	}

	return nil
}

func NewLoop(userID, title, description, kind, color string, rule ResetRule, resetTime string, resetDay int, customDays []int) (*Loop, error) {
	if userID == "" {
		return nil, ErrLoopInvalidUserID
	}

	if rule == "" {
		rule = ResetManual
	}

	cleanDesc := strings.TrimSpace(description)

	if err := validateLoop(title, cleanDesc, color, rule, resetTime, resetDay, customDays); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	l := &Loop{
		ID:              uuid.New().String(),
		UserID:          userID,
		Title:           strings.TrimSpace(title),
		Description:     cleanDesc,
		Kind:            strings.TrimSpace(kind),
		Color:           color,
		ResetRule:       rule,
		CustomResetDays: normalizeResetDays(customDays),
		ResetTime:       resetTime,
		ResetDayOfWeek:  resetDay,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	l.NextResetAt = NextReset(rule, now)

	return l, nil
}

func (l *Loop) Update(title, description, kind, color string, rule ResetRule, resetTime string, resetDay int, customDays []int) error {
	if l.ArchivedAt != nil {
		return ErrLoopArchived
	}

	cleanDesc := strings.TrimSpace(description)

	if err := validateLoop(title, cleanDesc, color, rule, resetTime, resetDay, customDays); err != nil {
		return err
	}

	l.Title = strings.TrimSpace(title)
	l.Description = cleanDesc
	l.Kind = strings.TrimSpace(kind)
	l.Color = color
	l.ResetRule = rule
	l.CustomResetDays = normalizeResetDays(customDays)
	l.ResetTime = resetTime
	l.ResetDayOfWeek = resetDay

	l.UpdatedAt = time.Now().UTC()

	return nil
}

func (l *Loop) ToggleFavorite() {
	l.Favorite = !l.Favorite
	l.UpdatedAt = time.Now().UTC()
}

// RecalcCounters derives TotalTasks and CompletedTasks from the live task
// set. Always call this after any task mutation; the counters are never
// edited independently.
func (l *Loop) RecalcCounters(tasks []*Task) {
	total := 0
	completed := 0
	for _, t := range tasks {
		total++
		if t.Completed {
			completed++
		}
	}

	l.TotalTasks = total
	l.CompletedTasks = completed
	l.UpdatedAt = time.Now().UTC()
}

func (l *Loop) IsComplete() bool {
	return l.TotalTasks > 0 && l.CompletedTasks == l.TotalTasks
}

func (l *Loop) Archive() {
	if l.ArchivedAt != nil {
		return
	}

	now := time.Now().UTC()
	l.ArchivedAt = &now
	l.UpdatedAt = now
}

func (l *Loop) Restore() {
	if l.ArchivedAt == nil {
		return
	}
	l.ArchivedAt = nil
	l.UpdatedAt = time.Now().UTC()
}
