package domain

import (
	"sort"
	"time"
)

// CurrentStreak counts consecutive calendar days with at least one
// completion, walking back from today. A missing date terminates the streak
// exactly like a day recorded with zero completions; streaks never skip
// gaps.
func CurrentStreak(history []*CompletionRecord, today time.Time) int {
	byDay := make(map[time.Time]*CompletionRecord, len(history))
	for _, r := range history {
		byDay[DayOf(r.Date)] = r
	}

	streak := 0
	cursor := DayOf(today)
	for {
		rec, ok := byDay[cursor]
		if !ok || rec.Completed == 0 {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// LongestStreak scans the full history for the longest run of consecutive
// days with at least one completion.
func LongestStreak(history []*CompletionRecord) int {
	var days []time.Time
	seen := make(map[time.Time]bool)
	for _, r := range history {
		if r.Completed == 0 {
			continue
		}
		day := DayOf(r.Date)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}

	if len(days) == 0 {
		return 0
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest := 1
	run := 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	return longest
}

// RecordCompletion applies the incremental per-loop streak rule on a
// qualifying completion event: yesterday extends the streak, a repeat of
// today is idempotent, anything older restarts at 1. The longest streak is
// raised to cover the new current streak, so CurrentStreak <= LongestStreak
// always holds afterward.
func (l *Loop) RecordCompletion(today time.Time) {
	day := DayOf(today)

	switch {
	case l.LastCompletedDate != nil && SameDay(*l.LastCompletedDate, day):
		return
	case l.LastCompletedDate != nil && DayOf(*l.LastCompletedDate).AddDate(0, 0, 1).Equal(day):
		l.CurrentStreak++
	default:
		l.CurrentStreak = 1
	}

	l.LastCompletedDate = &day
	if l.CurrentStreak > l.LongestStreak {
		l.LongestStreak = l.CurrentStreak
	}
	l.UpdatedAt = time.Now().UTC()
}
