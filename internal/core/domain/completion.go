package domain

import "time"

// CompletionRecord summarizes one calendar day of activity for a loop. At
// most one record exists per loop per day; dates are compared by day
// boundary only.
type CompletionRecord struct {
	LoopID    string    `json:"loop_id" db:"loop_id"`
	Date      time.Time `json:"date" db:"date"`
	Completed int       `json:"completed" db:"completed"`
	Total     int       `json:"total" db:"total"`
}

// DayOf truncates an instant to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// SameDay reports whether two instants fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DayOf(a).Equal(DayOf(b))
}

func NewCompletionRecord(loopID string, date time.Time, completed, total int) *CompletionRecord {
	return &CompletionRecord{
		LoopID:    loopID,
		Date:      DayOf(date),
		Completed: completed,
		Total:     total,
	}
}

func (r *CompletionRecord) Rate() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Completed) / float64(r.Total)
}
