package domain

import "time"

// MomentumPoint is one day of the recency-weighted intensity series that
// drives activity indicators. Always derived from completion history, never
// persisted.
type MomentumPoint struct {
	Date      time.Time `json:"date"`
	Intensity float64   `json:"intensity"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
}

const DefaultMomentumDays = 7

// GenerateMomentum converts completion history into a fixed-length intensity
// series, oldest day first, exactly days entries regardless of history
// sparsity. Intensity is the day's completion rate scaled by a recency
// weight that grows linearly from 0.3 (oldest day of the window) to 1.0
// (today), clamped to [0, 1]. A day with nothing scheduled and a day with
// nothing completed both yield 0; interpreting that non-judgmentally is the
// display layer's job.
func GenerateMomentum(history []*CompletionRecord, days int, today time.Time) []MomentumPoint {
	if days <= 0 {
		return []MomentumPoint{}
	}

	byDay := make(map[time.Time]*CompletionRecord, len(history))
	for _, r := range history {
		byDay[DayOf(r.Date)] = r
	}

	end := DayOf(today)
	points := make([]MomentumPoint, 0, days)

	for i := 0; i < days; i++ {
		date := end.AddDate(0, 0, -(days - 1 - i))

		point := MomentumPoint{Date: date}
		rate := 0.0
		if rec, ok := byDay[date]; ok {
			point.Completed = rec.Completed
			point.Total = rec.Total
			rate = rec.Rate()
		}

		weight := 1.0
		if days > 1 {
			weight = 0.3 + 0.7*float64(i)/float64(days-1)
		}
		intensity := rate * weight
		if intensity > 1.0 {
			intensity = 1.0
		}
		point.Intensity = intensity

		points = append(points, point)
	}

	return points
}
