package domain

import (
	"fmt"
	"strings"
	"time"
)

type ResetRule string

const (
	ResetManual   ResetRule = "manual"
	ResetDaily    ResetRule = "daily"
	ResetWeekdays ResetRule = "weekdays"
	ResetWeekly   ResetRule = "weekly"
	ResetCustom   ResetRule = "custom"
)

func (r ResetRule) Valid() bool {
	switch r {
	case ResetManual, ResetDaily, ResetWeekdays, ResetWeekly, ResetCustom:
		return true
	}
	return false
}

// NextReset computes the next scheduled reset instant for a rule, given the
// current moment. Nil means no automatic reset is scheduled: manual loops
// only reset on explicit user action, and custom loops are evaluated per-day
// by the reset worker against their configured weekday set (see ResetsOn).
//
// Note: weekdays follows the daily +24h cadence. The rule is meant to be
// Monday-Friday only, but the scheduled instant can land on a weekend; the
// weekend-skip semantics are unconfirmed, so the daily cadence is kept as-is
// rather than hardened.
func NextReset(rule ResetRule, now time.Time) *time.Time {
	switch rule {
	case ResetDaily, ResetWeekdays:
		next := now.Add(24 * time.Hour)
		return &next
	case ResetWeekly:
		next := now.AddDate(0, 0, 7)
		return &next
	default:
		return nil
	}
}

// ResetsOn reports whether a loop with the given rule is eligible for an
// automatic reset on the given weekday. Used by the reset worker for rules
// that have no fixed next-reset instant.
func ResetsOn(rule ResetRule, customDays []int, day time.Weekday) bool {
	switch rule {
	case ResetDaily:
		return true
	case ResetWeekdays:
		return day >= time.Monday && day <= time.Friday
	case ResetWeekly:
		return true
	case ResetCustom:
		for _, d := range customDays {
			if d == int(day) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// NextEligibleDay returns the day boundary of the next configured weekday
// strictly after now. Custom-rule loops store this in next_reset_at after
// every reset, whether the reset worker or the user triggered it, so the
// worker cannot reset the same loop twice in one day.
func NextEligibleDay(customDays []int, now time.Time) *time.Time {
	if len(customDays) == 0 {
		return nil
	}

	probe := DayOf(now).AddDate(0, 0, 1)
	for i := 0; i < 7; i++ {
		if ResetsOn(ResetCustom, customDays, probe.Weekday()) {
			return &probe
		}
		probe = probe.AddDate(0, 0, 1)
	}
	return nil
}

var weekdayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// DescribeRule renders a human-readable description of a reset rule for
// display in clients.
func DescribeRule(rule ResetRule, resetTime string, resetDay int, customDays []int) string {
	switch rule {
	case ResetManual:
		return "Resets manually"
	case ResetDaily:
		if resetTime != "" {
			return fmt.Sprintf("Resets daily at %s", resetTime)
		}
		return "Resets daily"
	case ResetWeekdays:
		if resetTime != "" {
			return fmt.Sprintf("Resets on weekdays at %s", resetTime)
		}
		return "Resets on weekdays"
	case ResetWeekly:
		name := "Sunday"
		if resetDay >= 0 && resetDay < len(weekdayNames) {
			name = weekdayNames[resetDay]
		}
		if resetTime != "" {
			return fmt.Sprintf("Resets weekly on %s at %s", name, resetTime)
		}
		return fmt.Sprintf("Resets weekly on %s", name)
	case ResetCustom:
		if len(customDays) == 0 {
			return "Resets on custom days"
		}
		names := make([]string, 0, len(customDays))
		for _, d := range customDays {
			if d >= 0 && d < len(weekdayNames) {
				names = append(names, weekdayNames[d][:3])
			}
		}
		return fmt.Sprintf("Resets on %s", strings.Join(names, ", "))
	default:
		return ""
	}
}
