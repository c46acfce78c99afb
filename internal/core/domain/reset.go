package domain

// Reloop applies the recurrence-aware reset: every recurring task reverts to
// incomplete while one-time tasks keep their completed state exactly as-is.
// Idempotent; safe to call when no recurring task exists (nothing changes).
// Returns the number of tasks that changed state.
func Reloop(tasks []*Task) int {
	changed := 0
	for _, t := range tasks {
		if t.Recurring() && t.Completed {
			t.SetCompleted(false)
			changed++
		}
	}
	return changed
}

// ResetAll forces every task back to incomplete regardless of its one-time
// flag. Idempotent. Returns the number of tasks that changed state.
func ResetAll(tasks []*Task) int {
	changed := 0
	for _, t := range tasks {
		if t.Completed {
			t.SetCompleted(false)
			changed++
		}
	}
	return changed
}

// CountRecurring returns how many tasks a Reloop would touch. Callers use
// this to warn before a reset that would change nothing.
func CountRecurring(tasks []*Task) int {
	count := 0
	for _, t := range tasks {
		if t.Recurring() {
			count++
		}
	}
	return count
}
