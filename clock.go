package guardianvault

import "time"

// Clock supplies wall-clock time for day-window accounting and event
// timestamps. Swapped out in tests.
type Clock func() time.Time

const secondsPerDay = 86400

// dayIndex is the calendar-day number of t, aligned to UTC midnight.
// The daily limit window is day-aligned, not a sliding 24h window.
func dayIndex(t time.Time) uint64 {
	return uint64(t.Unix()) / secondsPerDay
}
