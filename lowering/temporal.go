package lowering

import "time"

// lastMonthWindow returns the [start, end] dates (inclusive) of the
// calendar month preceding now's month. spec.md §8 boundary behavior:
// clock=2025-10-15 -> BETWEEN '2025-09-01' AND '2025-09-30'.
func lastMonthWindow(now time.Time) (time.Time, time.Time) {
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := firstOfThisMonth.AddDate(0, 0, -1)
	start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, end
}

// thisYearWindow returns [Jan 1, Dec 31] of now's year.
func thisYearWindow(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	end := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location())
	return start, end
}

// lastNDaysWindow returns the inclusive [now - n days, now] window.
func lastNDaysWindow(now time.Time, n int) (time.Time, time.Time) {
	start := now.AddDate(0, 0, -n)
	return dateOnly(start), dateOnly(now)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
