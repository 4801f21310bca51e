package core

import "time"

// Window is the concrete [Start, End] timestamp range implied by a limit
// period, evaluated relative to a reference time. Both bounds are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// windowSlack is what separates a period's inclusive end from the start of
// the next period (23:59:59.999).
const windowSlack = time.Millisecond

// PeriodWindow computes the current window for a period in now's location:
//
//	daily   — today
//	weekly  — ISO week, most recent Monday through Sunday
//	monthly — first through last day of the current month
//	yearly  — Jan 1 through Dec 31 of the current year
//
// The end bound is the start of the following period minus one millisecond,
// which handles month lengths and the December to January rollover without
// any calendar arithmetic of its own.
func PeriodWindow(p Period, now time.Time) (Window, error) {
	if !p.Valid() {
		return Window{}, ErrInvalidPeriod
	}

	year, month, day := now.Date()
	loc := now.Location()

	var start, next time.Time
	switch p {
	case Daily:
		start = time.Date(year, month, day, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 0, 1)
	case Weekly:
		// time.Weekday is Sunday-based; shift to Monday-based.
		sinceMonday := (int(now.Weekday()) + 6) % 7
		start = time.Date(year, month, day-sinceMonday, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 0, 7)
	case Monthly:
		start = time.Date(year, month, 1, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 1, 0)
	case Yearly:
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		next = start.AddDate(1, 0, 0)
	}

	return Window{Start: start, End: next.Add(-windowSlack)}, nil
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
