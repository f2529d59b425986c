// Package aggregation computes billing windows and the volume totals reported on
// certificates and invoice advices.
package aggregation

import (
	"time"
)

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PreviousMonth returns the calendar month before now in loc.
func PreviousMonth(now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	end := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	start := end.AddDate(0, -1, 0)
	return Window{Start: start.UTC(), End: end.UTC()}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// SamePeriod reports whether both windows start in the same calendar month in loc.
func (w Window) SamePeriod(other Window, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	a, b := w.Start.In(loc), other.Start.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// SubtractMonthClamped moves t back n calendar months, clamping the day to the
// end of the target month.
func SubtractMonthClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month-time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(target.Year(), target.Month(), t.Location())
	if day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
