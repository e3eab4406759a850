// Package hours implements the business-hours window that gates immediate
// dispatch. Pure time arithmetic over an immutable window; callers inject the
// clock.
package hours

import (
	"fmt"
	"time"
)

// Window is the configured business-hours window: a start and end time of
// day, a timezone, and the weekdays that count as business days. Loaded once,
// immutable, process-wide.
type Window struct {
	loc      *time.Location
	start    int // minutes since midnight
	end      int
	weekdays map[time.Weekday]bool
}

// DefaultWeekdays is the Monday-to-Friday business calendar.
var DefaultWeekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// NewWindow builds a window from "HH:MM" boundaries and a timezone name.
func NewWindow(start, end, tz string, weekdays []time.Weekday) (*Window, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	startMin, err := parseClock(start)
	if err != nil {
		return nil, fmt.Errorf("parse window start: %w", err)
	}
	endMin, err := parseClock(end)
	if err != nil {
		return nil, fmt.Errorf("parse window end: %w", err)
	}
	if endMin <= startMin {
		return nil, fmt.Errorf("window end %s not after start %s", end, start)
	}

	days := make(map[time.Weekday]bool, len(weekdays))
	for _, d := range weekdays {
		days[d] = true
	}

	return &Window{loc: loc, start: startMin, end: endMin, weekdays: days}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsOutOfHours reports whether the instant falls outside the window.
func (w *Window) IsOutOfHours(now time.Time) bool {
	local := now.In(w.loc)
	if !w.weekdays[local.Weekday()] {
		return true
	}
	minute := local.Hour()*60 + local.Minute()
	return minute < w.start || minute >= w.end
}

// NextInHours returns the earliest instant at or after now that is inside the
// window. An in-hours instant is returned unchanged.
func (w *Window) NextInHours(now time.Time) time.Time {
	local := now.In(w.loc)
	if !w.IsOutOfHours(now) {
		return now
	}

	// Same-day start still ahead of us on a business day.
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), w.start/60, w.start%60, 0, 0, w.loc)
	if w.weekdays[local.Weekday()] && local.Before(dayStart) {
		return dayStart
	}

	// Otherwise the start of the next business day.
	for d := 1; d <= 7; d++ {
		candidate := dayStart.AddDate(0, 0, d)
		if w.weekdays[candidate.Weekday()] {
			return candidate
		}
	}
	return dayStart // unreachable with a non-empty calendar
}
