// Package report aggregates recorded activities into hours per day, week
// and project.
package report

import "time"

// HoursByDay is the number of hours worked on one calendar day.
type HoursByDay struct {
	day   time.Time
	hours float64
}

// NewHoursByDay creates a record for day holding hours.
func NewHoursByDay(day time.Time, hours float64) *HoursByDay {
	return &HoursByDay{day: day, hours: hours}
}

// Day returns the day as given on creation, time of day included.
func (h *HoursByDay) Day() time.Time {
	return h.day
}

// Hours returns the accumulated hours.
func (h *HoursByDay) Hours() float64 {
	return h.hours
}

// AddHours adds to the accumulated hours. Negative values subtract.
func (h *HoursByDay) AddHours(hours float64) {
	h.hours += hours
}

// Equal reports whether both records are for the same calendar day. Hours
// and time of day are ignored.
func (h *HoursByDay) Equal(other *HoursByDay) bool {
	if h == other {
		return true
	}
	if h == nil || other == nil {
		return false
	}
	return sameDay(h.day, other.day)
}

// Compare orders records latest day first. Records for the same calendar
// day, or a nil on either side, compare as 0.
func (h *HoursByDay) Compare(other *HoursByDay) int {
	if h == nil || other == nil || h.Equal(other) {
		return 0
	}
	return -h.day.Compare(other.day)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// truncateDay returns midnight at the start of t's day in t's location.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
