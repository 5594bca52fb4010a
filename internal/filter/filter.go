// Package filter selects activities by calendar period and project.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/baralga/internal/storage"
)

// Filter restricts activities to a year, month, ISO week and project.
// A zero field places no restriction.
type Filter struct {
	Year      int
	Month     time.Month
	Week      int
	ProjectID int64
}

// Matches reports whether the activity falls inside the filter. Periods
// are judged by the activity's start in its own location.
func (f Filter) Matches(a storage.Activity) bool {
	if f.ProjectID != 0 && a.ProjectID != f.ProjectID {
		return false
	}
	if f.Year != 0 && a.Start.Year() != f.Year {
		return false
	}
	if f.Month != 0 && a.Start.Month() != f.Month {
		return false
	}
	if f.Week != 0 {
		if _, week := a.Start.ISOWeek(); week != f.Week {
			return false
		}
	}
	return true
}

// Apply returns the activities matching the filter, preserving order.
func (f Filter) Apply(activities []storage.Activity) []storage.Activity {
	out := make([]storage.Activity, 0, len(activities))
	for _, a := range activities {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	return out
}

// zoneSlack covers the widest gap between two UTC offsets.
const zoneSlack = 26 * time.Hour

// Query narrows a store query as far as the filter allows. The week is
// not turned into a range since ISO weeks straddle calendar years;
// callers still pass results through Matches. The range is widened by a
// day on each side because Matches judges each activity in its own
// location, which may differ from loc.
func (f Filter) Query(loc *time.Location) storage.ActivityFilter {
	q := storage.ActivityFilter{ProjectID: f.ProjectID}
	if f.Year == 0 {
		return q
	}
	if loc == nil {
		loc = time.Local
	}

	var start, end time.Time
	if f.Month != 0 {
		start = time.Date(f.Year, f.Month, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	} else {
		start = time.Date(f.Year, time.January, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(1, 0, 0)
	}
	start = start.Add(-zoneSlack)
	end = end.Add(zoneSlack)
	q.StartTime = &start
	q.EndTime = &end
	return q
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

func (f Filter) String() string {
	if f.IsZero() {
		return "all activities"
	}
	var parts []string
	if f.Year != 0 {
		parts = append(parts, fmt.Sprintf("year %d", f.Year))
	}
	if f.Month != 0 {
		parts = append(parts, f.Month.String())
	}
	if f.Week != 0 {
		parts = append(parts, fmt.Sprintf("week %d", f.Week))
	}
	if f.ProjectID != 0 {
		parts = append(parts, fmt.Sprintf("project #%d", f.ProjectID))
	}
	return strings.Join(parts, ", ")
}
