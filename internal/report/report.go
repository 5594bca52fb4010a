package report

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/goodtune/baralga/internal/filter"
	"github.com/goodtune/baralga/internal/storage"
)

// Load returns the activities matching f, oldest first.
func Load(ctx context.Context, activities storage.ActivityStore, f filter.Filter) ([]storage.Activity, error) {
	found, err := activities.Query(ctx, f.Query(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	return f.Apply(found), nil
}

// HoursByDayReport accumulates activities into one record per day.
type HoursByDayReport struct {
	filter filter.Filter
	items  []*HoursByDay
}

// NewHoursByDayReport creates an empty report for f.
func NewHoursByDayReport(f filter.Filter) *HoursByDayReport {
	return &HoursByDayReport{filter: f}
}

// Add accumulates a matching activity onto its day.
func (r *HoursByDayReport) Add(a storage.Activity) {
	if !r.filter.Matches(a) {
		return
	}

	rec := NewHoursByDay(truncateDay(a.Start), a.Hours())
	for _, item := range r.items {
		if item.Equal(rec) {
			item.AddHours(rec.Hours())
			return
		}
	}
	r.items = append(r.items, rec)
	slices.SortStableFunc(r.items, (*HoursByDay).Compare)
}

// Items returns the records, latest day first.
func (r *HoursByDayReport) Items() []*HoursByDay {
	return r.items
}

// Total returns the hours over all days.
func (r *HoursByDayReport) Total() float64 {
	var total float64
	for _, item := range r.items {
		total += item.Hours()
	}
	return total
}

// HoursByWeek is the number of hours worked in one ISO week.
type HoursByWeek struct {
	Year  int
	Week  int
	Hours float64
}

// HoursByWeekReport accumulates activities into one record per ISO week.
type HoursByWeekReport struct {
	filter filter.Filter
	items  []*HoursByWeek
}

// NewHoursByWeekReport creates an empty report for f.
func NewHoursByWeekReport(f filter.Filter) *HoursByWeekReport {
	return &HoursByWeekReport{filter: f}
}

// Add accumulates a matching activity onto its week.
func (r *HoursByWeekReport) Add(a storage.Activity) {
	if !r.filter.Matches(a) {
		return
	}

	year, week := a.Start.ISOWeek()
	for _, item := range r.items {
		if item.Year == year && item.Week == week {
			item.Hours += a.Hours()
			return
		}
	}
	r.items = append(r.items, &HoursByWeek{Year: year, Week: week, Hours: a.Hours()})
	slices.SortFunc(r.items, func(a, b *HoursByWeek) int {
		if a.Year != b.Year {
			return b.Year - a.Year
		}
		return b.Week - a.Week
	})
}

// Items returns the records, latest week first.
func (r *HoursByWeekReport) Items() []*HoursByWeek {
	return r.items
}

// HoursByProject is the number of hours booked on one project.
type HoursByProject struct {
	ProjectID int64
	Title     string
	Hours     float64
}

// HoursByProjectReport accumulates activities into one record per project.
type HoursByProjectReport struct {
	filter filter.Filter
	titles func(id int64) string
	items  []*HoursByProject
}

// NewHoursByProjectReport creates an empty report for f. titles resolves
// project names; it may be nil.
func NewHoursByProjectReport(f filter.Filter, titles func(id int64) string) *HoursByProjectReport {
	if titles == nil {
		titles = func(id int64) string { return fmt.Sprintf("#%d", id) }
	}
	return &HoursByProjectReport{filter: f, titles: titles}
}

// Add accumulates a matching activity onto its project.
func (r *HoursByProjectReport) Add(a storage.Activity) {
	if !r.filter.Matches(a) {
		return
	}

	for _, item := range r.items {
		if item.ProjectID == a.ProjectID {
			item.Hours += a.Hours()
			return
		}
	}
	r.items = append(r.items, &HoursByProject{
		ProjectID: a.ProjectID,
		Title:     r.titles(a.ProjectID),
		Hours:     a.Hours(),
	})
}

// Items returns the records, most hours first and then by title.
func (r *HoursByProjectReport) Items() []*HoursByProject {
	slices.SortFunc(r.items, func(a, b *HoursByProject) int {
		switch {
		case a.Hours > b.Hours:
			return -1
		case a.Hours < b.Hours:
			return 1
		}
		return strings.Compare(a.Title, b.Title)
	})
	return r.items
}
