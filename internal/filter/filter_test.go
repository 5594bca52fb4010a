package filter

import (
	"testing"
	"time"

	"github.com/goodtune/baralga/internal/storage"
)

func activityAt(projectID int64, start time.Time) storage.Activity {
	return storage.Activity{ID: "a", ProjectID: projectID, Start: start, End: start.Add(time.Hour)}
}

func TestFilterMatches(t *testing.T) {
	// 2024-12-30 is a Monday in ISO week 1 of 2025.
	yearEnd := time.Date(2024, 12, 30, 10, 0, 0, 0, time.Local)
	march := time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local)

	tests := []struct {
		name   string
		filter Filter
		a      storage.Activity
		want   bool
	}{
		{"zero filter", Filter{}, activityAt(1, march), true},
		{"year match", Filter{Year: 2024}, activityAt(1, march), true},
		{"year mismatch", Filter{Year: 2023}, activityAt(1, march), false},
		{"month match", Filter{Year: 2024, Month: time.March}, activityAt(1, march), true},
		{"month mismatch", Filter{Month: time.April}, activityAt(1, march), false},
		{"week match", Filter{Week: 10}, activityAt(1, march), true},
		{"week mismatch", Filter{Week: 11}, activityAt(1, march), false},
		{"iso week across years", Filter{Year: 2024, Week: 1}, activityAt(1, yearEnd), true},
		{"project match", Filter{ProjectID: 2}, activityAt(2, march), true},
		{"project mismatch", Filter{ProjectID: 2}, activityAt(1, march), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.a); got != tt.want {
				t.Errorf("%v.Matches() = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestFilterQuery(t *testing.T) {
	loc := time.UTC
	day := 26 * time.Hour

	q := Filter{ProjectID: 3}.Query(loc)
	if q.ProjectID != 3 || q.StartTime != nil || q.EndTime != nil {
		t.Errorf("Query() without year = %+v, want project only", q)
	}

	q = Filter{Year: 2024}.Query(loc)
	if !q.StartTime.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Add(-day)) || !q.EndTime.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Add(day)) {
		t.Errorf("Query() for year = %v..%v", q.StartTime, q.EndTime)
	}

	q = Filter{Year: 2024, Month: time.December, Week: 1}.Query(loc)
	if !q.StartTime.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, loc).Add(-day)) || !q.EndTime.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Add(day)) {
		t.Errorf("Query() for month = %v..%v", q.StartTime, q.EndTime)
	}
}

func TestFilterQueryKeepsOtherZones(t *testing.T) {
	f := Filter{Year: 2024, Month: time.December}
	q := f.Query(time.FixedZone("east", 14*3600))

	tests := []struct {
		name  string
		start time.Time
		want  bool
	}{
		{"last evening west", time.Date(2024, 12, 31, 23, 30, 0, 0, time.FixedZone("west", -12*3600)), true},
		{"first morning east", time.Date(2024, 12, 1, 0, 30, 0, 0, time.FixedZone("east", 14*3600)), true},
		{"next month east", time.Date(2025, 1, 1, 0, 30, 0, 0, time.FixedZone("east", 14*3600)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inRange := !tt.start.Before(*q.StartTime) && tt.start.Before(*q.EndTime)
			if !inRange {
				t.Fatalf("Query() range %v..%v drops %v", q.StartTime, q.EndTime, tt.start)
			}
			a := storage.Activity{Start: tt.start, End: tt.start.Add(time.Hour)}
			if got := f.Matches(a); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.start, got, tt.want)
			}
		})
	}
}

func TestSelectionResolve(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		sel  Selection
		want Filter
	}{
		{"unset", Selection{}, Filter{}},
		{"all", Selection{Year: All, Month: All, Week: All}, Filter{}},
		{"current", Selection{Year: Current, Month: Current, Week: Current}, Filter{Year: 2024, Month: time.March, Week: 10}},
		{"explicit", Selection{Year: 2023, Month: 7, Week: 30, ProjectID: 4}, Filter{Year: 2023, Month: time.July, Week: 30, ProjectID: 4}},
		{"mixed", Selection{Year: Current, Month: All, Week: 2}, Filter{Year: 2024, Week: 2}},
		{"unknown negative", Selection{Year: -3, Month: -1}, Filter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sel.Resolve(now); got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		want    Value
		wantErr bool
	}{
		{"", 0, false},
		{"all", All, false},
		{"*", All, false},
		{"Current", Current, false},
		{"12", 12, false},
		{"0", 0, true},
		{"-10", 0, true},
		{"march", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValue(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseValue(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseValue(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSelectionValidate(t *testing.T) {
	if err := (Selection{Year: Current, Month: 12, Week: 53}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	for _, sel := range []Selection{{Month: 13}, {Week: 54}, {Year: -3}, {ProjectID: -1}} {
		if err := sel.Validate(); err == nil {
			t.Errorf("Validate(%+v) error = nil", sel)
		}
	}
}
