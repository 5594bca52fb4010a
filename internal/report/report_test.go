package report

import (
	"context"
	"math"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/goodtune/baralga/internal/filter"
	"github.com/goodtune/baralga/internal/storage"
	"github.com/goodtune/baralga/internal/storage/bolt"
	"github.com/google/uuid"
)

func at(day, hour int) time.Time {
	return time.Date(2024, 3, day, hour, 0, 0, 0, time.Local)
}

func activity(projectID int64, start time.Time, hours float64) storage.Activity {
	return storage.Activity{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Start:     start,
		End:       start.Add(time.Duration(hours * float64(time.Hour))),
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestHoursByDayEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *HoursByDay
		want bool
	}{
		{"same instant", NewHoursByDay(at(5, 9), 1), NewHoursByDay(at(5, 9), 1), true},
		{"same day different time and hours", NewHoursByDay(at(5, 1), 1), NewHoursByDay(at(5, 23), 7.5), true},
		{"different day", NewHoursByDay(at(5, 9), 1), NewHoursByDay(at(6, 9), 1), false},
		{"nil other", NewHoursByDay(at(5, 9), 1), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHoursByDayAddHours(t *testing.T) {
	h := NewHoursByDay(at(5, 9), 1.5)
	h.AddHours(2)
	h.AddHours(-0.5)
	if !approx(h.Hours(), 3) {
		t.Errorf("Hours() = %v, want 3", h.Hours())
	}
	if !h.Day().Equal(at(5, 9)) {
		t.Errorf("Day() changed to %v", h.Day())
	}
}

func TestHoursByDayCompare(t *testing.T) {
	early := NewHoursByDay(at(4, 9), 1)
	late := NewHoursByDay(at(6, 9), 1)
	sameDay := NewHoursByDay(at(6, 18), 3)

	if got := late.Compare(early); got >= 0 {
		t.Errorf("later.Compare(earlier) = %d, want negative", got)
	}
	if got := early.Compare(late); got <= 0 {
		t.Errorf("earlier.Compare(later) = %d, want positive", got)
	}
	if got := late.Compare(sameDay); got != 0 {
		t.Errorf("Compare() on same day = %d, want 0", got)
	}
	if got := late.Compare(nil); got != 0 {
		t.Errorf("Compare(nil) = %d, want 0", got)
	}
	var missing *HoursByDay
	if got := missing.Compare(late); got != 0 {
		t.Errorf("nil.Compare() = %d, want 0", got)
	}

	items := []*HoursByDay{early, late, NewHoursByDay(at(5, 9), 1)}
	slices.SortFunc(items, (*HoursByDay).Compare)
	for i, want := range []int{6, 5, 4} {
		if items[i].Day().Day() != want {
			t.Errorf("sorted[%d] day = %d, want %d", i, items[i].Day().Day(), want)
		}
	}
}

func TestHoursByDayReport(t *testing.T) {
	r := NewHoursByDayReport(filter.Filter{ProjectID: 1})
	for _, a := range []storage.Activity{
		activity(1, at(4, 9), 2),
		activity(1, at(6, 8), 1),
		activity(1, at(4, 14), 1.5),
		activity(2, at(5, 9), 4),
		activity(1, at(6, 13), 0.25),
	} {
		r.Add(a)
	}

	items := r.Items()
	if len(items) != 2 {
		t.Fatalf("Items() = %d records, want 2", len(items))
	}
	if items[0].Day().Day() != 6 || !approx(items[0].Hours(), 1.25) {
		t.Errorf("Items()[0] = %v %v", items[0].Day(), items[0].Hours())
	}
	if items[1].Day().Day() != 4 || !approx(items[1].Hours(), 3.5) {
		t.Errorf("Items()[1] = %v %v", items[1].Day(), items[1].Hours())
	}
	if items[0].Day().Hour() != 0 {
		t.Errorf("report day not truncated: %v", items[0].Day())
	}
	if !approx(r.Total(), 4.75) {
		t.Errorf("Total() = %v, want 4.75", r.Total())
	}
}

func TestHoursByWeekReport(t *testing.T) {
	r := NewHoursByWeekReport(filter.Filter{})
	r.Add(activity(1, time.Date(2024, 12, 30, 9, 0, 0, 0, time.Local), 2))
	r.Add(activity(1, time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local), 1))
	r.Add(activity(2, time.Date(2024, 3, 7, 9, 0, 0, 0, time.Local), 3))

	items := r.Items()
	if len(items) != 2 {
		t.Fatalf("Items() = %d records, want 2", len(items))
	}
	if items[0].Year != 2025 || items[0].Week != 1 || !approx(items[0].Hours, 2) {
		t.Errorf("Items()[0] = %+v", items[0])
	}
	if items[1].Year != 2024 || items[1].Week != 10 || !approx(items[1].Hours, 4) {
		t.Errorf("Items()[1] = %+v", items[1])
	}
}

func TestHoursByProjectReport(t *testing.T) {
	titles := map[int64]string{1: "Baralga", 2: "Admin", 3: "Zeta"}
	r := NewHoursByProjectReport(filter.Filter{Year: 2024}, func(id int64) string { return titles[id] })

	r.Add(activity(1, at(4, 9), 2))
	r.Add(activity(3, at(4, 9), 3))
	r.Add(activity(2, at(5, 9), 3))
	r.Add(activity(1, at(6, 9), 0.5))
	r.Add(activity(1, time.Date(2023, 1, 1, 9, 0, 0, 0, time.Local), 10))

	items := r.Items()
	want := []string{"Admin", "Zeta", "Baralga"}
	if len(items) != len(want) {
		t.Fatalf("Items() = %d records, want %d", len(items), len(want))
	}
	for i, title := range want {
		if items[i].Title != title {
			t.Errorf("Items()[%d] = %s, want %s", i, items[i].Title, title)
		}
	}
	if !approx(items[2].Hours, 2.5) {
		t.Errorf("Baralga hours = %v, want 2.5", items[2].Hours)
	}
}

func TestLoad(t *testing.T) {
	store, err := bolt.Open(filepath.Join(t.TempDir(), "baralga.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, a := range []storage.Activity{
		activity(1, time.Date(2024, 2, 28, 9, 0, 0, 0, time.Local), 1),
		activity(1, at(4, 9), 1),
		activity(2, at(5, 9), 1),
		activity(1, at(12, 9), 1),
	} {
		if err := store.Activities().Upsert(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Load(ctx, store.Activities(), filter.Filter{Year: 2024, Month: time.March, Week: 10, ProjectID: 1})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0].Start.Day() != 4 {
		t.Errorf("Load() = %+v, want the 4 March activity", got)
	}
}
