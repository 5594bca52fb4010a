package settings

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goodtune/baralga/internal/filter"
	"github.com/rs/zerolog"
)

func openTestStore(t *testing.T, content string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "baralga.properties")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	s, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

func reopen(t *testing.T, s *Store) *Store {
	t.Helper()
	r, err := Open(s.Path(), zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	return r
}

func TestDefaults(t *testing.T) {
	s := openTestStore(t, "")

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if got := s.ExcelExportDirectory(); got != home {
		t.Errorf("ExcelExportDirectory() = %q, want %q", got, home)
	}
	if got := s.DataExportDirectory(); got != home {
		t.Errorf("DataExportDirectory() = %q, want %q", got, home)
	}
	if got := s.LastDescription(); got != "" {
		t.Errorf("LastDescription() = %q, want empty", got)
	}
	if got := s.ShownCategory(); got != DefaultShownCategory {
		t.Errorf("ShownCategory() = %q, want %q", got, DefaultShownCategory)
	}
	if got := s.RestoreFilter(time.Now()); !got.IsZero() {
		t.Errorf("RestoreFilter() = %+v, want zero filter", got)
	}
	if _, ok := s.RunningActivity(); ok {
		t.Error("RunningActivity() reported a running activity")
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Errorf("reading defaults created the settings file: %v", err)
	}
}

func TestOpenMissingFileIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "baralga.properties")
	s, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(s.Entries()) != len(Keys) {
		t.Errorf("Entries() on a new store = %d, want %d", len(s.Entries()), len(Keys))
	}
	if buf.Len() != 0 {
		t.Errorf("Open() wrote to the standard logger: %q", buf.String())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Open() created the settings file before any write")
	}
}

func TestSettersPersist(t *testing.T) {
	s := openTestStore(t, "")

	if err := s.SetExcelExportDirectory("/tmp/excel"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetDataExportDirectory("/tmp/data"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetLastDescription("Fixed the Größe bug"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetShownCategory("Reports"); err != nil {
		t.Fatal(err)
	}

	r := reopen(t, s)
	if got := r.ExcelExportDirectory(); got != "/tmp/excel" {
		t.Errorf("ExcelExportDirectory() = %q", got)
	}
	if got := r.DataExportDirectory(); got != "/tmp/data" {
		t.Errorf("DataExportDirectory() = %q", got)
	}
	if got := r.LastDescription(); got != "Fixed the Größe bug" {
		t.Errorf("LastDescription() = %q", got)
	}
	if got := r.ShownCategory(); got != "Reports" {
		t.Errorf("ShownCategory() = %q", got)
	}
}

func TestRestoreFilter(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local)

	tests := []struct {
		name    string
		content string
		want    filter.Filter
	}{
		{"empty", "", filter.Filter{}},
		{"current", "filter.year=-5\nfilter.month=-5\nfilter.weekOfYear=-5\n", filter.Filter{Year: 2024, Month: time.March, Week: 10}},
		{"all", "filter.year=-10\nfilter.month=-10\nfilter.weekOfYear=-10\n", filter.Filter{}},
		{"explicit", "filter.year=2023\nfilter.month=11\nfilter.weekOfYear=45\nfilter.projectId=7\n", filter.Filter{Year: 2023, Month: time.November, Week: 45, ProjectID: 7}},
		{"legacy star", "filter.year=*\nfilter.month=*\n", filter.Filter{}},
		{"garbage", "filter.year=soon\nfilter.month=-3\nfilter.projectId=x\n", filter.Filter{}},
		{"leading zeros", "filter.month=010\nfilter.weekOfYear=08\nfilter.projectId=007\n", filter.Filter{Month: time.October, Week: 8, ProjectID: 7}},
		{"hex is invalid", "filter.month=0x0B\n", filter.Filter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openTestStore(t, tt.content)
			if got := s.RestoreFilter(now); got != tt.want {
				t.Errorf("RestoreFilter() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLegacyStarMigrated(t *testing.T) {
	s := openTestStore(t, "filter.year=*\nfilter.month=*\n")

	sel := s.Selection()
	if sel.Year != filter.All || sel.Month != filter.All {
		t.Fatalf("Selection() = %+v, want All for year and month", sel)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "*") {
		t.Errorf("settings file still holds legacy value:\n%s", data)
	}
	if v, _ := reopen(t, s).Get(KeyFilterMonth); v != "-10" {
		t.Errorf("filter.month = %q, want -10", v)
	}
}

func TestSaveFilter(t *testing.T) {
	s := openTestStore(t, "filter.weekOfYear=12\n")

	sel := filter.Selection{Year: filter.Current, Month: 4, ProjectID: 3}
	if err := s.SaveFilter(sel); err != nil {
		t.Fatalf("SaveFilter() error = %v", err)
	}

	r := reopen(t, s)
	if got := r.Selection(); got != sel {
		t.Errorf("Selection() = %+v, want %+v", got, sel)
	}
	if _, ok := r.Get(KeyFilterWeek); ok {
		t.Error("SaveFilter() kept a cleared week")
	}

	if err := s.SaveFilter(filter.Selection{Month: 13}); err == nil {
		t.Error("SaveFilter() accepted month 13")
	}
}

func TestRunningActivity(t *testing.T) {
	s := openTestStore(t, "")
	start := time.Date(2024, 3, 5, 9, 30, 0, 0, time.Local)

	if err := s.SetRunningActivity(Running{ProjectID: 2, Start: start}); err != nil {
		t.Fatal(err)
	}
	r, ok := reopen(t, s).RunningActivity()
	if !ok {
		t.Fatal("RunningActivity() not found after restart")
	}
	if r.ProjectID != 2 || !r.Start.Equal(start) {
		t.Errorf("RunningActivity() = %+v", r)
	}

	if err := s.ClearRunningActivity(); err != nil {
		t.Fatal(err)
	}
	if _, ok := reopen(t, s).RunningActivity(); ok {
		t.Error("RunningActivity() found after clear")
	}
}

func TestSet(t *testing.T) {
	s := openTestStore(t, "")

	tests := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{KeyFilterMonth, "12", false},
		{KeyFilterMonth, "13", true},
		{KeyFilterMonth, "08", false},
		{KeyFilterMonth, "0x0B", true},
		{KeyFilterProject, "010", false},
		{KeyFilterYear, "-5", false},
		{KeyFilterWeek, "abc", true},
		{KeyFilterProject, "-1", true},
		{KeyActivityActive, "maybe", true},
		{KeyActivityStart, "yesterday", true},
		{KeyShownCategory, "Anything", false},
		{"no.such.key", "1", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := s.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Set(%s, %s) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
		})
	}

	if err := s.Set(KeyFilterMonth, "010"); err != nil {
		t.Fatal(err)
	}
	if got := s.RestoreFilter(time.Now()).Month; got != time.October {
		t.Errorf("filter.month=010 restored as %v, want October", got)
	}

	if err := s.Unset(KeyShownCategory); err != nil {
		t.Fatal(err)
	}
	if got := s.ShownCategory(); got != DefaultShownCategory {
		t.Errorf("ShownCategory() after Unset = %q", got)
	}
}

func TestEntries(t *testing.T) {
	s := openTestStore(t, "description=Meeting\nzz.custom=1\n")

	entries := s.Entries()
	if len(entries) != len(Keys)+1 {
		t.Fatalf("Entries() returned %d entries, want %d", len(entries), len(Keys)+1)
	}
	for _, e := range entries {
		switch e.Key {
		case KeyLastDescription:
			if e.Value != "Meeting" || e.Default {
				t.Errorf("description entry = %+v", e)
			}
		case KeyShownCategory:
			if e.Value != DefaultShownCategory || !e.Default {
				t.Errorf("shown.category entry = %+v", e)
			}
		}
	}
	if last := entries[len(entries)-1]; last.Key != "zz.custom" {
		t.Errorf("last entry = %+v, want unknown key", last)
	}
}

func TestConcurrentWrites(t *testing.T) {
	s := openTestStore(t, "")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.SetLastDescription(strings.Repeat("x", i)); err != nil {
				t.Error(err)
			}
			_ = s.RestoreFilter(time.Now())
		}(i)
	}
	wg.Wait()

	if got := len(reopen(t, s).LastDescription()); got > 19 {
		t.Errorf("LastDescription() length = %d", got)
	}
}
