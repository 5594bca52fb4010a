package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dummy values stored in place of a concrete year, month or week.
const (
	// All selects every period.
	All = -10
	// Current selects the period containing "now" at the time the
	// selection is resolved.
	Current = -5
)

// Value is one stored period selection: a concrete number, All or Current.
// Zero means nothing was selected.
type Value int

// ParseValue reads a selection as typed by a user: "all", "current",
// "*" or a number.
func ParseValue(s string) (Value, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return 0, nil
	case "all", "*":
		return All, nil
	case "current":
		return Current, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid selection %q: want all, current or a number", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid selection %q: must be positive", s)
	}
	return Value(n), nil
}

func (v Value) String() string {
	switch v {
	case 0:
		return "none"
	case All:
		return "all"
	case Current:
		return "current"
	default:
		return strconv.Itoa(int(v))
	}
}

// Selection is the user's filter choice as stored in settings, before
// Current has been resolved against a date.
type Selection struct {
	Year      Value
	Month     Value
	Week      Value
	ProjectID int64
}

// Valid reports whether v is unset, a dummy or a positive number.
func (v Value) Valid() bool {
	return v >= 0 || v == All || v == Current
}

// Validate checks concrete month and week numbers are in range.
func (s Selection) Validate() error {
	for _, v := range []Value{s.Year, s.Month, s.Week} {
		if !v.Valid() {
			return fmt.Errorf("invalid selection %d", v)
		}
	}
	if s.Month > 12 {
		return fmt.Errorf("month %d out of range 1-12", s.Month)
	}
	if s.Week > 53 {
		return fmt.Errorf("week %d out of range 1-53", s.Week)
	}
	if s.ProjectID < 0 {
		return fmt.Errorf("invalid project id %d", s.ProjectID)
	}
	return nil
}

// Resolve turns the selection into a Filter relative to now.
func (s Selection) Resolve(now time.Time) Filter {
	f := Filter{ProjectID: s.ProjectID}

	switch s.Week {
	case 0, All:
	case Current:
		_, f.Week = now.ISOWeek()
	default:
		if s.Week > 0 {
			f.Week = int(s.Week)
		}
	}

	switch s.Month {
	case 0, All:
	case Current:
		f.Month = now.Month()
	default:
		if s.Month > 0 {
			f.Month = time.Month(s.Month)
		}
	}

	switch s.Year {
	case 0, All:
	case Current:
		f.Year = now.Year()
	default:
		if s.Year > 0 {
			f.Year = int(s.Year)
		}
	}

	return f
}
