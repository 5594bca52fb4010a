package clock

import "time"

// Clock provides the current time. Backups, filters and the tracker take
// a Clock so tests can pin "now".
type Clock interface {
	Now() time.Time
}

// Real provides actual system time.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time {
	return time.Now()
}

// Fixed provides a settable time for testing.
type Fixed struct {
	CurrentTime time.Time
}

// Now returns the fixed time.
func (f *Fixed) Now() time.Time {
	return f.CurrentTime
}

// Advance moves the fixed time forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.CurrentTime = f.CurrentTime.Add(d)
}
