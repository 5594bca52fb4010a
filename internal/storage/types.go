package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Project is something time is booked on.
type Project struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// Activity is a span of work on a project.
type Activity struct {
	ID          string    `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
}

// Duration returns the length of the activity.
func (a Activity) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// Hours returns the length of the activity in fractional hours.
func (a Activity) Hours() float64 {
	return a.Duration().Hours()
}

// Validate checks the activity before it is written.
func (a Activity) Validate() error {
	if a.ID == "" {
		return errors.New("activity id is required")
	}
	if a.ProjectID == 0 {
		return errors.New("activity project is required")
	}
	if a.Start.IsZero() || a.End.IsZero() {
		return errors.New("activity start and end are required")
	}
	if a.End.Before(a.Start) {
		return fmt.Errorf("activity ends before it starts (%s < %s)", a.End.Format(time.RFC3339), a.Start.Format(time.RFC3339))
	}
	return nil
}

// Validate checks the project before it is written.
func (p Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("project title is required")
	}
	return nil
}

// Dump is the portable representation of a whole data set. It carries no
// timestamp so equal data always encodes to equal bytes.
type Dump struct {
	Projects   []Project  `json:"projects"`
	Activities []Activity `json:"activities"`
}
