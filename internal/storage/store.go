package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Projects() ProjectStore
	Activities() ActivityStore

	// Snapshot writes a consistent copy of the whole data set to w. The
	// store holds its export lock for the duration of the call.
	Snapshot(ctx context.Context, w io.Writer) error

	// Path returns the primary data file, or "" when the store is not
	// backed by a local file.
	Path() string
}

// ProjectStore manages projects.
type ProjectStore interface {
	Get(ctx context.Context, id int64) (*Project, error)
	List(ctx context.Context) ([]Project, error)
	Create(ctx context.Context, project *Project) error
	Upsert(ctx context.Context, project Project) error
	Delete(ctx context.Context, id int64) error
}

// ActivityStore manages recorded activities.
type ActivityStore interface {
	Get(ctx context.Context, id string) (*Activity, error)
	Upsert(ctx context.Context, activity Activity) error
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, filter ActivityFilter) ([]Activity, error)
	Count(ctx context.Context) (int, error)
}

// ActivityFilter defines criteria for querying activities. Zero values
// match everything.
type ActivityFilter struct {
	ProjectID int64
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
}

// Matches reports whether the activity satisfies the filter.
func (f ActivityFilter) Matches(a Activity) bool {
	if f.ProjectID != 0 && a.ProjectID != f.ProjectID {
		return false
	}
	if f.StartTime != nil && a.Start.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && !a.Start.Before(*f.EndTime) {
		return false
	}
	return true
}
