package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/baralga/internal/storage"
)

// parseProject converts a Redis hash to Project
func parseProject(data map[string]string) (*storage.Project, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	id, err := strconv.ParseInt(data["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse id: %w", err)
	}

	active, err := strconv.ParseBool(data["active"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse active: %w", err)
	}

	return &storage.Project{
		ID:          id,
		Title:       data["title"],
		Description: data["description"],
		Active:      active,
	}, nil
}

// parseActivity converts a Redis hash to Activity
func parseActivity(data map[string]string) (*storage.Activity, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	projectID, err := strconv.ParseInt(data["project_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse project_id: %w", err)
	}

	start, err := time.Parse(time.RFC3339Nano, data["start"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse start: %w", err)
	}

	end, err := time.Parse(time.RFC3339Nano, data["end"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse end: %w", err)
	}

	return &storage.Activity{
		ID:          data["id"],
		ProjectID:   projectID,
		Start:       start,
		End:         end,
		Description: data["description"],
	}, nil
}

// score orders activities by start time in the sorted-set indexes.
func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func scoreBound(t *time.Time, unbounded string, exclusive bool) string {
	if t == nil {
		return unbounded
	}
	bound := strconv.FormatInt(t.UnixMilli(), 10)
	if exclusive {
		return "(" + bound
	}
	return bound
}
