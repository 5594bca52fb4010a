package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goodtune/baralga/internal/config"
	"github.com/goodtune/baralga/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() already carries the port
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 1,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
		KeyPrefix:    "test",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store, mr
}

func TestProjectStore_CreateAndList(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	projects := store.Projects()

	first := storage.Project{Title: "Baralga", Active: true}
	if err := projects.Create(ctx, &first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if first.ID != 1 {
		t.Errorf("Expected ID 1, got %d", first.ID)
	}

	if err := projects.Upsert(ctx, storage.Project{ID: 7, Title: "Imported"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	next := storage.Project{Title: "Next"}
	if err := projects.Create(ctx, &next); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if next.ID != 8 {
		t.Errorf("Expected ID 8 after explicit upsert, got %d", next.ID)
	}

	list, err := projects.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 projects, got %d", len(list))
	}
	if list[0].ID != 1 || list[2].ID != 8 {
		t.Errorf("Expected projects ordered by ID, got %v", list)
	}

	got, err := projects.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "Baralga" || !got.Active {
		t.Errorf("Unexpected project: %+v", got)
	}

	if err := projects.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := projects.Get(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := projects.Delete(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestActivityStore_QueryAndIndexes(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	activities := store.Activities()
	base := time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC)

	fixtures := []storage.Activity{
		{ID: "late", ProjectID: 1, Start: base.Add(48 * time.Hour), End: base.Add(49 * time.Hour)},
		{ID: "early", ProjectID: 1, Start: base, End: base.Add(90 * time.Minute), Description: "Planning"},
		{ID: "middle", ProjectID: 2, Start: base.Add(24 * time.Hour), End: base.Add(26 * time.Hour)},
	}
	for _, a := range fixtures {
		if err := activities.Upsert(ctx, a); err != nil {
			t.Fatalf("Upsert %s failed: %v", a.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter storage.ActivityFilter
		want   []string
	}{
		{"all", storage.ActivityFilter{}, []string{"early", "middle", "late"}},
		{"project", storage.ActivityFilter{ProjectID: 1}, []string{"early", "late"}},
		{"limit", storage.ActivityFilter{Limit: 2}, []string{"early", "middle"}},
		{"range", storage.ActivityFilter{StartTime: timePtr(base.Add(time.Hour)), EndTime: timePtr(base.Add(48 * time.Hour))}, []string{"middle"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := activities.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d activities, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}

	// Moving an activity to another project must drop the old index entry
	moved := fixtures[1]
	moved.ProjectID = 2
	if err := activities.Upsert(ctx, moved); err != nil {
		t.Fatalf("Upsert moved failed: %v", err)
	}
	members, err := mr.ZMembers("test:activities:project:1")
	if err != nil {
		t.Fatalf("ZMembers failed: %v", err)
	}
	if len(members) != 1 || members[0] != "late" {
		t.Errorf("Expected only late in project 1 index, got %v", members)
	}

	got, err := activities.Get(ctx, "early")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Description != "Planning" || !got.Start.Equal(base) {
		t.Errorf("Unexpected activity: %+v", got)
	}

	if err := activities.Delete(ctx, "early"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := activities.Delete(ctx, "early"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	count, err := activities.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 activities, got %d", count)
	}
}

func TestStore_Snapshot(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	project := storage.Project{Title: "Baralga"}
	if err := store.Projects().Create(ctx, &project); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	if err := store.Activities().Upsert(ctx, storage.Activity{ID: "a", ProjectID: project.ID, Start: start, End: start.Add(time.Hour)}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	var buf bytes.Buffer
	if err := store.Snapshot(ctx, &buf); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	var dump storage.Dump
	if err := json.Unmarshal(buf.Bytes(), &dump); err != nil {
		t.Fatalf("Snapshot is not JSON: %v", err)
	}
	if len(dump.Projects) != 1 || len(dump.Activities) != 1 {
		t.Errorf("Expected 1 project and 1 activity, got %d and %d", len(dump.Projects), len(dump.Activities))
	}
	if store.Path() != "" {
		t.Errorf("Expected empty path for redis store, got %q", store.Path())
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
