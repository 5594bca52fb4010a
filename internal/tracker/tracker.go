// Package tracker starts and stops activities and records finished ones.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goodtune/baralga/internal/backup"
	"github.com/goodtune/baralga/internal/clock"
	"github.com/goodtune/baralga/internal/metrics"
	"github.com/goodtune/baralga/internal/settings"
	"github.com/goodtune/baralga/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyRunning is returned when starting while an activity runs.
	ErrAlreadyRunning = errors.New("an activity is already running")

	// ErrNotRunning is returned when stopping with no running activity.
	ErrNotRunning = errors.New("no activity is running")

	// ErrProjectInactive is returned when booking on an archived project.
	ErrProjectInactive = errors.New("project is archived")
)

// Backuper takes a backup after data changed.
type Backuper interface {
	Create(ctx context.Context, opts backup.CreateOptions) (backup.Backup, error)
}

// Config holds tracker configuration
type Config struct {
	// BackupOnChange takes a backup after every recorded activity.
	BackupOnChange bool
}

// Tracker records activities for the single local user.
type Tracker struct {
	projects   storage.ProjectStore
	activities storage.ActivityStore
	settings   *settings.Store
	backups    Backuper
	config     Config
	clock      clock.Clock
	logger     zerolog.Logger
	mu         sync.Mutex
}

// New creates a tracker. backups may be nil.
func New(projects storage.ProjectStore, activities storage.ActivityStore, prefs *settings.Store, backups Backuper, config Config, clk clock.Clock, logger zerolog.Logger) *Tracker {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Tracker{
		projects:   projects,
		activities: activities,
		settings:   prefs,
		backups:    backups,
		config:     config,
		clock:      clk,
		logger:     logger.With().Str("component", "tracker").Logger(),
	}
}

// Status returns the running activity and how long it has run.
func (t *Tracker) Status() (settings.Running, time.Duration, bool) {
	running, ok := t.settings.RunningActivity()
	if !ok {
		metrics.ActivityRunning.Set(0)
		return settings.Running{}, 0, false
	}
	metrics.ActivityRunning.Set(1)
	return running, t.clock.Now().Sub(running.Start), true
}

// Start begins tracking time on a project.
func (t *Tracker) Start(ctx context.Context, projectID int64) (settings.Running, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.settings.RunningActivity(); ok {
		return settings.Running{}, ErrAlreadyRunning
	}
	project, err := t.activeProject(ctx, projectID)
	if err != nil {
		return settings.Running{}, err
	}

	running := settings.Running{
		ProjectID: project.ID,
		Start:     t.clock.Now().Truncate(time.Second),
	}
	if err := t.settings.SetRunningActivity(running); err != nil {
		return settings.Running{}, fmt.Errorf("failed to store running activity: %w", err)
	}
	metrics.ActivityRunning.Set(1)

	t.logger.Info().
		Int64("project_id", project.ID).
		Str("project", project.Title).
		Time("start", running.Start).
		Msg("Activity started")

	return running, nil
}

// Stop ends the running activity and records it. An empty description
// falls back to the last one used.
func (t *Tracker) Stop(ctx context.Context, description string) (storage.Activity, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	running, ok := t.settings.RunningActivity()
	if !ok {
		return storage.Activity{}, ErrNotRunning
	}
	if strings.TrimSpace(description) == "" {
		description = t.settings.LastDescription()
	}

	activity := storage.Activity{
		ID:          uuid.NewString(),
		ProjectID:   running.ProjectID,
		Start:       running.Start,
		End:         t.clock.Now().Truncate(time.Second),
		Description: description,
	}
	if err := t.record(ctx, activity, "stop"); err != nil {
		return storage.Activity{}, err
	}

	if err := t.settings.ClearRunningActivity(); err != nil {
		return activity, fmt.Errorf("activity recorded but could not clear running state: %w", err)
	}
	metrics.ActivityRunning.Set(0)

	return activity, nil
}

// Add records a finished activity.
func (t *Tracker) Add(ctx context.Context, projectID int64, start, end time.Time, description string) (storage.Activity, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.activeProject(ctx, projectID); err != nil {
		return storage.Activity{}, err
	}

	activity := storage.Activity{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Start:       start,
		End:         end,
		Description: description,
	}
	if err := t.record(ctx, activity, "add"); err != nil {
		return storage.Activity{}, err
	}
	return activity, nil
}

// Remove deletes a recorded activity.
func (t *Tracker) Remove(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.activities.Delete(ctx, id); err != nil {
		return err
	}
	t.logger.Info().Str("activity_id", id).Msg("Activity removed")
	t.backupAfterChange(ctx)
	return nil
}

func (t *Tracker) activeProject(ctx context.Context, projectID int64) (*storage.Project, error) {
	project, err := t.projects.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("project #%d: %w", projectID, err)
		}
		return nil, fmt.Errorf("failed to load project #%d: %w", projectID, err)
	}
	if !project.Active {
		return nil, fmt.Errorf("project %q: %w", project.Title, ErrProjectInactive)
	}
	return project, nil
}

func (t *Tracker) record(ctx context.Context, activity storage.Activity, source string) error {
	if err := activity.Validate(); err != nil {
		return err
	}
	if err := t.activities.Upsert(ctx, activity); err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}

	metrics.ActivitiesRecorded.WithLabelValues(source).Inc()
	metrics.HoursRecorded.Add(activity.Hours())

	if activity.Description != "" {
		if err := t.settings.SetLastDescription(activity.Description); err != nil {
			t.logger.Warn().Err(err).Msg("Could not remember description")
		}
	}

	t.logger.Info().
		Str("activity_id", activity.ID).
		Int64("project_id", activity.ProjectID).
		Dur("duration", activity.Duration()).
		Msg("Activity recorded")

	t.backupAfterChange(ctx)
	return nil
}

// backupAfterChange runs a best-effort backup; failures are only logged.
func (t *Tracker) backupAfterChange(ctx context.Context) {
	if !t.config.BackupOnChange || t.backups == nil {
		return
	}
	if _, err := t.backups.Create(ctx, backup.CreateOptions{Trigger: "change"}); err != nil && !errors.Is(err, backup.ErrUnchanged) {
		t.logger.Error().Err(err).Msg("Backup after change failed")
	}
}
