package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// runTimeout bounds a single scheduled backup.
const runTimeout = 5 * time.Minute

// Scheduler takes backups on a cron schedule.
type Scheduler struct {
	manager  *Manager
	expr     string
	schedule cron.Schedule
	cron     *cron.Cron
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler for a standard cron expression or
// descriptor such as "@every 30m" or "@daily".
func NewScheduler(manager *Manager, expr string, logger zerolog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", expr, err)
	}

	s := &Scheduler{
		manager:  manager,
		expr:     expr,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With().Str("component", "backup-scheduler").Logger(),
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.run))

	return s, nil
}

// Next returns the next time a backup is due after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.expr).
		Time("next_backup", s.Next(time.Now())).
		Msg("Backup scheduler started")
}

// Stop stops the scheduler and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Backup scheduler stopped")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	b, err := s.manager.Create(ctx, CreateOptions{Trigger: "schedule"})
	switch {
	case errors.Is(err, ErrUnchanged):
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("Scheduled backup failed")
		return
	}

	s.logger.Debug().
		Str("path", b.Path).
		Time("next_backup", s.Next(time.Now())).
		Msg("Scheduled backup complete")
}
