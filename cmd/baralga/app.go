package main

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/goodtune/baralga/internal/backup"
	"github.com/goodtune/baralga/internal/clock"
	"github.com/goodtune/baralga/internal/config"
	"github.com/goodtune/baralga/internal/settings"
	"github.com/goodtune/baralga/internal/storage"
	"github.com/goodtune/baralga/internal/storage/bolt"
	"github.com/goodtune/baralga/internal/storage/redis"
	"github.com/goodtune/baralga/internal/tracker"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// app bundles everything a command needs. Only one app per data
// directory may be open at a time.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	clock    clock.Clock
	lock     *flock.Flock
	store    storage.Store
	projects *storage.CachedProjects
	settings *settings.Store
	backups  *backup.Manager
	tracker  *tracker.Tracker
}

// openApp loads configuration, takes the instance lock and opens storage
// and settings.
func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	a := &app{
		cfg:    cfg,
		logger: logger,
		clock:  clock.Real{},
		lock:   flock.New(cfg.LockPath()),
	}

	locked, err := a.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", cfg.LockPath(), err)
	}
	if !locked {
		return nil, fmt.Errorf("another baralga instance is using %s", cfg.Data.Directory)
	}

	if err := a.open(); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *app) open() error {
	store, err := a.openStorage()
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.store = store

	a.projects, err = storage.NewCachedProjects(store.Projects(), a.cfg.Storage.ProjectCacheSize)
	if err != nil {
		return err
	}

	a.settings, err = settings.Open(a.cfg.SettingsPath(), a.logger)
	if err != nil {
		return err
	}

	a.backups = backup.NewManager(store, a.backupConfig(), a.clock, a.logger)
	a.tracker = tracker.New(
		a.projects,
		store.Activities(),
		a.settings,
		a.backups,
		tracker.Config{BackupOnChange: a.cfg.Backup.OnChange},
		a.clock,
		a.logger,
	)

	return nil
}

func (a *app) backupConfig() backup.Config {
	return backup.Config{
		DataFile:      a.cfg.DataFile(),
		Retention:     a.cfg.Backup.Retention,
		SkipUnchanged: a.cfg.Backup.SkipUnchanged,
	}
}

func (a *app) openStorage() (storage.Store, error) {
	switch a.cfg.Storage.Type {
	case "redis":
		store, err := redis.Open(a.cfg.Storage.Redis)
		if err != nil {
			return nil, err
		}
		a.logger.Debug().
			Str("host", a.cfg.Storage.Redis.Host).
			Int("port", a.cfg.Storage.Redis.Port).
			Msg("Redis storage opened")
		return store, nil
	default:
		return a.openBolt()
	}
}

// openBolt opens the data file, restoring the newest backup when the
// file is corrupt.
func (a *app) openBolt() (storage.Store, error) {
	path := a.cfg.DataFile()

	store, err := bolt.Open(path)
	if err == nil {
		return store, nil
	}
	if !bolt.IsCorrupt(err) {
		return nil, err
	}

	a.logger.Error().Err(err).Str("path", path).Msg("Data file is corrupt, restoring latest backup")

	restored, rerr := backup.NewManager(nil, a.backupConfig(), a.clock, a.logger).Recover()
	if rerr != nil {
		if errors.Is(rerr, backup.ErrNoBackups) {
			return nil, fmt.Errorf("%w (no backup to restore from)", err)
		}
		return nil, fmt.Errorf("%w (restore failed: %v)", err, rerr)
	}

	a.logger.Warn().
		Str("backup", restored.Name()).
		Time("backup_date", restored.Date).
		Msg("Data restored from backup, changes since then are lost")

	store, err = bolt.Open(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// closeStore closes storage but keeps the instance lock.
func (a *app) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close storage")
	}
	a.store = nil
}

// Close releases storage and the instance lock.
func (a *app) Close() {
	a.closeStore()
	if err := a.lock.Unlock(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to release lock")
	}
}
