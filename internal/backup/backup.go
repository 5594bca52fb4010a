// Package backup writes timestamped copies of the primary data file next to
// it and keeps only the newest few.
//
// A backup of "baralga.db" taken on 2024-03-05 at 17:04:09 is named
// "baralga.db.20240305_170409". Backups are ordered by that embedded
// timestamp, never by modification time, so copying the directory around
// does not change which backups are kept.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goodtune/baralga/internal/clock"
	"github.com/goodtune/baralga/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	// DateFormat is the timestamp layout embedded in backup file names.
	DateFormat = "20060102_150405"

	// ErrorSuffix marks the quarantined copy of a data file replaced by
	// a restore.
	ErrorSuffix = ".Error"

	// DefaultRetention is the number of backups kept.
	DefaultRetention = 3
)

var (
	// ErrNoBackups is returned when no backup file exists.
	ErrNoBackups = errors.New("backup: no backups found")

	// ErrUnchanged is returned when a backup was skipped because the data
	// has not changed since the newest backup.
	ErrUnchanged = errors.New("backup: data unchanged since last backup")
)

// Source produces a consistent copy of the data set. storage.Store
// satisfies it.
type Source interface {
	Snapshot(ctx context.Context, w io.Writer) error
}

// Backup is one backup file.
type Backup struct {
	Path string
	Date time.Time
}

// Name returns the file name of the backup.
func (b Backup) Name() string {
	return filepath.Base(b.Path)
}

// Config holds manager configuration
type Config struct {
	// DataFile is the primary data file; backups are its siblings.
	DataFile      string
	Retention     int
	SkipUnchanged bool
}

// CreateOptions tune a single backup request.
type CreateOptions struct {
	// Force writes a backup even if the data is unchanged.
	Force bool
	// Trigger labels the request in logs and metrics.
	Trigger string
}

// Manager creates, lists and prunes backups of one data file.
type Manager struct {
	source        Source
	dir           string
	base          string
	retention     int
	skipUnchanged bool
	clock         clock.Clock
	logger        zerolog.Logger
	remove        func(string) error

	// mu serialises backup, cleanup and restore on the directory.
	mu sync.Mutex
}

// NewManager creates a backup manager
func NewManager(source Source, cfg Config, clk clock.Clock, logger zerolog.Logger) *Manager {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Manager{
		source:        source,
		dir:           filepath.Dir(cfg.DataFile),
		base:          filepath.Base(cfg.DataFile),
		retention:     cfg.Retention,
		skipUnchanged: cfg.SkipUnchanged,
		clock:         clk,
		logger:        logger.With().Str("component", "backup").Logger(),
		remove:        os.Remove,
	}
}

// DataFile returns the path of the file being backed up.
func (m *Manager) DataFile() string {
	return filepath.Join(m.dir, m.base)
}

// ErrorFile returns the path a replaced data file is moved to on restore.
func (m *Manager) ErrorFile() string {
	return filepath.Join(m.dir, m.base+ErrorSuffix)
}

// Retention returns the number of backups kept.
func (m *Manager) Retention() int {
	return m.retention
}

// Create writes a new backup and then prunes old ones. Pruning runs even
// when writing the backup failed.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if opts.Trigger == "" {
		opts.Trigger = "manual"
	}

	defer func() {
		if _, err := m.cleanup(); err != nil {
			m.logger.Error().Err(err).Msg("Backup cleanup incomplete")
		}
	}()

	started := time.Now()
	backup, err := m.write(ctx, opts)
	if err != nil {
		if errors.Is(err, ErrUnchanged) {
			metrics.BackupsSkipped.Inc()
			m.logger.Debug().Str("trigger", opts.Trigger).Msg("Data unchanged, backup skipped")
			return Backup{}, err
		}
		metrics.BackupFailures.WithLabelValues("write").Inc()
		return Backup{}, err
	}

	metrics.BackupsCreated.WithLabelValues(opts.Trigger).Inc()
	metrics.BackupDuration.Observe(time.Since(started).Seconds())

	m.logger.Info().
		Str("path", backup.Path).
		Str("trigger", opts.Trigger).
		Msg("Backup created")

	return backup, nil
}

func (m *Manager) write(ctx context.Context, opts CreateOptions) (Backup, error) {
	now := m.clock.Now()
	name := m.base + "." + now.Format(DateFormat)
	target := filepath.Join(m.dir, name)

	// The temporary name does not start with the data file name, so a
	// crash mid-write never leaves something that looks like a backup.
	tmp, err := os.CreateTemp(m.dir, "."+name+".*.tmp")
	if err != nil {
		return Backup{}, fmt.Errorf("create backup file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := m.source.Snapshot(ctx, tmp); err != nil {
		_ = tmp.Close()
		return Backup{}, fmt.Errorf("snapshot data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return Backup{}, fmt.Errorf("flush backup file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Backup{}, fmt.Errorf("close backup file: %w", err)
	}

	if m.skipUnchanged && !opts.Force {
		unchanged, err := m.matchesLatest(tmpPath)
		if err != nil {
			// Fall back to writing the backup
			m.logger.Warn().Err(err).Msg("Could not compare with latest backup")
		} else if unchanged {
			return Backup{}, ErrUnchanged
		}
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return Backup{}, fmt.Errorf("rename backup file: %w", err)
	}
	committed = true

	// The stored date has second precision, like the name.
	date, _ := m.parseName(name)
	return Backup{Path: target, Date: date}, nil
}

func (m *Manager) matchesLatest(snapshot string) (bool, error) {
	backups := m.list()
	if len(backups) == 0 {
		return false, nil
	}
	return sameContent(snapshot, backups[0].Path)
}

// Cleanup deletes the oldest backups until at most the retention limit
// remain. A file that cannot be deleted is logged and skipped; the
// returned error joins all such failures.
func (m *Manager) Cleanup() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanup()
}

func (m *Manager) cleanup() (int, error) {
	backups := m.list()
	if len(backups) <= m.retention {
		return 0, nil
	}

	var (
		deleted int
		errs    []error
	)
	for _, b := range backups[m.retention:] {
		if err := m.remove(b.Path); err != nil {
			metrics.BackupFailures.WithLabelValues("prune").Inc()
			m.logger.Error().Err(err).Str("path", b.Path).Msg("Could not delete backup file")
			errs = append(errs, err)
			continue
		}
		deleted++
		metrics.BackupsPruned.Inc()
		m.logger.Debug().Str("path", b.Path).Msg("Deleted old backup")
	}

	return deleted, errors.Join(errs...)
}

// List returns all backups, latest first. Files that look like backups but
// carry no valid timestamp are logged and ignored. An unreadable directory
// yields an empty list.
func (m *Manager) List() []Backup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list()
}

func (m *Manager) list() []Backup {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.logger.Error().Err(err).Str("dir", m.dir).Msg("Could not list backup directory")
		return []Backup{}
	}

	errorName := m.base + ErrorSuffix

	// Keyed by date: two files with the same timestamp count once.
	byDate := make(map[time.Time]Backup)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == m.base || name == errorName || !strings.HasPrefix(name, m.base) {
			continue
		}
		date, err := m.parseName(name)
		if err != nil {
			m.logger.Error().Err(err).Str("file", name).Msg("Ignoring file with invalid backup date")
			continue
		}
		byDate[date] = Backup{Path: filepath.Join(m.dir, name), Date: date}
	}

	backups := make([]Backup, 0, len(byDate))
	for _, b := range byDate {
		backups = append(backups, b)
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Date.After(backups[j].Date)
	})

	return backups
}

// Latest returns the newest backup.
func (m *Manager) Latest() (Backup, error) {
	backups := m.List()
	if len(backups) == 0 {
		return Backup{}, ErrNoBackups
	}
	return backups[0], nil
}

// DateOf returns the date embedded in a backup file name. The second
// result is false, and the failure logged, when no date can be inferred.
func (m *Manager) DateOf(path string) (time.Time, bool) {
	date, err := m.parseName(filepath.Base(path))
	if err != nil {
		m.logger.Error().Err(err).Str("file", path).Msg("Could not read backup date")
		return time.Time{}, false
	}
	return date, true
}

func (m *Manager) parseName(name string) (time.Time, error) {
	prefix := m.base + "."
	if !strings.HasPrefix(name, prefix) {
		return time.Time{}, fmt.Errorf("%s is not a backup of %s", name, m.base)
	}
	date, err := time.ParseInLocation(DateFormat, name[len(prefix):], time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse backup date: %w", err)
	}
	return date, nil
}
