// Package settings persists user preferences in a flat properties file.
//
// Every write is saved to disk immediately. A Store is safe for
// concurrent use; open one per data directory and pass it around.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goodtune/baralga/internal/storage"
	"github.com/magiconair/properties"
	"github.com/rs/zerolog"
)

// Setting keys.
const (
	KeyExcelExportDirectory = "export.excel"
	KeyDataExportDirectory  = "export.data"
	KeyLastDescription      = "description"
	KeyFilterMonth          = "filter.month"
	KeyFilterWeek           = "filter.weekOfYear"
	KeyFilterYear           = "filter.year"
	KeyFilterProject        = "filter.projectId"
	KeyShownCategory        = "shown.category"
	KeyActivityActive       = "activity.active"
	KeyActivityStart        = "activity.start"
	KeyActivityProject      = "activity.projectId"
)

// DefaultShownCategory is the category shown when none was chosen.
const DefaultShownCategory = "General"

// Keys lists every known setting in display order.
var Keys = []string{
	KeyExcelExportDirectory,
	KeyDataExportDirectory,
	KeyLastDescription,
	KeyFilterYear,
	KeyFilterMonth,
	KeyFilterWeek,
	KeyFilterProject,
	KeyShownCategory,
	KeyActivityActive,
	KeyActivityStart,
	KeyActivityProject,
}

// Store is a properties file backed settings store.
type Store struct {
	path   string
	home   string
	logger zerolog.Logger

	mu    sync.RWMutex
	props *properties.Properties
}

// Open loads the settings file at path. A missing file yields an empty
// store that is created on first write.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	props, err := load(path)
	if err != nil {
		return nil, err
	}
	props.DisableExpansion = true

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	s := &Store{
		path:   path,
		home:   home,
		logger: logger.With().Str("component", "settings").Logger(),
		props:  props,
	}

	s.logger.Debug().Str("path", path).Int("entries", props.Len()).Msg("Settings loaded")
	return s, nil
}

// load reads the properties file. A missing file is not handed to the
// loader, which would report it on the standard logger.
func load(path string) (*properties.Properties, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return properties.NewProperties(), nil
	}
	loader := &properties.Loader{
		Encoding:         properties.ISO_8859_1,
		DisableExpansion: true,
	}
	props, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings %s: %w", path, err)
	}
	return props, nil
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the raw stored value of key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.props.Get(key)
}

// Set validates and stores a raw value for a known key.
func (s *Store) Set(key, value string) error {
	if err := validateValue(key, value); err != nil {
		return err
	}
	return s.update(func(p *properties.Properties) error {
		_, _, err := p.Set(key, value)
		return err
	})
}

// Unset removes key, restoring its default.
func (s *Store) Unset(key string) error {
	if !isKnown(key) {
		return fmt.Errorf("unknown setting %q", key)
	}
	return s.update(func(p *properties.Properties) error {
		p.Delete(key)
		return nil
	})
}

// Entry is one setting with its effective value.
type Entry struct {
	Key     string
	Value   string
	Default bool
}

// Entries returns all known settings with defaults applied, followed by
// any unknown keys found in the file.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(Keys))
	for _, key := range Keys {
		if v, ok := s.props.Get(key); ok {
			entries = append(entries, Entry{Key: key, Value: v})
			continue
		}
		entries = append(entries, Entry{Key: key, Value: s.defaultValue(key), Default: true})
	}

	var extra []string
	for _, key := range s.props.Keys() {
		if !isKnown(key) {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		v, _ := s.props.Get(key)
		entries = append(entries, Entry{Key: key, Value: v})
	}

	return entries
}

func (s *Store) defaultValue(key string) string {
	switch key {
	case KeyExcelExportDirectory, KeyDataExportDirectory:
		return s.home
	case KeyShownCategory:
		return DefaultShownCategory
	case KeyActivityActive:
		return "false"
	}
	return ""
}

// getString returns the stored value or the key's default.
func (s *Store) getString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.props.Get(key); ok {
		return v
	}
	return s.defaultValue(key)
}

// update applies fn to the properties and saves them. On a failed save the
// in-memory state keeps the change.
func (s *Store) update(fn func(p *properties.Properties) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.props); err != nil {
		return err
	}
	return s.save()
}

// save writes the file through a temporary sibling. Callers hold mu.
func (s *Store) save() error {
	if err := storage.EnsureParent(s.path); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := s.props.Write(tmp, properties.ISO_8859_1); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}

func (s *Store) setString(key, value string) error {
	return s.update(func(p *properties.Properties) error {
		_, _, err := p.Set(key, value)
		return err
	})
}

// ExcelExportDirectory returns the last directory used for spreadsheet
// exports, defaulting to the user's home.
func (s *Store) ExcelExportDirectory() string {
	return s.getString(KeyExcelExportDirectory)
}

// SetExcelExportDirectory stores the spreadsheet export directory.
func (s *Store) SetExcelExportDirectory(dir string) error {
	return s.setString(KeyExcelExportDirectory, dir)
}

// DataExportDirectory returns the last directory used for data exports.
func (s *Store) DataExportDirectory() string {
	return s.getString(KeyDataExportDirectory)
}

// SetDataExportDirectory stores the data export directory.
func (s *Store) SetDataExportDirectory(dir string) error {
	return s.setString(KeyDataExportDirectory, dir)
}

// LastDescription returns the description of the last recorded activity.
func (s *Store) LastDescription() string {
	return s.getString(KeyLastDescription)
}

// SetLastDescription stores the last activity description.
func (s *Store) SetLastDescription(description string) error {
	return s.setString(KeyLastDescription, description)
}

// ShownCategory returns the report category last shown.
func (s *Store) ShownCategory() string {
	return s.getString(KeyShownCategory)
}

// SetShownCategory stores the report category last shown.
func (s *Store) SetShownCategory(category string) error {
	return s.setString(KeyShownCategory, category)
}
