package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/mod/sumdb/dirhash"
)

// Restore replaces the data file with the given backup. The current data
// file, if any, is first copied to the error file so nothing is lost.
// The store must be closed while this runs.
func (m *Manager) Restore(b Backup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restore(b)
}

// Recover quarantines the data file and restores the newest backup.
func (m *Manager) Recover() (Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	backups := m.list()
	if len(backups) == 0 {
		return Backup{}, ErrNoBackups
	}
	if err := m.restore(backups[0]); err != nil {
		return Backup{}, err
	}
	return backups[0], nil
}

func (m *Manager) restore(b Backup) error {
	if filepath.Dir(b.Path) != m.dir {
		return fmt.Errorf("%s is not in backup directory %s", b.Path, m.dir)
	}
	if _, err := m.parseName(filepath.Base(b.Path)); err != nil {
		return err
	}

	data := m.DataFile()
	if _, err := os.Stat(data); err == nil {
		if err := copyFile(data, m.ErrorFile()); err != nil {
			return fmt.Errorf("quarantine data file: %w", err)
		}
		m.logger.Warn().Str("path", m.ErrorFile()).Msg("Previous data file kept")
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat data file: %w", err)
	}

	if err := copyFile(b.Path, data); err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}

	m.logger.Info().Str("backup", b.Path).Str("path", data).Msg("Backup restored")
	return nil
}

// copyFile copies src over dst through a temporary file in dst's directory.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := out.Name()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// sameContent reports whether two files hash identically. Both are hashed
// under the same logical name since dirhash includes names in the digest.
func sameContent(a, b string) (bool, error) {
	ha, err := contentHash(a)
	if err != nil {
		return false, err
	}
	hb, err := contentHash(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

func contentHash(path string) (string, error) {
	return dirhash.Hash1([]string{"data"}, func(string) (io.ReadCloser, error) {
		return os.Open(path)
	})
}
