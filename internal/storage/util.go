package storage

import (
	"os"
	"path/filepath"
)

// EnsureDir ensures a directory exists with default permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// EnsureParent creates the directory holding path.
func EnsureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return EnsureDir(dir)
}
