package sync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/sdejongh/versync/pkg/storage"
)

// ErrLocked is returned when another run holds the mirror lock
var ErrLocked = errors.New("mirror is locked by another run")

// LockPath returns the lock file of a mirror directory
func LockPath(mirrorDir string) string {
	return filepath.Join(mirrorDir, storage.StagingDir, "lock")
}

// AcquireLock takes the exclusive lock at path without waiting
func AcquireLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return lock, nil
}
