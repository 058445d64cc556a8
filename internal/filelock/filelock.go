// Package filelock guards against two daemon instances maintaining the same
// trees at once.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// InstanceLock is an exclusive advisory lock on a well-known file.
type InstanceLock struct {
	flock *flock.Flock
	path  string
}

// New creates a lock for the given path, creating parent directories as
// needed.
func New(path string) (*InstanceLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory for %s: %w", path, err)
	}
	return &InstanceLock{
		flock: flock.New(path),
		path:  path,
	}, nil
}

// TryAcquire attempts to take the lock without blocking. Returns false when
// another process holds it.
func (l *InstanceLock) TryAcquire() (bool, error) {
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("try lock on %s: %w", l.path, err)
	}
	return acquired, nil
}

// Release releases the lock.
func (l *InstanceLock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock on %s: %w", l.path, err)
	}
	return nil
}
