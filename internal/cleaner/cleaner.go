// Package cleaner implements resilient bottom-up recursive deletion. Entries
// that cannot be removed are left behind (files under a marked-for-deletion
// name, directories in place) and reported through a failure count instead of
// an error, so repeated runs converge.
package cleaner

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"treekeeper/internal/fsops"
)

// Logger interface for structured logging
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger interface
type stdLogger struct {
	*log.Logger
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Metrics receives per-entry outcomes. All methods must tolerate concurrent
// use. A nil Metrics disables reporting.
type Metrics interface {
	FileDeleted()
	DeleteFailed()
}

// Cleaner deletes directory trees bottom-up, tolerating locked or otherwise
// unremovable entries.
type Cleaner struct {
	forcer  fsops.Forcer
	logger  Logger
	metrics Metrics
}

// New creates a Cleaner using the given delete collaborator. A nil logger
// falls back to log.Default; a nil metrics disables metric reporting.
func New(forcer fsops.Forcer, logger *log.Logger, metrics Metrics) *Cleaner {
	if logger == nil {
		logger = log.Default()
	}
	return &Cleaner{
		forcer:  forcer,
		logger:  &stdLogger{Logger: logger},
		metrics: metrics,
	}
}

// Clean removes dir and everything beneath it, bottom-up, and returns the
// number of entries that could not be fully removed. A missing path counts as
// already clean and returns 0. Ordinary filesystem errors (locked files,
// permission denied, concurrent deletion) never escape as errors; they fold
// into the count. A directory with any unresolved failure beneath it is left
// in place and adds one to its parent's count.
func (c *Cleaner) Clean(dir string) int {
	info, err := os.Stat(dir)
	if err != nil {
		// Already gone: nothing to do.
		return 0
	}
	if !info.IsDir() {
		if c.deleteFile(dir) {
			return 0
		}
		return 1
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		// Unreadable directory: contents unknown, leave it standing.
		c.logger.Warn("Cannot list directory", "path", dir, "error", err)
		return 1
	}

	failed := 0

	// Files first, then recurse, so a directory is only attempted once its
	// entire subtree is provably empty.
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !c.deleteFile(filepath.Join(dir, e.Name())) {
			failed++
		}
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		failed += c.Clean(filepath.Join(dir, e.Name()))
	}

	if failed == 0 {
		// RemoveAll rather than Remove: catches entries created after our
		// listing. This is the one place a misbehaving collaborator is
		// converted into a count instead of propagating.
		if err := c.removeTree(dir); err != nil {
			c.logger.Warn("Failed to remove directory", "path", dir, "error", err)
			c.reportFailure()
			failed++
		}
	} else {
		// Directory still holds unremovable descendants: never delete it,
		// and surface this level's failure to the caller.
		failed++
	}
	return failed
}

func (c *Cleaner) deleteFile(path string) bool {
	if c.forcer.ForceDelete(path) {
		if c.metrics != nil {
			c.metrics.FileDeleted()
		}
		return true
	}
	c.logger.Warn("Failed to delete file", "path", path)
	c.reportFailure()
	return false
}

func (c *Cleaner) removeTree(dir string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("remove %s: %v", dir, r)
		}
	}()
	return os.RemoveAll(dir)
}

func (c *Cleaner) reportFailure() {
	if c.metrics != nil {
		c.metrics.DeleteFailed()
	}
}
