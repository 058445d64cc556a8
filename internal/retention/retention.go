// Package retention prunes a directory's subdirectories down to the N most
// recently modified, deleting the rest through the resilient cleaner.
package retention

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"treekeeper/internal/cleaner"
	"treekeeper/internal/pathutil"
)

// Logger interface for structured logging
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

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

// Metrics receives per-subdirectory prune outcomes. A nil Metrics disables
// reporting.
type Metrics interface {
	Pruned()
	PruneFailed()
}

// Pruner removes the oldest subdirectories of a path beyond a keep count.
type Pruner struct {
	cleaner *cleaner.Cleaner
	logger  Logger
	metrics Metrics
}

func New(c *cleaner.Cleaner, logger *log.Logger, metrics Metrics) *Pruner {
	if logger == nil {
		logger = log.Default()
	}
	return &Pruner{
		cleaner: c,
		logger:  &stdLogger{Logger: logger},
		metrics: metrics,
	}
}

type subdir struct {
	path    string
	modTime time.Time
}

// DeleteOldest keeps the keep most recently modified subdirectories of dir
// and deletes the rest, oldest first. Returns true when every pruned
// subdirectory was fully removed. A missing dir, or one with at most keep
// subdirectories, is a no-op returning true. Removal failures do not stop the
// remaining deletions.
func (p *Pruner) DeleteOldest(dir string, keep int) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return true
		}
		p.logger.Warn("Cannot list directory", "path", dir, "error", err)
		return false
	}

	var subdirs []subdir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Vanished between listing and stat: nothing to prune there.
			continue
		}
		subdirs = append(subdirs, subdir{
			path:    filepath.Join(dir, e.Name()),
			modTime: info.ModTime(),
		})
	}

	if keep < 0 {
		keep = 0
	}
	if len(subdirs) <= keep {
		return true
	}

	// Oldest first, so the doomed entries are the front of the slice.
	sort.Slice(subdirs, func(i, j int) bool {
		return subdirs[i].modTime.Before(subdirs[j].modTime)
	})

	ok := true
	for _, sd := range subdirs[:len(subdirs)-keep] {
		rel := pathutil.RelativePath(sd.path, dir)
		if failures := p.cleaner.Clean(sd.path); failures > 0 {
			p.logger.Warn("Prune left entries behind", "root", dir, "dir", rel, "failures", failures)
			if p.metrics != nil {
				p.metrics.PruneFailed()
			}
			ok = false
			continue
		}
		p.logger.Info("Pruned", "root", dir, "dir", rel)
		if p.metrics != nil {
			p.metrics.Pruned()
		}
	}
	return ok
}
