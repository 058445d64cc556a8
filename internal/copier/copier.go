// Package copier implements plain recursive directory copy on top of the
// ForceCopy collaborator. Unlike the cleaner it is not best-effort: the first
// per-file failure propagates to the caller.
package copier

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"treekeeper/internal/fsops"
)

// Copier copies directory trees file by file.
type Copier struct {
	forcer fsops.Forcer
}

func New(forcer fsops.Forcer) *Copier {
	return &Copier{forcer: forcer}
}

// Copy copies every file directly inside src into dst, creating dst as
// needed. With recursive set, subdirectories are copied too, depth-first.
// Files are copied in case-insensitive name order so repeated runs touch
// entries in the same sequence.
func (c *Copier) Copy(src, dst string, recursive bool) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("list source %s: %w", src, err)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create destination %s: %w", dst, err)
	}

	var files, dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		} else {
			files = append(files, e.Name())
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i]) < strings.ToLower(files[j])
	})

	for _, name := range files {
		if err := c.forcer.ForceCopy(filepath.Join(src, name), filepath.Join(dst, name)); err != nil {
			return err
		}
	}

	if !recursive {
		return nil
	}
	sort.Slice(dirs, func(i, j int) bool {
		return strings.ToLower(dirs[i]) < strings.ToLower(dirs[j])
	})
	for _, name := range dirs {
		if err := c.Copy(filepath.Join(src, name), filepath.Join(dst, name), true); err != nil {
			return err
		}
	}
	return nil
}
