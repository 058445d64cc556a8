// Package treewalk enumerates files in a directory tree lazily and in a
// stable order. Ordering is case-insensitive lexicographic for both files and
// subdirectories, with case-sensitive tie-breaking so equal-fold names still
// sort deterministically.
package treewalk

import (
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// GetFiles returns a lazy sequence of file paths under dir whose names match
// the shell-style pattern ("*" and "?" wildcards). The pattern filters file
// names only; subdirectories are always descended into when recursive is
// true. An empty pattern matches everything.
//
// Traversal is depth-first pre-order: all matching files of a directory are
// yielded in sorted order before its subdirectories are visited, each
// recursively, in sorted order. At most one directory listing per depth level
// is live at a time, so memory is proportional to tree depth, not tree size.
//
// A directory that vanishes or becomes unreadable mid-traversal contributes
// nothing from that branch; no error reaches the consumer. Each call produces
// a fresh, independent traversal.
func GetFiles(dir, pattern string, recursive bool) iter.Seq[string] {
	if pattern == "" {
		pattern = "*"
	}
	return func(yield func(string) bool) {
		walk(dir, pattern, recursive, yield)
	}
}

// walk returns false once the consumer stops pulling.
func walk(dir, pattern string, recursive bool, yield func(string) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Vanished or unreadable branch yields nothing.
		return true
	}

	var files, dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		} else {
			files = append(files, e.Name())
		}
	}
	sortNames(files)

	for _, name := range files {
		if ok, err := filepath.Match(pattern, name); err != nil || !ok {
			continue
		}
		if !yield(filepath.Join(dir, name)) {
			return false
		}
	}

	if !recursive {
		return true
	}
	sortNames(dirs)
	for _, name := range dirs {
		if !walk(filepath.Join(dir, name), pattern, true, yield) {
			return false
		}
	}
	return true
}

// sortNames orders case-insensitively, breaking ties case-sensitively.
func sortNames(names []string) {
	sort.Slice(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li != lj {
			return li < lj
		}
		return names[i] < names[j]
	})
}
