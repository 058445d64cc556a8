// Package pathutil holds small path helpers shared by the daemon and tools.
package pathutil

import (
	"path/filepath"
	"strings"
)

// RelativePath returns full expressed relative to base. When full does not
// live under base (or the two cannot be related), full is returned unchanged.
func RelativePath(full, base string) string {
	if base == "" {
		return full
	}
	rel, err := filepath.Rel(base, full)
	if err != nil {
		return full
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return full
	}
	return rel
}
