package fsops

import "strings"

// Forcer abstracts the best-effort file primitives used by the cleaner and
// copier. Injecting it instead of calling os directly enables fault-injecting
// fakes in tests.
type Forcer interface {
	// ForceDelete attempts a hard delete of path. On failure it falls back to
	// renaming the entry to a non-colliding marked-for-deletion name so a
	// later pass can retry. Returns whether the entry is no longer present
	// under its original name. Never returns an error.
	ForceDelete(path string) bool

	// ForceCopy copies a single file, creating or overwriting the
	// destination.
	ForceCopy(src, dst string) error
}

// markedSuffix terminates every rename-fallback name produced by ForceDelete.
const markedSuffix = ".deleted"

// IsMarked reports whether name is a rename-fallback leftover from a prior
// failed delete. Such entries are never re-renamed; retrying the hard delete
// is enough.
func IsMarked(name string) bool {
	return strings.HasSuffix(name, markedSuffix)
}
