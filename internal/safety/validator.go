// Package safety gates every destructive daemon operation. A tree is only
// cleaned or pruned when its path normalizes into a configured root and stays
// clear of protected system paths, traversal tricks, and escaping symlinks.
package safety

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath    = errors.New("invalid path")
	ErrProtectedPath  = errors.New("protected path")
	ErrOutsideAllowed = errors.New("outside allowed roots")
	ErrTraversal      = errors.New("path traversal detected")
	ErrSymlinkEscape  = errors.New("symlink escape detected")
)

// protected paths blocked regardless of configuration
var protectedPaths = []string{
	"/",
	"/etc",
	"/bin",
	"/usr",
	"/boot",
	"/lib",
	"/lib64",
	"/sbin",
	"/var/lib/treekeeper",
	"/etc/treekeeper",
}

// Validator enforces the safety contract for delete and prune targets.
type Validator struct {
	allowedRoots []string
	protected    []string
}

// NewValidator creates a validator for the given allowed roots plus optional
// extra protected paths.
func NewValidator(allowed, extraProtected []string) *Validator {
	return &Validator{
		allowedRoots: normalize(allowed),
		protected:    append(normalize(protectedPaths), normalize(extraProtected)...),
	}
}

// ValidateTarget is the single source of truth for destructive-operation
// authorization. Returns a typed error on violation.
func (v *Validator) ValidateTarget(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ErrInvalidPath
	}
	p := filepath.Clean(abs)

	if v.isProtected(p) {
		return ErrProtectedPath
	}
	if !v.withinAllowed(p) {
		return ErrOutsideAllowed
	}
	if hasDotDot(path) {
		return ErrTraversal
	}

	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		// A not-yet-existing target cannot escape anywhere; the actual
		// operation will no-op on it anyway.
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !v.withinAllowed(filepath.Clean(resolved)) {
		return ErrSymlinkEscape
	}
	return nil
}

func (v *Validator) isProtected(p string) bool {
	if p == string(os.PathSeparator) {
		return true
	}
	for _, prot := range v.protected {
		if p == prot || hasPathPrefix(p, prot) {
			return true
		}
	}
	return false
}

func (v *Validator) withinAllowed(p string) bool {
	for _, r := range v.allowedRoots {
		if p == r || hasPathPrefix(p, r) {
			return true
		}
	}
	return false
}

// hasDotDot blocks any ".." segment in the raw, pre-normalization input.
func hasDotDot(raw string) bool {
	for _, part := range strings.Split(filepath.ToSlash(raw), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, prefix string) bool {
	if prefix == string(os.PathSeparator) {
		return path == prefix
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

func normalize(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		out = append(out, filepath.Clean(abs))
	}
	return out
}
