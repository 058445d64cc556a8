package fsops

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// OSForcer implements Forcer using real os package calls
type OSForcer struct{}

func (OSForcer) ForceDelete(path string) bool {
	err := os.Remove(path)
	if err == nil || os.IsNotExist(err) {
		return true
	}

	// Already a leftover from a previous failed delete: renaming again would
	// just stack suffixes without making progress.
	if IsMarked(path) {
		return false
	}

	marked := path + "." + uuid.NewString() + markedSuffix
	if err := os.Rename(path, marked); err != nil {
		return false
	}
	return true
}

func (OSForcer) ForceCopy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination %s: %w", dst, err)
	}
	return nil
}
