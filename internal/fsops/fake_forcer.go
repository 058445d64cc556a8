package fsops

import "os"

// FakeForcer implements Forcer for testing.
// Deletes pass through to the real filesystem except for paths listed in
// FailDelete, which are left in place and reported as failures. All calls are
// recorded.
type FakeForcer struct {
	FailDelete map[string]bool
	CopyErr    error
	Calls      []string
}

func (f *FakeForcer) ForceDelete(path string) bool {
	f.Calls = append(f.Calls, "delete:"+path)
	if f.FailDelete[path] {
		return false
	}
	err := os.Remove(path)
	return err == nil || os.IsNotExist(err)
}

func (f *FakeForcer) ForceCopy(src, dst string) error {
	f.Calls = append(f.Calls, "copy:"+src+"->"+dst)
	if f.CopyErr != nil {
		return f.CopyErr
	}
	return OSForcer{}.ForceCopy(src, dst)
}
