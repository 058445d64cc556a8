package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treekeeper/internal/cleaner"
	"treekeeper/internal/fsops"
)

// makeSubdirs creates n subdirectories with strictly increasing modification
// times; index 0 is the oldest.
func makeSubdirs(t *testing.T, root string, n int) []string {
	t.Helper()
	base := time.Now().Add(-time.Duration(n+1) * time.Hour)
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := filepath.Join(root, string(rune('a'+i)))
		require.NoError(t, os.MkdirAll(p, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(p, "payload.txt"), []byte("x"), 0o644))
		mt := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(p, mt, mt))
		paths = append(paths, p)
	}
	return paths
}

func newPruner(forcer fsops.Forcer) *Pruner {
	return New(cleaner.New(forcer, nil, nil), nil, nil)
}

func TestDeleteOldestKeepsNewest(t *testing.T) {
	root := t.TempDir()
	dirs := makeSubdirs(t, root, 5)

	p := newPruner(fsops.OSForcer{})
	assert.True(t, p.DeleteOldest(root, 3))

	for _, gone := range dirs[:2] {
		_, err := os.Stat(gone)
		assert.True(t, os.IsNotExist(err), "oldest subdirectory %s should be removed", gone)
	}
	for _, kept := range dirs[2:] {
		_, err := os.Stat(kept)
		assert.NoError(t, err, "newest subdirectory %s should survive", kept)
	}
}

func TestDeleteOldestPartialFailure(t *testing.T) {
	root := t.TempDir()
	dirs := makeSubdirs(t, root, 5)
	stuck := filepath.Join(dirs[0], "payload.txt")

	fake := &fsops.FakeForcer{FailDelete: map[string]bool{stuck: true}}
	p := newPruner(fake)
	assert.False(t, p.DeleteOldest(root, 3), "a failed removal must be reported")

	// The other doomed subdirectory still gets removed.
	_, err := os.Stat(dirs[1])
	assert.True(t, os.IsNotExist(err))
	// The stuck one stays, with its file intact.
	_, err = os.Stat(stuck)
	assert.NoError(t, err)
}

func TestDeleteOldestNoopWhenUnderKeep(t *testing.T) {
	root := t.TempDir()
	dirs := makeSubdirs(t, root, 2)

	p := newPruner(fsops.OSForcer{})
	assert.True(t, p.DeleteOldest(root, 3))
	for _, d := range dirs {
		_, err := os.Stat(d)
		assert.NoError(t, err)
	}
}

func TestDeleteOldestIgnoresFiles(t *testing.T) {
	root := t.TempDir()
	makeSubdirs(t, root, 1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "loose.txt"), []byte("x"), 0o644))

	p := newPruner(fsops.OSForcer{})
	assert.True(t, p.DeleteOldest(root, 0))

	// Only subdirectories are pruned; loose files are not retention targets.
	_, err := os.Stat(filepath.Join(root, "loose.txt"))
	assert.NoError(t, err)
}

func TestDeleteOldestMissingDir(t *testing.T) {
	p := newPruner(fsops.OSForcer{})
	assert.True(t, p.DeleteOldest(filepath.Join(t.TempDir(), "gone"), 3))
}

type countingMetrics struct {
	pruned int
	failed int
}

func (m *countingMetrics) Pruned()      { m.pruned++ }
func (m *countingMetrics) PruneFailed() { m.failed++ }

func TestDeleteOldestReportsMetrics(t *testing.T) {
	root := t.TempDir()
	dirs := makeSubdirs(t, root, 4)
	stuck := filepath.Join(dirs[0], "payload.txt")

	fake := &fsops.FakeForcer{FailDelete: map[string]bool{stuck: true}}
	m := &countingMetrics{}
	p := New(cleaner.New(fake, nil, nil), nil, m)
	p.DeleteOldest(root, 2)

	assert.Equal(t, 1, m.pruned)
	assert.Equal(t, 1, m.failed)
}
