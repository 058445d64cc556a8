package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"treekeeper/internal/config"
	"treekeeper/internal/history"
	"treekeeper/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

// tempRoot resolves symlinks so the safety validator sees the same path the
// cleaner operates on.
func tempRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}
	return root
}

func makeSubdir(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	p := filepath.Join(root, name)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(p, "data.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	mt := time.Now().Add(-age)
	if err := os.Chtimes(p, mt, mt); err != nil {
		t.Fatalf("Failed to set mtime: %v", err)
	}
	return p
}

func TestRunOnceNilConfig(t *testing.T) {
	if err := RunOnce(context.Background(), nil, nil); err == nil {
		t.Fatal("RunOnce with nil config expected error, got nil")
	}
}

func TestRunOnceCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &config.Config{Roots: []config.RootRule{{Path: t.TempDir(), Pattern: "*"}}}
	if err := RunOnce(ctx, cfg, nil); err != context.Canceled {
		t.Errorf("RunOnce = %v, expected context.Canceled", err)
	}
}

func TestRunOncePrunesByRetention(t *testing.T) {
	root := tempRoot(t)
	oldest := makeSubdir(t, root, "oldest", 3*time.Hour)
	middle := makeSubdir(t, root, "middle", 2*time.Hour)
	newest := makeSubdir(t, root, "newest", time.Hour)

	cfg := &config.Config{
		Roots: []config.RootRule{{Path: root, KeepCount: 2, Pattern: "*"}},
	}

	if err := RunOnce(context.Background(), cfg, nil); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if _, err := os.Stat(oldest); !os.IsNotExist(err) {
		t.Errorf("oldest subdirectory should be pruned")
	}
	for _, kept := range []string{middle, newest} {
		if _, err := os.Stat(kept); err != nil {
			t.Errorf("subdirectory %s should survive: %v", kept, err)
		}
	}
}

func TestRunOnceCleansRoot(t *testing.T) {
	parent := tempRoot(t)
	root := filepath.Join(parent, "spool")
	makeSubdir(t, root, "junk", time.Hour)

	cfg := &config.Config{
		Roots: []config.RootRule{{Path: root, Clean: true, Pattern: "*"}},
	}

	if err := RunOnce(context.Background(), cfg, nil); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("cleaned root should be fully removed")
	}
}

func TestRunOnceSkipsRootOutsideSafety(t *testing.T) {
	// /etc is protected: the cycle must skip it and still succeed.
	cfg := &config.Config{
		Roots: []config.RootRule{{Path: "/etc", Clean: true, Pattern: "*"}},
	}

	if err := RunOnce(context.Background(), cfg, nil); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if _, err := os.Stat("/etc"); err != nil {
		t.Fatalf("/etc must be untouched: %v", err)
	}
}

func TestRunOnceRecordsHistory(t *testing.T) {
	root := tempRoot(t)
	makeSubdir(t, root, "a", 2*time.Hour)
	makeSubdir(t, root, "b", time.Hour)

	db, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	defer db.Close()

	cfg := &config.Config{
		Roots: []config.RootRule{{Path: root, KeepCount: 1, Pattern: "*"}},
	}

	if err := RunOnceWithHistory(context.Background(), cfg, nil, db); err != nil {
		t.Fatalf("RunOnceWithHistory failed: %v", err)
	}

	runs, err := db.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(runs))
	}
	if runs[0].Action != history.ActionPrune || runs[0].Root != root {
		t.Errorf("unexpected run record: %+v", runs[0])
	}
	if runs[0].Failures != 0 {
		t.Errorf("expected a clean prune, got %d failures", runs[0].Failures)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	root := tempRoot(t)
	cfg := &config.Config{
		Roots:           []config.RootRule{{Path: root, Pattern: "*"}},
		IntervalMinutes: 60,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, nil)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run = %v, expected context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
