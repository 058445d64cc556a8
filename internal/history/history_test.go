package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

// TestDatabaseCreation verifies database file creation and initialization
func TestDatabaseCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file not created at %s", dbPath)
	}
}

func TestRecordAndQueryRuns(t *testing.T) {
	db := openTestDB(t)

	records := []RunRecord{
		{Root: "/var/spool/a", Action: ActionClean, Failures: 0, Duration: 12},
		{Root: "/var/spool/a", Action: ActionPrune, Failures: 1, Duration: 7},
		{Root: "/var/spool/b", Action: ActionClean, Failures: 3, Duration: 40},
	}
	for i, rec := range records {
		rec.Timestamp = time.Now().Add(time.Duration(i) * time.Second)
		if err := db.RecordRun(rec); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	recent, err := db.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(recent))
	}
	// Newest first
	if recent[0].Root != "/var/spool/b" {
		t.Errorf("newest run root = %s, expected /var/spool/b", recent[0].Root)
	}
	if recent[0].Failures != 3 {
		t.Errorf("newest run failures = %d, expected 3", recent[0].Failures)
	}

	forA, err := db.RunsForRoot("/var/spool/a", 10)
	if err != nil {
		t.Fatalf("RunsForRoot failed: %v", err)
	}
	if len(forA) != 2 {
		t.Errorf("expected 2 runs for /var/spool/a, got %d", len(forA))
	}
}

func TestRecentRunsLimit(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 5; i++ {
		rec := RunRecord{
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
			Root:      "/var/spool/x",
			Action:    ActionClean,
		}
		if err := db.RecordRun(rec); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	recent, err := db.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("expected 2 runs, got %d", len(recent))
	}
}

func TestStatsSince(t *testing.T) {
	db := openTestDB(t)

	now := time.Now()
	runs := []RunRecord{
		{Timestamp: now, Root: "/a", Action: ActionClean, Failures: 2},
		{Timestamp: now, Root: "/a", Action: ActionPrune, Failures: 1},
		{Timestamp: now.AddDate(0, 0, -60), Root: "/a", Action: ActionClean, Failures: 9},
	}
	for _, rec := range runs {
		if err := db.RecordRun(rec); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	s, err := db.StatsSince(30)
	if err != nil {
		t.Fatalf("StatsSince failed: %v", err)
	}
	if s.Runs != 2 {
		t.Errorf("Runs = %d, expected 2 (old run outside window)", s.Runs)
	}
	if s.TotalFailures != 3 {
		t.Errorf("TotalFailures = %d, expected 3", s.TotalFailures)
	}
	if s.CleanRuns != 1 || s.PruneRuns != 1 {
		t.Errorf("CleanRuns=%d PruneRuns=%d, expected 1 and 1", s.CleanRuns, s.PruneRuns)
	}
}
