package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"treekeeper/internal/copier"
	"treekeeper/internal/fsops"
	"treekeeper/internal/history"
)

func main() {
	dbPath := flag.String("db", "/var/lib/treekeeper/history.db", "Path to run history database")
	recent := flag.Int("recent", 0, "Show N most recent runs")
	root := flag.String("root", "", "Filter runs by root path")
	stats := flag.Bool("stats", false, "Show run statistics")
	days := flag.Int("days", 30, "Number of days for statistics (default: 30)")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	backupDir := flag.String("backup", "", "Copy the history database directory to this path and exit")
	flag.Parse()

	if *backupDir != "" {
		c := copier.New(fsops.OSForcer{})
		if err := c.Copy(filepath.Dir(*dbPath), *backupDir, false); err != nil {
			log.Fatalf("ERROR: Failed to back up history: %v", err)
		}
		fmt.Printf("History backed up to %s\n", *backupDir)
		return
	}

	db, err := history.Open(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	switch {
	case *stats:
		showStats(db, *days, *jsonOutput)
	case *root != "":
		n := *recent
		if n <= 0 {
			n = 20
		}
		runs, err := db.RunsForRoot(*root, n)
		if err != nil {
			log.Fatalf("ERROR: Failed to query runs: %v", err)
		}
		printRuns(runs, *jsonOutput)
	case *recent > 0:
		runs, err := db.RecentRuns(*recent)
		if err != nil {
			log.Fatalf("ERROR: Failed to query runs: %v", err)
		}
		printRuns(runs, *jsonOutput)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  treekeeper-query --recent 10              # Show 10 most recent runs")
		fmt.Println("  treekeeper-query --stats                  # Show run statistics")
		fmt.Println("  treekeeper-query --root /var/spool/build  # Show runs for one root")
	}
}

func showStats(db *history.DB, days int, jsonOutput bool) {
	s, err := db.StatsSince(days)
	if err != nil {
		log.Fatalf("ERROR: Failed to query statistics: %v", err)
	}

	if jsonOutput {
		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			log.Fatalf("ERROR: Failed to encode statistics: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	header("Run statistics (last %d days)", days)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Runs:\t%d\n", s.Runs)
	fmt.Fprintf(w, "Clean runs:\t%d\n", s.CleanRuns)
	fmt.Fprintf(w, "Prune runs:\t%d\n", s.PruneRuns)
	fmt.Fprintf(w, "Total failures:\t%d\n", s.TotalFailures)
	w.Flush()
}

func printRuns(runs []history.RunRecord, jsonOutput bool) {
	if jsonOutput {
		out, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			log.Fatalf("ERROR: Failed to encode runs: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return
	}

	header("%d run(s)", len(runs))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tACTION\tROOT\tFAILURES\tDURATION")
	for _, r := range runs {
		failures := fmt.Sprintf("%d", r.Failures)
		if r.Failures > 0 && useColor() {
			failures = color.RedString(failures)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dms\n",
			r.Timestamp.Format(time.RFC3339), r.Action, r.Root, failures, r.Duration)
	}
	w.Flush()
}

func header(format string, args ...interface{}) {
	if useColor() {
		color.New(color.Bold).Printf(format+"\n", args...)
		return
	}
	fmt.Printf(format+"\n", args...)
}

func useColor() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
