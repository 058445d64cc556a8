package metrics

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce    sync.Once
	serverMutex sync.Mutex
	currentSrv  *http.Server

	// FilesDeletedTotal tracks files removed by the cleaner
	FilesDeletedTotal prometheus.Counter

	// DeleteFailuresTotal tracks entries the cleaner could not remove
	DeleteFailuresTotal prometheus.Counter

	// DirsPrunedTotal tracks subdirectories removed by retention pruning
	DirsPrunedTotal prometheus.Counter

	// PruneFailuresTotal tracks pruned subdirectories left partially behind
	PruneFailuresTotal prometheus.Counter

	// CycleDuration tracks how long maintenance cycles take
	CycleDuration prometheus.Histogram

	// CycleLastRunTimestamp records Unix timestamp of the last cycle
	CycleLastRunTimestamp prometheus.Gauge

	// FreeSpacePercent tracks free disk space per monitored root
	FreeSpacePercent *prometheus.GaugeVec

	// VisibleFiles tracks matching files per monitored root
	VisibleFiles *prometheus.GaugeVec

	// ErrorsTotal tracks unexpected daemon errors
	ErrorsTotal prometheus.Counter
)

// Init initializes and registers all metrics.
// Safe to call multiple times (uses sync.Once).
func Init() {
	initOnce.Do(func() {
		FilesDeletedTotal = NewCounter(
			"treekeeper_files_deleted_total",
			"Total number of files deleted by the cleaner.",
		)
		DeleteFailuresTotal = NewCounter(
			"treekeeper_delete_failures_total",
			"Total number of entries that could not be removed.",
		)
		DirsPrunedTotal = NewCounter(
			"treekeeper_dirs_pruned_total",
			"Total number of subdirectories removed by retention pruning.",
		)
		PruneFailuresTotal = NewCounter(
			"treekeeper_prune_failures_total",
			"Total number of pruned subdirectories left partially behind.",
		)
		CycleDuration = NewDurationHistogram(
			"treekeeper_cycle_duration_seconds",
			"Duration of maintenance cycles in seconds.",
		)
		CycleLastRunTimestamp = NewGauge(
			"treekeeper_cycle_last_run_timestamp",
			"Timestamp of the last maintenance cycle (Unix epoch seconds).",
		)
		FreeSpacePercent = NewGaugeVec(
			"treekeeper_free_space_percent",
			"Free disk space percentage per monitored root.",
			[]string{"root"},
		)
		VisibleFiles = NewGaugeVec(
			"treekeeper_visible_files",
			"Files matching the configured pattern per monitored root.",
			[]string{"root"},
		)
		ErrorsTotal = NewCounter(
			"treekeeper_errors_total",
			"Total number of unexpected daemon errors.",
		)

		prometheus.MustRegister(
			FilesDeletedTotal,
			DeleteFailuresTotal,
			DirsPrunedTotal,
			PruneFailuresTotal,
			CycleDuration,
			CycleLastRunTimestamp,
			FreeSpacePercent,
			VisibleFiles,
			ErrorsTotal,
		)

		// Surface the gauge before the first cycle runs
		CycleLastRunTimestamp.Set(0)
	})
}

// RecordCycle marks a completed maintenance cycle.
func RecordCycle(elapsed time.Duration) {
	CycleLastRunTimestamp.Set(float64(time.Now().Unix()))
	CycleDuration.Observe(elapsed.Seconds())
}

// StartServer starts the metrics HTTP server on the specified address,
// exposing /metrics (Prometheus) and /health.
func StartServer(addr string, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Printf("metrics server already running on %s", currentSrv.Addr)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","healthy":true}`))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	currentSrv = srv

	go func() {
		logger.Printf("metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
			ErrorsTotal.Inc()
		}
	}()
}

// Shutdown gracefully shuts down the metrics server
func Shutdown(ctx context.Context, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv == nil {
		return
	}
	if err := currentSrv.Shutdown(ctx); err != nil {
		logger.Printf("metrics server shutdown error: %v", err)
		ErrorsTotal.Inc()
	}
	currentSrv = nil
}
