package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"treekeeper/internal/cleaner"
	"treekeeper/internal/config"
	"treekeeper/internal/disk"
	"treekeeper/internal/fsops"
	"treekeeper/internal/history"
	"treekeeper/internal/limiter"
	"treekeeper/internal/metrics"
	"treekeeper/internal/retention"
	"treekeeper/internal/safety"
	"treekeeper/internal/treewalk"
)

func RunOnce(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	return RunOnceWithHistory(ctx, cfg, logger, nil)
}

// RunOnceWithHistory applies one maintenance cycle to every configured root:
// retention pruning where keep_count is set, full cleaning where clean is
// set, plus gauge updates. Per-root problems are logged and counted, never
// fatal; the cycle visits every root.
func RunOnceWithHistory(ctx context.Context, cfg *config.Config, logger *log.Logger, db *history.DB) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var cpuLimiter *limiter.CPULimiter
	if cfg.ResourceLimits.MaxCPUPercent > 0 {
		cpuLimiter = limiter.NewCPULimiter(cfg.ResourceLimits.MaxCPUPercent)
	}

	start := time.Now()

	validator := safety.NewValidator(cfg.RootPaths(), nil)
	cl := cleaner.New(fsops.OSForcer{}, logger, metrics.CleanerReporter{})
	pr := retention.New(cl, logger, metrics.PrunerReporter{})

	for _, rule := range cfg.Roots {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if cpuLimiter != nil {
			cpuLimiter.Throttle()
		}

		if err := validator.ValidateTarget(rule.Path); err != nil {
			logger.Printf("skipping root %s: %v", rule.Path, err)
			metrics.ErrorsTotal.Inc()
			continue
		}

		if rule.KeepCount > 0 {
			t0 := time.Now()
			ok := pr.DeleteOldest(rule.Path, rule.KeepCount)
			recordRun(db, logger, history.RunRecord{
				Root:     rule.Path,
				Action:   history.ActionPrune,
				Failures: boolToFailures(ok),
				Duration: time.Since(t0).Milliseconds(),
			})
			if !ok {
				logger.Printf("prune of %s left entries behind", rule.Path)
			}
		}

		if rule.Clean {
			t0 := time.Now()
			failures := cl.Clean(rule.Path)
			recordRun(db, logger, history.RunRecord{
				Root:     rule.Path,
				Action:   history.ActionClean,
				Failures: failures,
				Duration: time.Since(t0).Milliseconds(),
			})
			if failures > 0 {
				logger.Printf("clean of %s finished with %d failures", rule.Path, failures)
			}
		}

		updateRootGauges(rule, logger)
	}

	elapsed := time.Since(start)
	metrics.RecordCycle(elapsed)
	logger.Printf("cycle complete: roots=%d duration=%.3fs", len(cfg.Roots), elapsed.Seconds())
	return nil
}

func Run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	return RunWithHistory(ctx, cfg, logger, nil)
}

// RunWithHistory runs maintenance cycles on the configured interval until the
// context is cancelled.
func RunWithHistory(ctx context.Context, cfg *config.Config, logger *log.Logger, db *history.DB) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}

	if err := RunOnceWithHistory(ctx, cfg, logger, db); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Println("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := RunOnceWithHistory(ctx, cfg, logger, db); err != nil {
				logger.Printf("error running cycle: %v", err)
			}
		}
	}
}

// updateRootGauges refreshes the free-space and visible-file gauges for one
// root. The file count pulls the lazy enumerator to completion but never
// holds more than one listing per depth level.
func updateRootGauges(rule config.RootRule, logger *log.Logger) {
	if free, err := disk.GetFreePercent(rule.Path); err == nil {
		metrics.FreeSpacePercent.WithLabelValues(rule.Path).Set(free)
	} else {
		logger.Printf("failed to get disk usage for %s: %v", rule.Path, err)
	}

	count := 0
	for range treewalk.GetFiles(rule.Path, rule.Pattern, true) {
		count++
	}
	metrics.VisibleFiles.WithLabelValues(rule.Path).Set(float64(count))
}

func recordRun(db *history.DB, logger *log.Logger, rec history.RunRecord) {
	if db == nil {
		return
	}
	if err := db.RecordRun(rec); err != nil {
		// History is an audit convenience; its failure never stops the cycle.
		logger.Printf("failed to record run: %v", err)
		metrics.ErrorsTotal.Inc()
	}
}

func boolToFailures(ok bool) int {
	if ok {
		return 0
	}
	return 1
}
