package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"treekeeper/internal/config"
	"treekeeper/internal/exitcodes"
	"treekeeper/internal/filelock"
	"treekeeper/internal/history"
	"treekeeper/internal/logging"
	"treekeeper/internal/metrics"
	"treekeeper/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "/etc/treekeeper/config.yaml", "Path to configuration file")
	once := flag.Bool("once", false, "Run one maintenance cycle and exit (no loop)")
	flag.Parse()

	logger := logging.New()

	logger.Println("Treekeeper daemon starting...")
	logger.Printf("Config file: %s", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Printf("ERROR: Failed to load config: %v", err)
		os.Exit(exitcodes.InvalidConfig)
	}

	lock, err := filelock.New(cfg.LockFile)
	if err != nil {
		logger.Printf("ERROR: Failed to prepare lock file: %v", err)
		os.Exit(exitcodes.RuntimeError)
	}
	acquired, err := lock.TryAcquire()
	if err != nil {
		logger.Printf("ERROR: Failed to acquire lock: %v", err)
		os.Exit(exitcodes.RuntimeError)
	}
	if !acquired {
		logger.Printf("ERROR: Another instance holds %s", cfg.LockFile)
		os.Exit(exitcodes.AlreadyRunning)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Printf("ERROR: Failed to release lock: %v", err)
		}
	}()

	metrics.Init()
	if cfg.Prometheus.Port > 0 {
		addr := cfg.PrometheusAddress()
		logger.Printf("Starting Prometheus metrics on %s", addr)
		metrics.StartServer(addr, logger)
	}

	var db *history.DB
	if cfg.HistoryPath != "" {
		logger.Printf("Opening run history: %s", cfg.HistoryPath)
		db, err = history.Open(cfg.HistoryPath)
		if err != nil {
			logger.Printf("ERROR: Failed to open history database: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close history database: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	logger.Println("Starting maintenance scheduler...")
	if *once {
		if err := scheduler.RunOnceWithHistory(ctx, cfg, logger, db); err != nil {
			logger.Printf("ERROR: Maintenance cycle failed: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		logger.Println("Maintenance cycle completed successfully")
	} else {
		if err := scheduler.RunWithHistory(ctx, cfg, logger, db); err != nil && err != context.Canceled {
			logger.Printf("ERROR: Scheduler failed: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
	}

	logger.Println("Treekeeper daemon stopped")
}
