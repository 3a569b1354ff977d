package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/routemetrics/config"
	"github.com/giygas/routemetrics/health"
	"github.com/giygas/routemetrics/logging"
	"github.com/giygas/routemetrics/metrics"
	"github.com/giygas/routemetrics/scheduler"
	"github.com/giygas/routemetrics/server"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logService, err := logging.Init(logging.Options{
		Level:          cfg.LogLevel,
		Dir:            cfg.LogDir,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logService.Close()

	bundle, err := newBundle(cfg)
	if err != nil {
		logging.Error("Failed to register request metrics", "error", err)
		os.Exit(1)
	}
	shared := metrics.NewShared(bundle)

	sched := scheduler.NewScheduler(shared.Clone(), cfg.DigestInterval)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	srv := server.NewServer(cfg, shared, health.NewChecker(shared.Clone(), time.Now()))

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range signals {
		if sig == syscall.SIGHUP {
			reload(shared)
			continue
		}
		break
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown failed", "error", err)
	}
}

func newBundle(cfg *config.Config) (*metrics.Metrics, error) {
	var opts []metrics.Option
	if len(cfg.MetricsBuckets) > 0 {
		opts = append(opts, metrics.WithBuckets(cfg.MetricsBuckets))
	}
	return metrics.New(cfg.MetricsNamespace, opts...)
}

// reload re-reads .env and swaps in a fresh bundle built from it. The
// middleware and the scrape endpoint switch together; counters restart.
func reload(shared *metrics.Shared) {
	if err := config.ReloadDotEnv(); err != nil {
		logging.Error("Reload rejected, keeping current metrics", "error", err)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Reload rejected, keeping current metrics", "error", err)
		return
	}

	bundle, err := newBundle(cfg)
	if err != nil {
		logging.Error("Reload rejected, keeping current metrics", "error", err)
		return
	}

	old := shared.Swap(bundle)
	logging.Info("Request metrics reloaded",
		"previous_namespace", old.Namespace(),
		"namespace", bundle.Namespace())
}
