// Package app provides the shared entry points behind the keepr CLI: the
// long-running daemon loop and the one-shot job runner.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsridhar/keepr/internal/config"
)

// RunParams configures the daemon loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.ResolvePath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level

	// Immediate runs every enabled browser job once at startup instead of
	// waiting for the first scheduled tick. Window gating still applies on
	// later ticks; the immediate pass ignores it deliberately, the operator
	// asked for a run now.
	Immediate bool
}

// Run loads configuration, starts the scheduler and the status server, and
// blocks until a shutdown signal arrives.
func Run(params RunParams) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := config.ResolvePath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := newLogger(params.LogLevel)

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}

	logger.Info("keepr starting",
		"version", params.Version,
		"config", cfgPath,
		"data_dir", dataDir,
	)

	deps, err := Build(cfg, dataDir, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.Scheduler.Start(); err != nil {
		return err
	}

	if deps.Server != nil {
		if err := deps.Server.Start(); err != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = deps.Scheduler.Stop(stopCtx)
			return err
		}
	}

	if params.Immediate {
		go runImmediate(deps, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig.String())

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := deps.Scheduler.Stop(stopCtx); err != nil {
		logger.Error("scheduler stop failed", "error", err)
	}
	if deps.Server != nil {
		if err := deps.Server.Stop(stopCtx); err != nil {
			logger.Error("server stop failed", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// RunJob executes one named job immediately, ignoring its window and jitter.
// Used by `keepr run <job>` for manual and debugging runs.
func RunJob(ctx context.Context, params RunParams, jobName string) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := config.ResolvePath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := newLogger(params.LogLevel)

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}

	deps, err := Build(cfg, dataDir, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	for _, job := range deps.Scheduler.Jobs() {
		if job.Name() == jobName {
			return job.Run(ctx)
		}
	}
	return fmt.Errorf("app: no enabled job named %q", jobName)
}

// runImmediate fires every browser job once, sequentially, skipping the
// cleanup job.
func runImmediate(deps *Deps, logger *slog.Logger) {
	for _, job := range deps.Scheduler.Jobs() {
		if job.Name() == config.JobHistoryCleanup {
			continue
		}
		logger.Info("immediate run", "job", job.Name())
		if err := job.Run(context.Background()); err != nil {
			logger.Error("immediate run failed", "job", job.Name(), "error", err)
		}
	}
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
