package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jsridhar/keepr/internal/actions"
	"github.com/jsridhar/keepr/internal/auth"
	"github.com/jsridhar/keepr/internal/browser"
	"github.com/jsridhar/keepr/internal/config"
	"github.com/jsridhar/keepr/internal/cron"
	"github.com/jsridhar/keepr/internal/events"
	"github.com/jsridhar/keepr/internal/history"
	"github.com/jsridhar/keepr/internal/jobs"
	"github.com/jsridhar/keepr/internal/metrics"
	"github.com/jsridhar/keepr/internal/otp"
	"github.com/jsridhar/keepr/internal/server"
)

// Deps is the assembled object graph for one daemon process.
type Deps struct {
	Config    *config.Config
	Store     *history.Store
	Bus       *events.Bus
	Metrics   *metrics.Metrics
	Scheduler *cron.Scheduler
	Server    *server.Server // nil when the status server is disabled
	Logger    *slog.Logger
}

// Close releases everything Build opened.
func (d *Deps) Close() {
	if d.Store != nil {
		_ = d.Store.Close()
	}
}

// Build wires the full daemon from a validated config. Nothing is started;
// the caller owns the lifecycle.
func Build(cfg *config.Config, dataDir string, logger *slog.Logger) (*Deps, error) {
	if logger == nil {
		logger = slog.Default()
	}

	historyPath := cfg.History.Path
	if historyPath == "" {
		historyPath = filepath.Join(dataDir, "history.db")
	}
	store, err := history.Open(historyPath)
	if err != nil {
		return nil, err
	}

	deps := &Deps{
		Config:  cfg,
		Store:   store,
		Bus:     events.NewBus(),
		Metrics: metrics.New(),
		Logger:  logger,
	}

	mgr, err := buildAuthManager(cfg, deps.Metrics, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.Scheduler = cron.NewScheduler(logger)
	if err := registerJobs(deps, mgr, logger); err != nil {
		deps.Close()
		return nil, err
	}

	if cfg.Server.IsEnabled() {
		deps.Server = server.New(server.Config{
			Bind:            cfg.Server.Bind,
			ReadTimeout:     cfg.Server.ReadTimeout.Std(),
			WriteTimeout:    cfg.Server.WriteTimeout.Std(),
			ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
		}, deps.Scheduler, store, deps.Bus, deps.Metrics, logger)
	}

	return deps, nil
}

// buildAuthManager assembles the fallback chain in fixed order: stored
// cookies first, then credentials with the OTP mailbox behind them.
func buildAuthManager(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*auth.Manager, error) {
	var strategies []auth.Strategy

	if cfg.Portal.CookiesFile != "" {
		strategies = append(strategies, &auth.CookieStrategy{
			File:       cfg.Portal.CookiesFile,
			HomeURL:    cfg.Portal.HomeURL,
			ProfileURL: cfg.Portal.ProfileURL,
			Logger:     logger,
		})
	}

	if cfg.Portal.Email != "" && cfg.Portal.Password != "" {
		var reader otp.Reader
		if cfg.OTP.Account != "" {
			mail, err := otp.NewMailReader(otp.Config{
				Server:       cfg.OTP.Server,
				Account:      cfg.OTP.Account,
				Password:     cfg.OTP.AppPassword,
				Sender:       cfg.OTP.Sender,
				WaitTimeout:  cfg.OTP.WaitTimeout.Std(),
				PollInterval: cfg.OTP.PollEvery.Std(),
				Logger:       logger,
			})
			if err != nil {
				return nil, err
			}
			reader = &timedReader{inner: mail, metrics: m}
		}

		strategies = append(strategies, &auth.PasswordStrategy{
			Email:    cfg.Portal.Email,
			Password: cfg.Portal.Password,
			LoginURL: cfg.Portal.LoginURL,
			OTP:      reader,
			Logger:   logger,
		})
	}

	if len(strategies) == 0 {
		return nil, fmt.Errorf("app: no authentication strategy configured")
	}

	mgr := auth.NewManager(logger, strategies...)
	mgr.AttemptHook = m.ObserveAuthAttempt
	return mgr, nil
}

// registerJobs builds and registers every enabled job from the config.
func registerJobs(deps *Deps, mgr *auth.Manager, logger *slog.Logger) error {
	cfg := deps.Config
	browserOpt := browserOptions(cfg)

	for name, jc := range cfg.Jobs {
		if !jc.IsEnabled() {
			logger.Info("job disabled", "job", name)
			continue
		}

		job, err := buildJob(name, jc, deps, mgr, browserOpt, logger)
		if err != nil {
			return err
		}
		if err := deps.Scheduler.RegisterJob(job); err != nil {
			return err
		}
	}
	return nil
}

func buildJob(
	name string,
	jc config.JobConfig,
	deps *Deps,
	mgr *auth.Manager,
	browserOpt browser.Options,
	logger *slog.Logger,
) (cron.Job, error) {
	window, err := jc.WindowFor()
	if err != nil {
		return nil, fmt.Errorf("app: job %q: %w", name, err)
	}
	opts := jobs.Options{
		Schedule: jc.Schedule,
		Window:   window,
		Jitter:   jc.JitterFor(),
	}
	cfg := deps.Config

	switch name {
	case config.JobResumeRefresh:
		pipeline := jobs.NewResumePipeline(
			browserOpt, mgr, cfg.Portal.ProfileURL,
			cfg.Resume.File,
			actions.ResumeLimits{
				MaxBytes:   cfg.Resume.MaxSizeMB * 1024 * 1024,
				Extensions: cfg.Resume.Extensions,
			},
			deps.Bus, logger,
		)
		return jobs.NewProfileJob(name, opts, pipeline, deps.Store, deps.Bus, deps.Metrics, logger), nil

	case config.JobHeadlineToggle:
		pipeline := jobs.NewHeadlinePipeline(
			browserOpt, mgr, cfg.Portal.ProfileURL, deps.Bus, logger,
		)
		return jobs.NewProfileJob(name, opts, pipeline, deps.Store, deps.Bus, deps.Metrics, logger), nil

	case config.JobHistoryCleanup:
		return jobs.NewHistoryCleanupJob(
			opts, deps.Store, cfg.Browser.ScreenshotDir, cfg.History.Retention.Std(), logger,
		), nil
	}

	return nil, fmt.Errorf("app: unknown job %q", name)
}

func browserOptions(cfg *config.Config) browser.Options {
	return browser.Options{
		Headless:      cfg.Browser.IsHeadless(),
		UserAgent:     cfg.Browser.UserAgent,
		NavTimeout:    cfg.Browser.NavTimeout.Std(),
		ActionTimeout: cfg.Browser.ActionTimeout.Std(),
		ScreenshotDir: cfg.Browser.ScreenshotDir,
	}
}

// timedReader feeds OTP wait durations into metrics without the otp package
// knowing about them.
type timedReader struct {
	inner   otp.Reader
	metrics *metrics.Metrics
}

func (t *timedReader) WaitForCode(ctx context.Context) (string, error) {
	start := time.Now()
	code, err := t.inner.WaitForCode(ctx)
	t.metrics.ObserveOTPWait(time.Since(start))
	return code, err
}
