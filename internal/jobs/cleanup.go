package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jsridhar/keepr/internal/cron"
	"github.com/jsridhar/keepr/internal/history"
	"github.com/jsridhar/keepr/internal/schedule"
)

// HistoryCleanupJob prunes journal rows and diagnostic screenshots older
// than the retention window. It needs no browser and no window gate.
type HistoryCleanupJob struct {
	opts          Options
	store         *history.Store
	screenshotDir string
	retention     time.Duration
	logger        *slog.Logger

	now func() time.Time // injectable for tests
}

var _ cron.Job = (*HistoryCleanupJob)(nil)

// NewHistoryCleanupJob builds the maintenance job. screenshotDir may be
// empty to skip file pruning.
func NewHistoryCleanupJob(
	opts Options,
	store *history.Store,
	screenshotDir string,
	retention time.Duration,
	logger *slog.Logger,
) *HistoryCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryCleanupJob{
		opts:          opts,
		store:         store,
		screenshotDir: screenshotDir,
		retention:     retention,
		logger:        logger,
		now:           time.Now,
	}
}

// Name implements cron.Job.
func (j *HistoryCleanupJob) Name() string { return "history_cleanup" }

// Schedule implements cron.Job.
func (j *HistoryCleanupJob) Schedule() string { return j.opts.Schedule }

// Window implements cron.Job. Cleanup runs whenever its tick lands.
func (j *HistoryCleanupJob) Window() schedule.Window { return j.opts.Window }

// Jitter implements cron.Job.
func (j *HistoryCleanupJob) Jitter() schedule.Jitter { return j.opts.Jitter }

// Run implements cron.Job.
func (j *HistoryCleanupJob) Run(ctx context.Context) error {
	rows, err := j.store.Prune(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("jobs: history cleanup: %w", err)
	}

	files, ferr := j.pruneScreenshots()
	if ferr != nil {
		// Row pruning already succeeded; report the file sweep separately.
		j.logger.Warn("screenshot sweep incomplete", "error", ferr)
	}

	j.logger.Info("history pruned",
		"rows", rows,
		"screenshots", files,
		"retention", j.retention,
	)
	return nil
}

// pruneScreenshots deletes .png files in the screenshot directory whose
// modification time is older than the retention window.
func (j *HistoryCleanupJob) pruneScreenshots() (int, error) {
	if j.screenshotDir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(j.screenshotDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w", j.screenshotDir, err)
	}

	cutoff := j.now().Add(-j.retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".png" {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.screenshotDir, entry.Name())); err != nil {
			return removed, fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}
