// Package cron schedules the profile-keeping jobs. Each job carries its own
// allowed time window and a jitter bound; the scheduler enforces both before
// any job action runs.
package cron

import (
	"context"

	"github.com/jsridhar/keepr/internal/schedule"
)

// Job defines a periodic task gated by a time window.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "0 * * * *").
	Schedule() string

	// Window returns when the job is allowed to fire. Ticks landing outside
	// it are skipped silently.
	Window() schedule.Window

	// Jitter returns the random delay bounds applied before the action.
	Jitter() schedule.Jitter

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}
