// Package jobs defines the scheduled work: the two profile-keeping jobs
// (resume refresh, headline toggle) and the maintenance job that prunes the
// run journal. The browser-bound part of a run sits behind the Pipeline
// interface so the journaling and event logic is testable without Chrome.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/jsridhar/keepr/internal/cron"
	"github.com/jsridhar/keepr/internal/events"
	"github.com/jsridhar/keepr/internal/history"
	"github.com/jsridhar/keepr/internal/metrics"
	"github.com/jsridhar/keepr/internal/schedule"
)

// Pipeline is the browser-bound part of a run: open a session, authenticate,
// perform the profile action. A non-empty screenshot names the diagnostic
// capture taken at the point of failure.
type Pipeline interface {
	Execute(ctx context.Context) (screenshot string, err error)
}

// Options carries the scheduling parameters shared by all jobs.
type Options struct {
	Schedule string
	Window   schedule.Window
	Jitter   schedule.Jitter
}

// ProfileJob wraps a Pipeline with journaling, metrics, and event
// publication. It implements cron.Job.
type ProfileJob struct {
	name     string
	opts     Options
	pipeline Pipeline

	store   *history.Store
	bus     *events.Bus
	metrics *metrics.Metrics
	logger  *slog.Logger

	now func() time.Time // injectable for tests
}

var _ cron.Job = (*ProfileJob)(nil)

// NewProfileJob builds a journaled job around a pipeline. store, bus, and
// metrics may be nil (e.g. for one-shot runs from the CLI).
func NewProfileJob(
	name string,
	opts Options,
	pipeline Pipeline,
	store *history.Store,
	bus *events.Bus,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ProfileJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileJob{
		name:     name,
		opts:     opts,
		pipeline: pipeline,
		store:    store,
		bus:      bus,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Name implements cron.Job.
func (j *ProfileJob) Name() string { return j.name }

// Schedule implements cron.Job.
func (j *ProfileJob) Schedule() string { return j.opts.Schedule }

// Window implements cron.Job.
func (j *ProfileJob) Window() schedule.Window { return j.opts.Window }

// Jitter implements cron.Job.
func (j *ProfileJob) Jitter() schedule.Jitter { return j.opts.Jitter }

// Run implements cron.Job. Errors are returned for the scheduler to log but
// are already fully reported here: journal row, metrics sample, events.
func (j *ProfileJob) Run(ctx context.Context) error {
	started := j.now()
	j.publish(events.Event{Job: j.name, Stage: events.StageStarted})
	j.logger.Info("job started", "job", j.name)

	screenshot, err := j.pipeline.Execute(ctx)

	finished := j.now()
	status := history.StatusOK
	detail := ""
	if err != nil {
		status = history.StatusFailed
		detail = err.Error()
	}

	if j.store != nil {
		record := history.Run{
			Job:        j.name,
			StartedAt:  started,
			FinishedAt: finished,
			Status:     status,
			Error:      detail,
			Screenshot: screenshot,
		}
		if rerr := j.store.Record(ctx, record); rerr != nil {
			j.logger.Warn("job journal write failed", "job", j.name, "error", rerr)
		}
	}

	if j.metrics != nil {
		j.metrics.ObserveRun(j.name, status, finished.Sub(started))
	}

	j.publish(events.Event{Job: j.name, Stage: events.StageFinished, Status: status, Detail: detail})

	if err != nil {
		j.logger.Error("job failed", "job", j.name, "error", err, "screenshot", screenshot)
		return err
	}
	j.logger.Info("job completed", "job", j.name, "took", finished.Sub(started))
	return nil
}

func (j *ProfileJob) publish(ev events.Event) {
	if j.bus != nil {
		j.bus.Publish(ev)
	}
}
