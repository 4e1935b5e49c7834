package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsridhar/keepr/internal/actions"
	"github.com/jsridhar/keepr/internal/auth"
	"github.com/jsridhar/keepr/internal/browser"
	"github.com/jsridhar/keepr/internal/events"
)

// browserPipeline is the shared open/authenticate/act sequence behind both
// profile jobs. Each execution launches a fresh Chrome, so no portal state
// leaks between ticks.
type browserPipeline struct {
	name       string
	browserOpt browser.Options
	auth       *auth.Manager
	profileURL string
	bus        *events.Bus
	logger     *slog.Logger

	act func(s *browser.Session) error
}

var _ Pipeline = (*browserPipeline)(nil)

// NewResumePipeline builds the pipeline that re-uploads the resume file.
func NewResumePipeline(
	opt browser.Options,
	mgr *auth.Manager,
	profileURL string,
	resumeFile string,
	limits actions.ResumeLimits,
	bus *events.Bus,
	logger *slog.Logger,
) Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &browserPipeline{
		name:       "resume_refresh",
		browserOpt: opt,
		auth:       mgr,
		profileURL: profileURL,
		bus:        bus,
		logger:     logger,
		act: func(s *browser.Session) error {
			return actions.UploadResume(s, logger, resumeFile, limits)
		},
	}
}

// NewHeadlinePipeline builds the pipeline that toggles the headline marker.
func NewHeadlinePipeline(
	opt browser.Options,
	mgr *auth.Manager,
	profileURL string,
	bus *events.Bus,
	logger *slog.Logger,
) Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &browserPipeline{
		name:       "headline_toggle",
		browserOpt: opt,
		auth:       mgr,
		profileURL: profileURL,
		bus:        bus,
		logger:     logger,
		act: func(s *browser.Session) error {
			_, _, err := actions.ToggleHeadline(s, logger)
			return err
		},
	}
}

// Execute implements Pipeline.
func (p *browserPipeline) Execute(ctx context.Context) (string, error) {
	sess, err := browser.New(ctx, p.browserOpt)
	if err != nil {
		return "", fmt.Errorf("jobs: %s: %w", p.name, err)
	}
	defer sess.Close()

	if err := p.auth.Establish(ctx, sess); err != nil {
		return sess.Diagnose(p.name + "_auth"), fmt.Errorf("jobs: %s: %w", p.name, err)
	}
	if p.bus != nil {
		p.bus.Publish(events.Event{Job: p.name, Stage: events.StageAuth})
	}

	if err := sess.Navigate(p.profileURL); err != nil {
		return sess.Diagnose(p.name + "_navigate"), fmt.Errorf("jobs: %s: %w", p.name, err)
	}

	if err := p.act(sess); err != nil {
		var actErr *actions.Error
		if errors.As(err, &actErr) {
			return actErr.Screenshot, err
		}
		return sess.Diagnose(p.name), err
	}
	return "", nil
}
