package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jsridhar/keepr/internal/schedule"
	"github.com/robfig/cron/v3"
)

// cronParser accepts the standard 5-field expressions used in job schedules.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// knownJobs is the set of job names the daemon can run.
var knownJobs = []string{JobResumeRefresh, JobHeadlineToggle, JobHistoryCleanup}

// Validate checks the structural validity of a Config, collecting every
// problem rather than stopping at the first.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validatePortal(cfg.Portal)...)
	errs = append(errs, validateResume(cfg.Resume)...)
	errs = append(errs, validateJobs(cfg.Jobs)...)

	if cfg.Server.IsEnabled() {
		if _, err := net.ResolveTCPAddr("tcp", cfg.Server.Bind); err != nil {
			errs = append(errs, fmt.Errorf("config: server.bind %q: %w", cfg.Server.Bind, err))
		}
	}

	return errors.Join(errs...)
}

func validatePortal(p PortalConfig) []error {
	var errs []error

	for field, raw := range map[string]string{
		"portal.login_url":   p.LoginURL,
		"portal.home_url":    p.HomeURL,
		"portal.profile_url": p.ProfileURL,
	} {
		if raw == "" {
			errs = append(errs, fmt.Errorf("config: %s is required", field))
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: %s is not an absolute URL: %q", field, raw))
		}
	}

	// At least one authentication path must be configured: cookies, or
	// email+password (the OTP mailbox is only consulted when the site
	// challenges during password login).
	hasCookies := p.CookiesFile != ""
	hasCredentials := p.Email != "" && p.Password != ""
	if !hasCookies && !hasCredentials {
		errs = append(errs, errors.New("config: no authentication method: set portal.cookies_file or portal.email + portal.password"))
	}

	return errs
}

func validateResume(r ResumeConfig) []error {
	var errs []error

	if r.File == "" {
		errs = append(errs, errors.New("config: resume.file is required"))
		return errs
	}

	ext := strings.ToLower(filepath.Ext(r.File))
	if !slices.Contains(r.Extensions, ext) {
		errs = append(errs, fmt.Errorf("config: resume.file extension %q not in %v", ext, r.Extensions))
	}

	return errs
}

func validateJobs(jobs map[string]JobConfig) []error {
	var errs []error

	for name, job := range jobs {
		if !slices.Contains(knownJobs, name) {
			errs = append(errs, fmt.Errorf("config: unknown job %q (known: %v)", name, knownJobs))
			continue
		}

		if _, err := cronParser.Parse(job.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("config: job %q: invalid schedule %q: %w", name, job.Schedule, err))
		}

		if job.Window != "" {
			if _, err := schedule.ParseWindow(job.Window); err != nil {
				errs = append(errs, fmt.Errorf("config: job %q: %w", name, err))
			}
		}
		if _, err := schedule.ParseDays(job.Days); err != nil {
			errs = append(errs, fmt.Errorf("config: job %q: %w", name, err))
		}

		jitter := schedule.Jitter{Min: job.Jitter.Min.Std(), Max: job.Jitter.Max.Std()}
		if err := jitter.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("config: job %q: %w", name, err))
		}
	}

	return errs
}

// WindowFor builds the schedule.Window for a validated job entry.
func (j JobConfig) WindowFor() (schedule.Window, error) {
	var w schedule.Window
	if j.Window != "" {
		parsed, err := schedule.ParseWindow(j.Window)
		if err != nil {
			return schedule.Window{}, err
		}
		w = parsed
	}
	days, err := schedule.ParseDays(j.Days)
	if err != nil {
		return schedule.Window{}, err
	}
	w.Days = days
	return w, nil
}

// JitterFor builds the schedule.Jitter for a job entry.
func (j JobConfig) JitterFor() schedule.Jitter {
	return schedule.Jitter{Min: j.Jitter.Min.Std(), Max: j.Jitter.Max.Std()}
}
