// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for keepr.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "15m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Portal  PortalConfig         `yaml:"portal"`
	Resume  ResumeConfig         `yaml:"resume"`
	OTP     OTPConfig            `yaml:"otp"`
	Jobs    map[string]JobConfig `yaml:"jobs"`
	Browser BrowserConfig        `yaml:"browser"`
	Server  ServerConfig         `yaml:"server"`
	History HistoryConfig        `yaml:"history"`
}

// PortalConfig identifies the target site and the credentials used against it.
// Email and Password are normally supplied via ${VAR} expansion so secrets
// never live in the file itself.
type PortalConfig struct {
	LoginURL   string `yaml:"login_url"`
	HomeURL    string `yaml:"home_url"`
	ProfileURL string `yaml:"profile_url"`

	Email    string `yaml:"email"`
	Password string `yaml:"password"`

	// CookiesFile is a JSON dump of an authenticated browser session,
	// produced by `keepr login`. When present, cookie auth is tried first.
	CookiesFile string `yaml:"cookies_file"`
}

// ResumeConfig describes the local resume file uploaded by the daily job.
type ResumeConfig struct {
	File       string   `yaml:"file"`
	MaxSizeMB  int64    `yaml:"max_size_mb"`
	Extensions []string `yaml:"extensions"`
}

// OTPConfig holds the IMAP account the portal sends one-time codes to.
// The app password is a provider-issued token, not the mailbox password.
type OTPConfig struct {
	Account     string   `yaml:"account"`
	AppPassword string   `yaml:"app_password"`
	Server      string   `yaml:"server"` // host:port; derived from the account domain when empty
	Sender      string   `yaml:"sender"`
	WaitTimeout Duration `yaml:"wait_timeout"`
	PollEvery   Duration `yaml:"poll_interval"`
}

// JobConfig configures one scheduled job.
type JobConfig struct {
	Enabled  *bool    `yaml:"enabled"` // nil means enabled
	Schedule string   `yaml:"schedule"`
	Days     []string `yaml:"days"`
	Window   string   `yaml:"window"`
	Jitter   struct {
		Min Duration `yaml:"min"`
		Max Duration `yaml:"max"`
	} `yaml:"jitter"`
}

// IsEnabled reports whether the job should be registered.
func (j JobConfig) IsEnabled() bool { return j.Enabled == nil || *j.Enabled }

// BrowserConfig controls the managed Chrome instance.
type BrowserConfig struct {
	Headless      *bool    `yaml:"headless"` // nil means headless
	NavTimeout    Duration `yaml:"nav_timeout"`
	ActionTimeout Duration `yaml:"action_timeout"`
	ScreenshotDir string   `yaml:"screenshot_dir"`
	UserAgent     string   `yaml:"user_agent"`
}

// IsHeadless reports whether the browser runs without a visible window.
func (b BrowserConfig) IsHeadless() bool { return b.Headless == nil || *b.Headless }

// ServerConfig controls the local status HTTP server.
type ServerConfig struct {
	Enabled         *bool    `yaml:"enabled"` // nil means enabled
	Bind            string   `yaml:"bind"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// IsEnabled reports whether the status server should start.
func (s ServerConfig) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

// HistoryConfig controls the SQLite run journal.
type HistoryConfig struct {
	Path      string   `yaml:"path"` // empty means <data dir>/history.db
	Retention Duration `yaml:"retention"`
}

// Known job names. Jobs outside this set are rejected by Validate.
const (
	JobResumeRefresh  = "resume_refresh"
	JobHeadlineToggle = "headline_toggle"
	JobHistoryCleanup = "history_cleanup"
)

// defaults fills zero values with sensible defaults. Called by Load after
// unmarshalling.
func (c *Config) defaults() {
	if c.Resume.MaxSizeMB <= 0 {
		c.Resume.MaxSizeMB = 5
	}
	if len(c.Resume.Extensions) == 0 {
		c.Resume.Extensions = []string{".pdf", ".doc", ".docx"}
	}

	if c.OTP.Sender == "" {
		c.OTP.Sender = "naukri"
	}
	if c.OTP.WaitTimeout <= 0 {
		c.OTP.WaitTimeout = Duration(2 * time.Minute)
	}
	if c.OTP.PollEvery <= 0 {
		c.OTP.PollEvery = Duration(5 * time.Second)
	}

	if c.Jobs == nil {
		c.Jobs = map[string]JobConfig{}
	}
	if _, ok := c.Jobs[JobResumeRefresh]; !ok {
		c.Jobs[JobResumeRefresh] = JobConfig{Schedule: "30 9 * * *"}
	}
	if _, ok := c.Jobs[JobHeadlineToggle]; !ok {
		c.Jobs[JobHeadlineToggle] = JobConfig{Schedule: "0 * * * *"}
	}
	if _, ok := c.Jobs[JobHistoryCleanup]; !ok {
		c.Jobs[JobHistoryCleanup] = JobConfig{Schedule: "0 3 * * *"}
	}
	for name, job := range c.Jobs {
		if job.Schedule == "" {
			job.Schedule = "0 * * * *"
		}
		if job.Jitter.Max == 0 && name != JobHistoryCleanup {
			job.Jitter.Min = Duration(time.Minute)
			job.Jitter.Max = Duration(15 * time.Minute)
		}
		c.Jobs[name] = job
	}

	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = Duration(30 * time.Second)
	}
	if c.Browser.ActionTimeout <= 0 {
		c.Browser.ActionTimeout = Duration(20 * time.Second)
	}
	if c.Browser.ScreenshotDir == "" {
		c.Browser.ScreenshotDir = "screenshots"
	}

	if c.Server.Bind == "" {
		c.Server.Bind = "127.0.0.1:8787"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = Duration(10 * time.Second)
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = Duration(5 * time.Second)
	}

	if c.History.Retention <= 0 {
		c.History.Retention = Duration(30 * 24 * time.Hour)
	}
}
