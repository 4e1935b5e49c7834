package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
version: "1"
portal:
  login_url: https://www.example-jobs.com/login
  home_url: https://www.example-jobs.com
  profile_url: https://www.example-jobs.com/profile
  email: ${KEEPR_TEST_EMAIL}
  password: ${KEEPR_TEST_PASSWORD:-fallback-pass}
resume:
  file: testdata/resume.pdf
otp:
  account: me@gmail.com
  app_password: app-pass
jobs:
  resume_refresh:
    schedule: "30 9 * * *"
    days: [mon, tue, wed, thu, fri]
    window: "09:00-18:00"
    jitter: {min: 1m, max: 10m}
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keepr.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("KEEPR_TEST_EMAIL", "user@example.com")
	os.Unsetenv("KEEPR_TEST_PASSWORD")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Portal.Email != "user@example.com" {
		t.Errorf("email = %q, want env value", cfg.Portal.Email)
	}
	if cfg.Portal.Password != "fallback-pass" {
		t.Errorf("password = %q, want default value", cfg.Portal.Password)
	}

	// Defaults.
	if cfg.Resume.MaxSizeMB != 5 {
		t.Errorf("resume.max_size_mb default = %d, want 5", cfg.Resume.MaxSizeMB)
	}
	if cfg.OTP.WaitTimeout.Std() != 2*time.Minute {
		t.Errorf("otp.wait_timeout default = %s, want 2m", cfg.OTP.WaitTimeout.Std())
	}
	if _, ok := cfg.Jobs[JobHeadlineToggle]; !ok {
		t.Error("headline_toggle job should be defaulted in")
	}
	if cfg.Server.Bind != "127.0.0.1:8787" {
		t.Errorf("server.bind default = %q", cfg.Server.Bind)
	}

	// Explicit jitter survives defaulting.
	job := cfg.Jobs[JobResumeRefresh]
	if job.Jitter.Max.Std() != 10*time.Minute {
		t.Errorf("jitter.max = %s, want 10m", job.Jitter.Max.Std())
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	os.Unsetenv("KEEPR_DEFINITELY_UNSET")

	_, err := Load(writeConfig(t, "version: \"1\"\nportal:\n  email: ${KEEPR_DEFINITELY_UNSET}\n"))
	if err == nil || !strings.Contains(err.Error(), "KEEPR_DEFINITELY_UNSET") {
		t.Fatalf("Load = %v, want unresolved variable error", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "version: \"1\"\notp:\n  wait_timeout: banana\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Fatalf("Load = %v, want invalid duration error", err)
	}
}
