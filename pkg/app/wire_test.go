package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jsridhar/keepr/internal/config"
	"github.com/jsridhar/keepr/internal/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load(writeConfig(t, `
version: "1"
portal:
  login_url: https://www.example-jobs.com/nlogin/login
  home_url: https://www.example-jobs.com/
  profile_url: https://www.example-jobs.com/mnjuser/profile
  cookies_file: cookies.json
resume:
  file: resume.pdf
`))
	if err != nil {
		t.Fatal(err)
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keepr.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuild_RegistersDefaultJobs(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	deps, err := Build(cfg, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer deps.Close()

	names := make(map[string]bool)
	for _, job := range deps.Scheduler.Jobs() {
		names[job.Name()] = true
	}
	for _, want := range []string{
		config.JobResumeRefresh,
		config.JobHeadlineToggle,
		config.JobHistoryCleanup,
	} {
		if !names[want] {
			t.Errorf("job %q not registered (have %v)", want, names)
		}
	}

	if deps.Server == nil {
		t.Error("status server should be built by default")
	}
}

func TestBuild_DisabledJobSkipped(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	job := cfg.Jobs[config.JobHeadlineToggle]
	disabled := false
	job.Enabled = &disabled
	cfg.Jobs[config.JobHeadlineToggle] = job

	deps, err := Build(cfg, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer deps.Close()

	for _, job := range deps.Scheduler.Jobs() {
		if job.Name() == config.JobHeadlineToggle {
			t.Error("disabled job should not be registered")
		}
	}
}

func TestBuild_DisabledServer(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	disabled := false
	cfg.Server.Enabled = &disabled

	deps, err := Build(cfg, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer deps.Close()

	if deps.Server != nil {
		t.Error("server should be nil when disabled")
	}
}

func TestBuildAuthManager_NoStrategies(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	if _, err := buildAuthManager(cfg, metrics.New(), nil); err == nil {
		t.Fatal("expected error with no auth configuration")
	}
}
