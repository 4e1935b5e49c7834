package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jsridhar/keepr/internal/events"
	"github.com/jsridhar/keepr/internal/history"
	"github.com/jsridhar/keepr/internal/metrics"
)

// fakePipeline scripts the outcome of the browser-bound part of a run.
type fakePipeline struct {
	screenshot string
	err        error
	calls      int
}

func (p *fakePipeline) Execute(_ context.Context) (string, error) {
	p.calls++
	return p.screenshot, p.err
}

func openTestStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestProfileJob_SuccessIsJournaled(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	pipeline := &fakePipeline{}
	job := NewProfileJob("resume_refresh", Options{Schedule: "30 9 * * *"},
		pipeline, store, nil, metrics.New(), nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if pipeline.calls != 1 {
		t.Fatalf("pipeline calls = %d, want 1", pipeline.calls)
	}

	last, err := store.LastByJob(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	run, ok := last["resume_refresh"]
	if !ok {
		t.Fatal("no journal row recorded")
	}
	if run.Status != history.StatusOK {
		t.Errorf("status = %q, want %q", run.Status, history.StatusOK)
	}
	if run.Error != "" {
		t.Errorf("error detail = %q, want empty", run.Error)
	}
}

func TestProfileJob_FailureIsJournaledAndReturned(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	cause := errors.New("no selector matched")
	pipeline := &fakePipeline{screenshot: "headline_toggle_20250108_103000.png", err: cause}
	job := NewProfileJob("headline_toggle", Options{Schedule: "0 * * * *"},
		pipeline, store, nil, nil, nil)

	err := job.Run(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("run error = %v, want the pipeline cause", err)
	}

	last, err := store.LastByJob(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	run := last["headline_toggle"]
	if run.Status != history.StatusFailed {
		t.Errorf("status = %q, want %q", run.Status, history.StatusFailed)
	}
	if run.Error == "" {
		t.Error("error detail should be recorded")
	}
	if run.Screenshot != pipeline.screenshot {
		t.Errorf("screenshot = %q, want %q", run.Screenshot, pipeline.screenshot)
	}
}

func TestProfileJob_PublishesLifecycleEvents(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()
	ch := bus.Subscribe(8)
	defer bus.Unsubscribe(ch)

	job := NewProfileJob("resume_refresh", Options{}, &fakePipeline{}, nil, bus, nil, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	var stages []string
	for len(ch) > 0 {
		stages = append(stages, (<-ch).Stage)
	}
	want := []string{events.StageStarted, events.StageFinished}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("stages = %v, want %v", stages, want)
		}
	}
}

func TestProfileJob_NilCollaboratorsAreOptional(t *testing.T) {
	t.Parallel()

	job := NewProfileJob("resume_refresh", Options{}, &fakePipeline{}, nil, nil, nil, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run with nil store/bus/metrics failed: %v", err)
	}
}

func TestHistoryCleanupJob_PrunesRowsAndScreenshots(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	now := time.Now()

	old := history.Run{
		Job:        "resume_refresh",
		StartedAt:  now.Add(-90 * 24 * time.Hour),
		FinishedAt: now.Add(-90 * 24 * time.Hour).Add(time.Minute),
		Status:     history.StatusOK,
	}
	fresh := history.Run{
		Job:        "resume_refresh",
		StartedAt:  now.Add(-time.Hour),
		FinishedAt: now.Add(-time.Hour).Add(time.Minute),
		Status:     history.StatusOK,
	}
	for _, run := range []history.Run{old, fresh} {
		if err := store.Record(context.Background(), run); err != nil {
			t.Fatal(err)
		}
	}

	dir := t.TempDir()
	stale := filepath.Join(dir, "resume_refresh_error_20250101_090000.png")
	recent := filepath.Join(dir, "headline_toggle_error_20260101_090000.png")
	for _, path := range []string{stale, recent} {
		if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	staleTime := now.Add(-90 * 24 * time.Hour)
	if err := os.Chtimes(stale, staleTime, staleTime); err != nil {
		t.Fatal(err)
	}

	job := NewHistoryCleanupJob(Options{Schedule: "0 3 * * *"}, store, dir, 30*24*time.Hour, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	runs, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("remaining runs = %d, want 1", len(runs))
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale screenshot should be removed")
	}
	if _, err := os.Stat(recent); err != nil {
		t.Error("recent screenshot should survive")
	}
}

func TestHistoryCleanupJob_MissingScreenshotDir(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	job := NewHistoryCleanupJob(Options{}, store,
		filepath.Join(t.TempDir(), "does-not-exist"), time.Hour, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("cleanup should tolerate a missing directory: %v", err)
	}
}
