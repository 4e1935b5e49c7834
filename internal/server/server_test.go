package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/jsridhar/keepr/internal/events"
	"github.com/jsridhar/keepr/internal/history"
	"github.com/jsridhar/keepr/internal/metrics"
)

func openTestStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(t *testing.T, store *history.Store, job, status, detail string) {
	t.Helper()
	now := time.Now()
	err := store.Record(context.Background(), history.Run{
		Job:        job,
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
		Status:     status,
		Error:      detail,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestHealth_OKWhenNoFailures(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	record(t, store, "resume_refresh", history.StatusOK, "")

	srv := New(Config{}, nil, store, nil, nil, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" {
		t.Errorf("health status = %q, want ok", resp.Status)
	}
	if resp.Jobs["resume_refresh"] != history.StatusOK {
		t.Errorf("job status = %q, want %q", resp.Jobs["resume_refresh"], history.StatusOK)
	}
}

func TestHealth_DegradedOnLastRunFailure(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	record(t, store, "headline_toggle", history.StatusOK, "")
	record(t, store, "headline_toggle", history.StatusFailed, "no selector matched")

	srv := New(Config{}, nil, store, nil, nil, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" {
		t.Errorf("health status = %q, want degraded", resp.Status)
	}
}

func TestHealth_NoStore(t *testing.T) {
	t.Parallel()

	srv := New(Config{}, nil, nil, nil, nil, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestStatus_ReportsRecentRuns(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	record(t, store, "resume_refresh", history.StatusOK, "")
	record(t, store, "headline_toggle", history.StatusFailed, "otp timeout")

	srv := New(Config{}, nil, store, nil, nil, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Recent) != 2 {
		t.Fatalf("recent runs = %d, want 2", len(resp.Recent))
	}
	job, ok := resp.Jobs["headline_toggle"]
	if !ok {
		t.Fatal("headline_toggle missing from job map")
	}
	if job.LastStatus != history.StatusFailed {
		t.Errorf("last status = %q, want %q", job.LastStatus, history.StatusFailed)
	}
	if job.LastError != "otp timeout" {
		t.Errorf("last error = %q, want otp timeout", job.LastError)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveRun("resume_refresh", history.StatusOK, 3*time.Second)

	srv := New(Config{}, nil, nil, nil, m, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "keepr_runs_total") {
		t.Error("exposition should include keepr_runs_total")
	}
}

func TestEventStream_DeliversPublishedEvents(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()
	srv := New(Config{}, nil, nil, bus, nil, nil)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/events"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The subscription is registered during the handshake, but give the
	// handler a moment to reach its select loop.
	time.Sleep(50 * time.Millisecond)
	bus.Publish(events.Event{Job: "resume_refresh", Stage: events.StageStarted})

	var ev events.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Job != "resume_refresh" || ev.Stage != events.StageStarted {
		t.Errorf("event = %+v, want resume_refresh/started", ev)
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	srv := New(Config{Bind: "127.0.0.1:0"}, nil, nil, nil, nil, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestStart_BadBind(t *testing.T) {
	t.Parallel()

	srv := New(Config{Bind: "256.0.0.1:99999"}, nil, nil, nil, nil, nil)
	if err := srv.Start(); err == nil {
		t.Fatal("expected listen error for bad bind address")
	}
}
