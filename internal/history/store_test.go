package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(t *testing.T, s *Store, job, status string, started time.Time) {
	t.Helper()
	err := s.Record(context.Background(), Run{
		Job:        job,
		StartedAt:  started,
		FinishedAt: started.Add(40 * time.Second),
		Status:     status,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	record(t, store, "resume_refresh", StatusOK, base)
	record(t, store, "headline_toggle", StatusFailed, base.Add(10*time.Minute))
	record(t, store, "resume_refresh", StatusOK, base.Add(20*time.Minute))

	runs, err := store.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Job != "resume_refresh" || !runs[0].StartedAt.Equal(base.Add(20*time.Minute)) {
		t.Errorf("newest run = %+v", runs[0])
	}
	if runs[1].Status != StatusFailed {
		t.Errorf("second run status = %q, want failed", runs[1].Status)
	}
	if d := runs[0].Duration(); d != 40*time.Second {
		t.Errorf("duration = %s, want 40s", d)
	}
}

func TestStore_LastByJob(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	base := time.Now().Add(-2 * time.Hour).Truncate(time.Millisecond)

	record(t, store, "resume_refresh", StatusFailed, base)
	record(t, store, "resume_refresh", StatusOK, base.Add(time.Hour))
	record(t, store, "headline_toggle", StatusOK, base.Add(30*time.Minute))

	last, err := store.LastByJob(context.Background())
	if err != nil {
		t.Fatalf("LastByJob: %v", err)
	}
	if len(last) != 2 {
		t.Fatalf("got %d jobs, want 2", len(last))
	}
	if last["resume_refresh"].Status != StatusOK {
		t.Errorf("resume_refresh last status = %q, want ok (newest wins)", last["resume_refresh"].Status)
	}
}

func TestStore_Prune(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	record(t, store, "resume_refresh", StatusOK, time.Now().Add(-48*time.Hour))
	record(t, store, "resume_refresh", StatusOK, time.Now().Add(-time.Minute))

	pruned, err := store.Prune(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	runs, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("remaining runs = %d, want 1", len(runs))
	}
}
