package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hypesilico/apicheck/internal/report"
	"github.com/hypesilico/apicheck/internal/validator"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndListRuns(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	started := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	summary := report.Summary{Passed: 3, Failed: 1, Skipped: 1, Total: 4}
	results := []validator.Result{
		{Name: "/health", Passed: true, Message: "OK"},
		{Name: "/v1/pnl [pnl]", Passed: false, Message: "equity: expected ~1000.00, got 1000.02"},
	}

	runID, err := s.RecordRun(ctx, started, "http://localhost:8080", summary, results)
	if err != nil {
		t.Fatal(err)
	}
	if runID <= 0 {
		t.Fatalf("runID = %d", runID)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.ID != runID || r.BaseURL != "http://localhost:8080" {
		t.Errorf("run = %+v", r)
	}
	if r.Summary != summary {
		t.Errorf("summary = %+v, want %+v", r.Summary, summary)
	}
	if !r.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", r.StartedAt, started)
	}
}

func TestRunFailuresOnlyStoresFailed(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	results := []validator.Result{
		{Name: "/health", Passed: true, Message: "OK"},
		{Name: "/v1/trades [trades]", Passed: false, Message: "trade_count: expected 3, got 2"},
		{Name: "/v1/deposits [deposits]", Passed: false, Message: "depositCount: expected 2, got 1"},
	}
	runID, err := s.RecordRun(ctx, time.Now(), "http://localhost:8080",
		report.Summary{Passed: 1, Failed: 2, Total: 3}, results)
	if err != nil {
		t.Fatal(err)
	}

	failures, err := s.RunFailures(ctx, runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failures))
	}
	if failures[0].Name != "/v1/trades [trades]" || failures[1].Name != "/v1/deposits [deposits]" {
		t.Errorf("failures out of order: %+v", failures)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.RecordRun(ctx, time.Now(), "http://localhost:8080",
			report.Summary{Passed: i, Total: i}, nil); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID <= runs[1].ID {
		t.Errorf("runs not newest first: %d then %d", runs[0].ID, runs[1].ID)
	}
}
