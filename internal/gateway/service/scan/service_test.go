package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scanagent/internal/gateway/panel"
	artifactrepo "scanagent/internal/gateway/repository/artifact"
	"scanagent/internal/gateway/repository/scanstore"
	"scanagent/internal/scanflow"
	"scanagent/internal/scanservice"
	"scanagent/internal/telemetry"
)

func newTestService(run runFunc) (*Service, *artifactrepo.MemoryStore) {
	arts := artifactrepo.NewMemoryStore()
	return &Service{
		run:       run,
		store:     scanstore.NewMemoryStore(),
		artifacts: arts,
		panels:    panel.NewRegistry(),
		tel:       telemetry.NewStore(),
		cancels:   make(map[string]*scanflow.CancelFlag),
	}, arts
}

func testWorkspace(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "workspace")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return root
}

func waitForFinish(t *testing.T, s *Service, id string) *scanstore.Record {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := s.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if rec.Status != scanstore.StatusRunning {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("scan %s did not finish", id)
	return nil
}

func TestStartValidatesInput(t *testing.T) {
	s, _ := newTestService(nil)
	if _, err := s.Start(context.Background(), "", "go"); err == nil {
		t.Fatal("expected error for empty project root")
	}
	if _, err := s.Start(context.Background(), t.TempDir(), ""); err == nil {
		t.Fatal("expected error for empty language")
	}
	if _, err := s.Start(context.Background(), filepath.Join(t.TempDir(), "missing"), "go"); err == nil {
		t.Fatal("expected error for missing project root")
	}
}

func TestStartRunsFlowToCompletion(t *testing.T) {
	issues := []scanflow.AggregatedIssue{{
		FilePath: "workspace/main.go",
		Issues:   []scanflow.Issue{{Title: "t", Comment: "t: d"}},
	}}
	run := func(ctx context.Context, archivePath, projectRoot, language string, cancel *scanflow.CancelFlag, notify func(phase, jobID string)) (*scanflow.Result, error) {
		if _, err := os.Stat(archivePath); err != nil {
			return nil, fmt.Errorf("archive missing: %w", err)
		}
		notify(scanflow.PhaseUploaded, "")
		notify(scanflow.PhaseSubmitted, "job-1")
		return &scanflow.Result{
			JobID:       "job-1",
			ClientToken: "tok",
			Status:      scanservice.JobStatusCompleted,
			Issues:      issues,
		}, nil
	}
	s, arts := newTestService(run)

	id, err := s.Start(context.Background(), testWorkspace(t), "go")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec := waitForFinish(t, s, id)
	if rec.Status != string(scanservice.JobStatusCompleted) {
		t.Fatalf("status = %q, want Completed", rec.Status)
	}
	if rec.JobID != "job-1" {
		t.Fatalf("job id = %q, want job-1", rec.JobID)
	}
	if len(rec.Issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(rec.Issues))
	}

	names, err := arts.List(context.Background(), id)
	if err != nil {
		t.Fatalf("List artifacts: %v", err)
	}
	want := map[string]bool{artifactrepo.NameArchive: false, artifactrepo.NameFindings: false}
	for _, n := range names {
		want[n] = true
	}
	for n, seen := range want {
		if !seen {
			t.Fatalf("artifact %s not retained (got %v)", n, names)
		}
	}
}

func TestStopCancelsLiveRun(t *testing.T) {
	started := make(chan struct{})
	run := func(ctx context.Context, archivePath, projectRoot, language string, cancel *scanflow.CancelFlag, notify func(phase, jobID string)) (*scanflow.Result, error) {
		close(started)
		for !cancel.IsSet() {
			time.Sleep(time.Millisecond)
		}
		return nil, scanflow.ErrScanStopped
	}
	s, _ := newTestService(run)

	id, err := s.Start(context.Background(), testWorkspace(t), "go")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-started
	if err := s.Stop(context.Background(), id); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	rec := waitForFinish(t, s, id)
	if rec.Status != scanstore.StatusStopped {
		t.Fatalf("status = %q, want %s", rec.Status, scanstore.StatusStopped)
	}
}

func TestStopUnknownScan(t *testing.T) {
	s, _ := newTestService(nil)
	err := s.Stop(context.Background(), "scan-nope")
	if !errors.Is(err, scanstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTimeoutRecordedAsTimedOut(t *testing.T) {
	run := func(ctx context.Context, archivePath, projectRoot, language string, cancel *scanflow.CancelFlag, notify func(phase, jobID string)) (*scanflow.Result, error) {
		return &scanflow.Result{JobID: "job-2"}, scanflow.ErrScanTimedOut
	}
	s, arts := newTestService(run)

	id, err := s.Start(context.Background(), testWorkspace(t), "go")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec := waitForFinish(t, s, id)
	if rec.Status != scanstore.StatusTimeout {
		t.Fatalf("status = %q, want %s", rec.Status, scanstore.StatusTimeout)
	}
	if rec.JobID != "job-2" {
		t.Fatalf("job id = %q, want job-2", rec.JobID)
	}
	if names, _ := arts.List(context.Background(), id); len(names) != 0 {
		t.Fatalf("artifacts retained for failed run: %v", names)
	}
}

func TestFailedServiceStatusRecordedVerbatim(t *testing.T) {
	run := func(ctx context.Context, archivePath, projectRoot, language string, cancel *scanflow.CancelFlag, notify func(phase, jobID string)) (*scanflow.Result, error) {
		res := &scanflow.Result{JobID: "job-3", Status: scanservice.JobStatusFailed}
		return res, fmt.Errorf("scan finished with status %s", res.Status)
	}
	s, _ := newTestService(run)

	id, err := s.Start(context.Background(), testWorkspace(t), "go")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec := waitForFinish(t, s, id)
	if rec.Status != string(scanservice.JobStatusFailed) {
		t.Fatalf("status = %q, want Failed", rec.Status)
	}
	if rec.Error == "" {
		t.Fatal("expected error message on record")
	}
}
