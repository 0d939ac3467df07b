package scanflow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"scanagent/internal/scanservice"
	"scanagent/internal/telemetry"
)

func TestRunnerHappyPath(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer storage.Close()

	parent := t.TempDir()
	root := filepath.Join(parent, "workspace")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	archive := filepath.Join(parent, "truncation.zip")
	if err := os.WriteFile(archive, []byte("zip bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := &fakeService{
		uploadDest: &scanservice.UploadDestination{UploadID: "upload-1", URL: storage.URL},
		statuses: []scanservice.JobStatus{
			scanservice.JobStatusPending,
			scanservice.JobStatusCompleted,
		},
		pages: []*scanservice.FindingsPage{{
			Findings: []scanservice.Finding{finding("workspace/a.py", 1, 2, "T", "D")},
		}},
	}
	tel := telemetry.NewStore()
	r := NewRunner(svc, tel)
	r.poller = newTestPoller(svc, PollInterval, PollTimeout, nil)

	res, err := r.Run(context.Background(), archive, root, "python", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Status != scanservice.JobStatusCompleted {
		t.Fatalf("status = %q, want Completed", res.Status)
	}
	if len(res.Issues) != 1 || len(res.Issues[0].Issues) != 1 {
		t.Fatalf("issues = %+v, want one file with one issue", res.Issues)
	}
	if res.ClientToken == "" {
		t.Fatalf("client token should be set")
	}

	events := tel.Read("job-1")
	if len(events) != 1 {
		t.Fatalf("telemetry events = %d, want 1", len(events))
	}
	if events[0]["language"] != "python" || events[0]["client_token"] != res.ClientToken {
		t.Fatalf("telemetry event = %v", events[0])
	}
}

func TestRunnerEmptyArchiveShortCircuits(t *testing.T) {
	r := NewRunner(&fakeService{}, nil)
	if _, err := r.Run(context.Background(), "", t.TempDir(), "python", nil); !errors.Is(err, ErrNoArchive) {
		t.Fatalf("Run() error = %v, want ErrNoArchive", err)
	}
}

func TestRunnerNonCompletedStatusIsError(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer storage.Close()

	archive := writeArchive(t, "zip bytes")
	svc := &fakeService{
		uploadDest: &scanservice.UploadDestination{UploadID: "upload-1", URL: storage.URL},
		statuses:   []scanservice.JobStatus{scanservice.JobStatusFailed},
	}
	r := NewRunner(svc, nil)
	r.poller = newTestPoller(svc, PollInterval, PollTimeout, nil)

	res, err := r.Run(context.Background(), archive, t.TempDir(), "python", nil)
	if err == nil {
		t.Fatalf("expected error for Failed status")
	}
	if res == nil || res.Status != scanservice.JobStatusFailed {
		t.Fatalf("result = %+v, want Failed status carried back", res)
	}
	if svc.pageCalls != 0 {
		t.Fatalf("findings must not be fetched for a failed job")
	}
}
