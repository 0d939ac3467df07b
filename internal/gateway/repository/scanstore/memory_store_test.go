package scanstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"scanagent/internal/scanflow"
)

func TestMemoryStoreSaveAndGet(t *testing.T) {
	s := NewMemoryStore()
	rec := &Record{
		ID:          "scan-1",
		ProjectRoot: "/ws/app",
		Language:    "python",
		Status:      StatusRunning,
		CreatedAt:   time.Now(),
	}
	if err := s.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Get(context.Background(), "scan-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Language != "python" || got.Status != StatusRunning {
		t.Fatalf("record = %+v", got)
	}

	// The store must hold its own copy.
	rec.Status = "mutated"
	got2, _ := s.Get(context.Background(), "scan-1")
	if got2.Status != StatusRunning {
		t.Fatalf("store leaked caller's record")
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()
	for i, id := range []string{"scan-a", "scan-b", "scan-c"} {
		rec := &Record{ID: id, Status: "Completed", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.Save(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
	out, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(out) != 3 || out[0].ID != "scan-c" {
		t.Fatalf("List() order wrong: %v", out)
	}
}

func TestMemoryStoreFindings(t *testing.T) {
	s := NewMemoryStore()
	rec := &Record{
		ID:     "scan-1",
		Status: "Completed",
		Issues: []scanflow.AggregatedIssue{{FilePath: "/ws/a.py", Issues: []scanflow.Issue{{Comment: "T: d"}}}},
	}
	if err := s.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	issues, err := s.Findings(context.Background(), "scan-1")
	if err != nil {
		t.Fatalf("Findings() error = %v", err)
	}
	if len(issues) != 1 || issues[0].FilePath != "/ws/a.py" {
		t.Fatalf("issues = %+v", issues)
	}
}

func TestMemoryStoreRejectsEmptyID(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Save(context.Background(), &Record{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}
