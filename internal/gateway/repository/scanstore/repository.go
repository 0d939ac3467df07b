package scanstore

import (
	"context"
	"errors"
	"time"

	"scanagent/internal/scanflow"
)

// Record is one scan run as tracked by the gateway.
type Record struct {
	ID          string                     `json:"id"`
	ProjectRoot string                     `json:"project_root"`
	Language    string                     `json:"language"`
	JobID       string                     `json:"job_id,omitempty"`
	Status      string                     `json:"status"`
	Error       string                     `json:"error,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	FinishedAt  time.Time                  `json:"finished_at,omitempty"`
	Issues      []scanflow.AggregatedIssue `json:"issues,omitempty"`
}

// Gateway-side run states. Terminal service statuses are recorded
// verbatim ("Completed", "Failed", "Cancelled").
const (
	StatusRunning = "Running"
	StatusStopped = "Stopped"
	StatusTimeout = "TimedOut"
)

// Store persists scan run records.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Findings(ctx context.Context, id string) ([]scanflow.AggregatedIssue, error)
}

var ErrNotFound = errors.New("scan not found")
