// Package scanflow runs one remote security scan end to end:
// prepare upload, transfer the archive, submit the job, poll it to a
// terminal status, then aggregate findings against the local tree.
// The five steps are strictly sequential; each step's output feeds the
// next.
package scanflow

import (
	"context"
	"sync/atomic"

	"scanagent/internal/scanservice"
)

// Service is the subset of the scan backend the flow consumes.
// *scanservice.Client satisfies it.
type Service interface {
	CreateUploadURL(ctx context.Context, checksumMD5 string, kind scanservice.ArtifactKind) (*scanservice.UploadDestination, error)
	CreateScan(ctx context.Context, artifacts map[scanservice.ArtifactKind]string, language, clientToken string) (*scanservice.ScanJob, error)
	GetScanStatus(ctx context.Context, jobID string) (scanservice.JobStatus, error)
	ListFindings(ctx context.Context, jobID, schema, nextToken string) (*scanservice.FindingsPage, error)
}

// Issue is one normalized finding: 0-based start line clamped at zero,
// end line as reported, and a one-line comment synthesized from the
// finding's title and description.
type Issue struct {
	StartLine          int
	EndLine            int
	Comment            string
	Title              string
	Severity           string
	DetectorID         string
	RecommendationText string
	RecommendationURL  string
	SuggestedFixes     []scanservice.SuggestedFix
}

// AggregatedIssue is all findings for one local file that still exists
// on disk, in the order the service reported them.
type AggregatedIssue struct {
	FilePath string
	Issues   []Issue
}

// CancelFlag is a cooperative cancellation signal: set once from
// outside the flow, polled by the poll loop. The zero value is usable.
type CancelFlag struct {
	v atomic.Bool
}

func (f *CancelFlag) Set() {
	if f == nil {
		return
	}
	f.v.Store(true)
}

func (f *CancelFlag) IsSet() bool {
	return f != nil && f.v.Load()
}
