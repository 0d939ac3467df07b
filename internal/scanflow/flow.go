package scanflow

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"scanagent/internal/scanservice"
	"scanagent/internal/telemetry"
)

// Runner executes the full flow:
// prepare -> upload -> submit -> poll -> aggregate.
type Runner struct {
	svc        Service
	httpClient *http.Client
	tel        *telemetry.Store
	poller     *Poller
	agg        *Aggregator

	// Notify, when set, is called after the upload and submit phases.
	Notify func(phase, jobID string)
}

// Phases reported through Runner.Notify.
const (
	PhaseUploaded  = "uploaded"
	PhaseSubmitted = "submitted"
)

func NewRunner(svc Service, tel *telemetry.Store) *Runner {
	return &Runner{
		svc:        svc,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		tel:        tel,
		poller:     NewPoller(svc),
		agg:        NewAggregator(svc),
	}
}

// Result carries the terminal job state alongside the aggregated
// findings.
type Result struct {
	JobID       string
	ClientToken string
	Status      scanservice.JobStatus
	Issues      []AggregatedIssue
}

// Run drives one scan. Cancellation is only observed inside the poll
// loop; once the job reaches a terminal status, aggregation runs to
// completion. Findings are aggregated only for jobs that Completed.
func (r *Runner) Run(ctx context.Context, archivePath, projectRoot, language string, cancel *CancelFlag) (*Result, error) {
	dest, err := PrepareUpload(ctx, r.svc, archivePath)
	if err != nil {
		return nil, err
	}
	if err := UploadArtifact(ctx, r.httpClient, archivePath, dest); err != nil {
		return nil, err
	}
	r.notify(PhaseUploaded, "")

	artifacts := map[scanservice.ArtifactKind]string{
		scanservice.ArtifactKindSourceCode: dest.UploadID,
	}
	job, clientToken, err := SubmitScan(ctx, r.svc, artifacts, language, r.tel)
	if err != nil {
		return nil, err
	}
	r.notify(PhaseSubmitted, job.JobID)

	status, err := r.poller.Wait(ctx, job.JobID, cancel)
	if err != nil {
		return nil, err
	}
	res := &Result{JobID: job.JobID, ClientToken: clientToken, Status: status}
	if status != scanservice.JobStatusCompleted {
		return res, fmt.Errorf("scan finished with status %s", status)
	}

	issues, err := r.agg.Collect(ctx, job.JobID, projectRoot)
	if err != nil {
		return nil, err
	}
	res.Issues = issues
	return res, nil
}

func (r *Runner) notify(phase, jobID string) {
	if r.Notify != nil {
		r.Notify(phase, jobID)
	}
}
