package scanflow

import (
	"context"
	"time"

	"scanagent/internal/scanservice"
)

// Polling cadence and wait budget are fixed configuration, not per-call
// parameters.
const (
	PollInterval = 5 * time.Second
	PollTimeout  = 10 * time.Minute
)

// Poller waits for a job to leave the Pending state.
type Poller struct {
	svc      Service
	interval time.Duration
	timeout  time.Duration
	sleep    func(context.Context, time.Duration) error
}

func NewPoller(svc Service) *Poller {
	return &Poller{
		svc:      svc,
		interval: PollInterval,
		timeout:  PollTimeout,
		sleep:    sleepCtx,
	}
}

// Wait polls the job status until it is no longer Pending and returns
// that status. Cancellation is checked before each status query and on
// both sides of the sleep, so a request to stop is honored within one
// poll interval. Once accumulated wait strictly exceeds the timeout
// budget, ErrScanTimedOut is raised; it is an error, never a status.
func (p *Poller) Wait(ctx context.Context, jobID string, cancel *CancelFlag) (scanservice.JobStatus, error) {
	var elapsed time.Duration
	for {
		if cancel.IsSet() {
			return "", ErrScanStopped
		}
		status, err := p.svc.GetScanStatus(ctx, jobID)
		if err != nil {
			return "", err
		}
		if status != scanservice.JobStatusPending {
			return status, nil
		}
		if cancel.IsSet() {
			return "", ErrScanStopped
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return "", err
		}
		elapsed += p.interval
		if cancel.IsSet() {
			return "", ErrScanStopped
		}
		if elapsed > p.timeout {
			return "", ErrScanTimedOut
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
