package scanflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"scanagent/internal/scanservice"
)

// fakeService scripts GetScanStatus responses and records calls.
type fakeService struct {
	statuses []scanservice.JobStatus
	calls    int

	uploadDest *scanservice.UploadDestination
	job        *scanservice.ScanJob
	pages      []*scanservice.FindingsPage
	pageCalls  int
	listErr    error
}

func (f *fakeService) CreateUploadURL(_ context.Context, _ string, _ scanservice.ArtifactKind) (*scanservice.UploadDestination, error) {
	if f.uploadDest == nil {
		return &scanservice.UploadDestination{UploadID: "upload-1", URL: "http://storage.invalid/put"}, nil
	}
	return f.uploadDest, nil
}

func (f *fakeService) CreateScan(_ context.Context, _ map[scanservice.ArtifactKind]string, _, _ string) (*scanservice.ScanJob, error) {
	if f.job == nil {
		return &scanservice.ScanJob{JobID: "job-1", Status: scanservice.JobStatusPending}, nil
	}
	return f.job, nil
}

func (f *fakeService) GetScanStatus(_ context.Context, _ string) (scanservice.JobStatus, error) {
	i := f.calls
	f.calls++
	if i >= len(f.statuses) {
		return scanservice.JobStatusPending, nil
	}
	return f.statuses[i], nil
}

func (f *fakeService) ListFindings(_ context.Context, _, _, _ string) (*scanservice.FindingsPage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.pageCalls >= len(f.pages) {
		return &scanservice.FindingsPage{}, nil
	}
	p := f.pages[f.pageCalls]
	f.pageCalls++
	return p, nil
}

func newTestPoller(svc Service, interval, timeout time.Duration, sleeps *[]time.Duration) *Poller {
	return &Poller{
		svc:      svc,
		interval: interval,
		timeout:  timeout,
		sleep: func(_ context.Context, d time.Duration) error {
			if sleeps != nil {
				*sleeps = append(*sleeps, d)
			}
			return nil
		},
	}
}

func TestWaitSleepsBetweenPendingChecks(t *testing.T) {
	svc := &fakeService{statuses: []scanservice.JobStatus{
		scanservice.JobStatusPending,
		scanservice.JobStatusPending,
		scanservice.JobStatusCompleted,
	}}
	var sleeps []time.Duration
	p := newTestPoller(svc, 5*time.Second, 10*time.Minute, &sleeps)

	status, err := p.Wait(context.Background(), "job-1", nil)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if status != scanservice.JobStatusCompleted {
		t.Fatalf("status = %q, want Completed", status)
	}
	if len(sleeps) != 2 {
		t.Fatalf("got %d sleeps, want exactly 2", len(sleeps))
	}
	for i, d := range sleeps {
		if d != 5*time.Second {
			t.Fatalf("sleep[%d] = %v, want 5s", i, d)
		}
	}
}

func TestWaitReturnsTerminalStatusImmediately(t *testing.T) {
	for _, terminal := range []scanservice.JobStatus{
		scanservice.JobStatusCompleted,
		scanservice.JobStatusFailed,
		scanservice.JobStatusCancelled,
	} {
		svc := &fakeService{statuses: []scanservice.JobStatus{terminal}}
		var sleeps []time.Duration
		p := newTestPoller(svc, time.Second, time.Minute, &sleeps)

		status, err := p.Wait(context.Background(), "job-1", nil)
		if err != nil {
			t.Fatalf("Wait(%s) error = %v", terminal, err)
		}
		if status != terminal {
			t.Fatalf("status = %q, want %q", status, terminal)
		}
		if len(sleeps) != 0 {
			t.Fatalf("terminal status should not sleep, got %d sleeps", len(sleeps))
		}
	}
}

func TestWaitHonorsCancellationBeforeTimeout(t *testing.T) {
	svc := &fakeService{}
	var cancel CancelFlag
	cancel.Set()
	// Timeout of zero: a timeout check would fire on the first lap if it
	// ever preceded the cancellation checks.
	p := newTestPoller(svc, time.Second, 0, nil)

	_, err := p.Wait(context.Background(), "job-1", &cancel)
	if !errors.Is(err, ErrScanStopped) {
		t.Fatalf("Wait() error = %v, want ErrScanStopped", err)
	}
	if errors.Is(err, ErrScanTimedOut) {
		t.Fatalf("cancellation must not surface as timeout")
	}
	if svc.calls != 0 {
		t.Fatalf("cancelled flow should not query status, got %d calls", svc.calls)
	}
}

func TestWaitCancellationAfterSleep(t *testing.T) {
	svc := &fakeService{}
	var cancel CancelFlag
	p := &Poller{
		svc:      svc,
		interval: time.Second,
		timeout:  time.Minute,
		sleep: func(context.Context, time.Duration) error {
			cancel.Set()
			return nil
		},
	}

	_, err := p.Wait(context.Background(), "job-1", &cancel)
	if !errors.Is(err, ErrScanStopped) {
		t.Fatalf("Wait() error = %v, want ErrScanStopped", err)
	}
	if svc.calls != 1 {
		t.Fatalf("expected one status query before the sleep, got %d", svc.calls)
	}
}

func TestWaitTimesOutWhilePending(t *testing.T) {
	svc := &fakeService{}
	var sleeps []time.Duration
	// 2.5 intervals of budget: the third sleep pushes elapsed strictly
	// past the budget.
	p := newTestPoller(svc, time.Second, 2500*time.Millisecond, &sleeps)

	_, err := p.Wait(context.Background(), "job-1", nil)
	if !errors.Is(err, ErrScanTimedOut) {
		t.Fatalf("Wait() error = %v, want ErrScanTimedOut", err)
	}
	if len(sleeps) != 3 {
		t.Fatalf("got %d sleeps before timeout, want 3", len(sleeps))
	}
}

func TestWaitPropagatesContextCancellation(t *testing.T) {
	svc := &fakeService{}
	p := &Poller{svc: svc, interval: time.Millisecond, timeout: time.Minute, sleep: sleepCtx}

	ctx, cancelCtx := context.WithCancel(context.Background())
	cancelCtx()
	if _, err := p.Wait(ctx, "job-1", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, want context.Canceled", err)
	}
}
