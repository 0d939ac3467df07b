// Package scan coordinates scan runs for the gateway: one flow
// execution per request, cancellation flags for live runs, lifecycle
// events to the panel, and persistence of finished runs.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scanagent/internal/archive"
	"scanagent/internal/gateway/panel"
	artifactrepo "scanagent/internal/gateway/repository/artifact"
	"scanagent/internal/gateway/repository/scanstore"
	"scanagent/internal/scanflow"
	"scanagent/internal/telemetry"
)

type runFunc func(ctx context.Context, archivePath, projectRoot, language string, cancel *scanflow.CancelFlag, notify func(phase, jobID string)) (*scanflow.Result, error)

type Service struct {
	run       runFunc
	store     scanstore.Store
	artifacts artifactrepo.Store // optional
	panels    *panel.Registry
	tel       *telemetry.Store

	mu      sync.Mutex
	cancels map[string]*scanflow.CancelFlag
}

func New(runner *scanflow.Runner, store scanstore.Store, artifacts artifactrepo.Store, panels *panel.Registry, tel *telemetry.Store) *Service {
	return &Service{
		run: func(ctx context.Context, archivePath, projectRoot, language string, cancel *scanflow.CancelFlag, notify func(phase, jobID string)) (*scanflow.Result, error) {
			// each run gets its own notify hook; the shared runner is
			// copied so concurrent scans do not race on the field
			r := *runner
			r.Notify = notify
			return r.Run(ctx, archivePath, projectRoot, language, cancel)
		},
		store:     store,
		artifacts: artifacts,
		panels:    panels,
		tel:       tel,
		cancels:   make(map[string]*scanflow.CancelFlag),
	}
}

// Start validates the workspace and launches the flow in the
// background. It returns the new scan id immediately.
func (s *Service) Start(ctx context.Context, projectRoot, language string) (string, error) {
	projectRoot = strings.TrimSpace(projectRoot)
	language = strings.TrimSpace(language)
	if projectRoot == "" {
		return "", fmt.Errorf("project_root is required")
	}
	if language == "" {
		return "", fmt.Errorf("language is required")
	}
	st, err := os.Stat(projectRoot)
	if err != nil {
		return "", fmt.Errorf("project root: %w", err)
	}
	if !st.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", projectRoot)
	}

	id := "scan-" + uuid.NewString()
	rec := &scanstore.Record{
		ID:          id,
		ProjectRoot: projectRoot,
		Language:    language,
		Status:      scanstore.StatusRunning,
		CreatedAt:   time.Now(),
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return "", fmt.Errorf("save scan record: %w", err)
	}

	flag := &scanflow.CancelFlag{}
	s.mu.Lock()
	s.cancels[id] = flag
	s.mu.Unlock()

	go s.execute(rec, flag)
	return id, nil
}

// Stop requests cooperative cancellation of a live run. The poll loop
// observes the flag within one poll interval.
func (s *Service) Stop(ctx context.Context, id string) error {
	s.mu.Lock()
	flag, live := s.cancels[id]
	s.mu.Unlock()
	if live {
		flag.Set()
		return nil
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("scan %s already finished", id)
}

func (s *Service) Get(ctx context.Context, id string) (*scanstore.Record, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*scanstore.Record, error) {
	return s.store.List(ctx)
}

func (s *Service) Findings(ctx context.Context, id string) ([]scanflow.AggregatedIssue, error) {
	return s.store.Findings(ctx, id)
}

var ErrArtifactsDisabled = errors.New("artifact retention is disabled")

// Artifacts lists the retained artifact names for a finished scan.
func (s *Service) Artifacts(ctx context.Context, id string) ([]string, error) {
	if s.artifacts == nil {
		return nil, ErrArtifactsDisabled
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.artifacts.List(ctx, id)
}

// ArtifactURL returns a download URL for one retained artifact.
func (s *Service) ArtifactURL(ctx context.Context, id, name string) (string, error) {
	if s.artifacts == nil {
		return "", ErrArtifactsDisabled
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return "", err
	}
	return s.artifacts.GetURL(ctx, id, name)
}

func (s *Service) Telemetry() *telemetry.Store { return s.tel }

func (s *Service) Panels() *panel.Registry { return s.panels }

func (s *Service) execute(rec *scanstore.Record, flag *scanflow.CancelFlag) {
	defer func() {
		s.mu.Lock()
		delete(s.cancels, rec.ID)
		s.mu.Unlock()
	}()
	ctx := context.Background()
	hub := s.panels.Active()

	tr, err := archive.PackWorkspace(rec.ProjectRoot, "")
	if err != nil {
		hub.Publish(panel.Event{Type: panel.EventScanStarted, ScanID: rec.ID})
		s.finish(ctx, hub, rec, nil, fmt.Errorf("package workspace: %w", err))
		return
	}
	defer os.Remove(tr.ArchivePath)
	hub.Publish(panel.Event{Type: panel.EventScanStarted, ScanID: rec.ID, FileCount: tr.FileCount})

	notify := func(phase, jobID string) {
		switch phase {
		case scanflow.PhaseUploaded:
			hub.Publish(panel.Event{Type: panel.EventScanUploaded, ScanID: rec.ID})
		case scanflow.PhaseSubmitted:
			hub.Publish(panel.Event{Type: panel.EventScanSubmitted, ScanID: rec.ID, Message: jobID})
		}
	}

	res, err := s.run(ctx, tr.ArchivePath, rec.ProjectRoot, rec.Language, flag, notify)
	if res != nil {
		rec.JobID = res.JobID
	}
	if err == nil && s.artifacts != nil {
		s.retainArtifacts(ctx, rec.ID, tr.ArchivePath, res.Issues)
	}
	s.finish(ctx, hub, rec, res, err)
}

func (s *Service) finish(ctx context.Context, hub *panel.Hub, rec *scanstore.Record, res *scanflow.Result, err error) {
	rec.FinishedAt = time.Now()
	evt := panel.Event{ScanID: rec.ID}
	switch {
	case err == nil:
		rec.Status = string(res.Status)
		rec.Issues = res.Issues
		evt.Type = panel.EventScanCompleted
		for _, group := range res.Issues {
			evt.IssueCount += len(group.Issues)
		}
	case errors.Is(err, scanflow.ErrScanStopped):
		rec.Status = scanstore.StatusStopped
		rec.Error = err.Error()
		evt.Type = panel.EventScanStopped
	case errors.Is(err, scanflow.ErrScanTimedOut):
		rec.Status = scanstore.StatusTimeout
		rec.Error = err.Error()
		evt.Type = panel.EventScanFailed
		evt.Message = err.Error()
	default:
		rec.Status = "Failed"
		if res != nil && res.Status != "" {
			rec.Status = string(res.Status)
		}
		rec.Error = err.Error()
		evt.Type = panel.EventScanFailed
		evt.Message = err.Error()
	}
	if err := s.store.Save(ctx, rec); err != nil {
		log.Printf("scan %s: save final record: %v", rec.ID, err)
	}
	evt.Status = rec.Status
	hub.Publish(evt)
}

// retainArtifacts keeps a copy of the submitted archive and the
// aggregated findings for later download. Failures are logged only.
func (s *Service) retainArtifacts(ctx context.Context, scanID, archivePath string, issues []scanflow.AggregatedIssue) {
	raw, err := os.ReadFile(archivePath)
	if err == nil {
		if err := s.artifacts.Put(ctx, scanID, artifactrepo.NameArchive, raw); err != nil {
			log.Printf("scan %s: retain archive: %v", scanID, err)
		}
	}
	doc, err := json.Marshal(issues)
	if err != nil {
		return
	}
	if err := s.artifacts.Put(ctx, scanID, artifactrepo.NameFindings, doc); err != nil {
		log.Printf("scan %s: retain findings: %v", scanID, err)
	}
}
