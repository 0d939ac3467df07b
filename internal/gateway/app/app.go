// Package app assembles the gateway: config, stores, scan service,
// HTTP surface. Each dependency degrades to an in-memory fallback when
// its backing service is not configured.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"scanagent/internal/assist"
	"scanagent/internal/gateway/config"
	"scanagent/internal/gateway/handler"
	"scanagent/internal/gateway/panel"
	artifactrepo "scanagent/internal/gateway/repository/artifact"
	"scanagent/internal/gateway/repository/scanstore"
	"scanagent/internal/gateway/server"
	"scanagent/internal/gateway/service/scan"
	"scanagent/internal/scanflow"
	"scanagent/internal/scanservice"
	"scanagent/internal/telemetry"
)

type App struct {
	Config  *config.Config
	Service *scan.Service
	Mux     http.Handler

	srv *server.Server
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.ScanService.Endpoint == "" {
		return nil, fmt.Errorf("SCAN_SERVICE_ENDPOINT is required")
	}

	client := scanservice.New(cfg.ScanService.Endpoint)
	if cfg.ScanService.AuthToken != "" {
		client.SetAuthToken(cfg.ScanService.AuthToken)
	}

	store, err := newScanStore(cfg)
	if err != nil {
		return nil, err
	}
	artifacts := newArtifactStore(cfg)

	tel := telemetry.NewStore()
	runner := scanflow.NewRunner(client, tel)
	svc := scan.New(runner, store, artifacts, panel.NewRegistry(), tel)

	var assistClient *assist.Client
	if cfg.Assist.Enabled {
		assistClient, err = assist.NewClient(ctx, cfg.Assist.Model)
		if err != nil {
			log.Printf("assist unavailable (%v); remediation endpoint disabled", err)
			assistClient = nil
		}
	}

	mux := server.NewMux(handler.New(svc, assistClient))
	return &App{
		Config:  cfg,
		Service: svc,
		Mux:     mux,
		srv:     server.New(cfg.Port, mux),
	}, nil
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	return a.srv.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Service.Panels().Dispose()
	return a.srv.Shutdown(ctx)
}

func newScanStore(cfg *config.Config) (scanstore.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL not set; scan records are kept in memory")
		return scanstore.NewMemoryStore(), nil
	}
	store, err := scanstore.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect scan store: %w", err)
	}
	return store, nil
}

func newArtifactStore(cfg *config.Config) artifactrepo.Store {
	if !cfg.Artifact.Enabled {
		log.Printf("artifact endpoint not set; artifacts are kept in memory")
		return artifactrepo.NewMemoryStore()
	}
	store, err := artifactrepo.NewS3Store(artifactrepo.S3Config{
		Endpoint:  cfg.Artifact.Endpoint,
		Region:    cfg.Artifact.Region,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey,
		Bucket:    cfg.Artifact.Bucket,
		UseSSL:    cfg.Artifact.UseSSL,
	})
	if err != nil {
		log.Printf("artifact store unavailable (%v); falling back to memory", err)
		return artifactrepo.NewMemoryStore()
	}
	return store
}
