// Package handler exposes the gateway's HTTP surface: JSON endpoints
// for the scan lifecycle and a websocket feed of panel events.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"scanagent/internal/assist"
	"scanagent/internal/gateway/repository/scanstore"
	"scanagent/internal/gateway/service/scan"
)

// Handler serves scan endpoints. The assist client is optional; when
// nil the remediation endpoint reports the feature as unavailable.
type Handler struct {
	svc    *scan.Service
	assist *assist.Client
}

func New(svc *scan.Service, assistClient *assist.Client) *Handler {
	return &Handler{svc: svc, assist: assistClient}
}

type startScanRequest struct {
	ProjectRoot string `json:"project_root"`
	Language    string `json:"language"`
}

type startScanResponse struct {
	ScanID string `json:"scan_id"`
}

// HandleStartScan starts a scan and returns its id without waiting for
// the run to finish.
func (h *Handler) HandleStartScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req startScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	id, err := h.svc.Start(r.Context(), req.ProjectRoot, req.Language)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, startScanResponse{ScanID: id})
}

func (h *Handler) HandleGetScan(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("scan_id"))
	if id == "" {
		http.Error(w, "scan_id is required", http.StatusBadRequest)
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, scanstore.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) HandleListScans(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": recs})
}

type stopScanRequest struct {
	ScanID string `json:"scan_id"`
}

// HandleStopScan requests cooperative cancellation. The scan keeps its
// Running status until the poll loop observes the flag.
func (h *Handler) HandleStopScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req stopScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ScanID) == "" {
		http.Error(w, "scan_id is required", http.StatusBadRequest)
		return
	}
	if err := h.svc.Stop(r.Context(), req.ScanID); err != nil {
		if errors.Is(err, scanstore.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

func (h *Handler) HandleFindings(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("scan_id"))
	if id == "" {
		http.Error(w, "scan_id is required", http.StatusBadRequest)
		return
	}
	issues, err := h.svc.Findings(r.Context(), id)
	if err != nil {
		if errors.Is(err, scanstore.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scan_id": id, "findings": issues})
}

// HandleArtifacts lists retained artifacts for a scan, or returns a
// download URL when name= is given.
func (h *Handler) HandleArtifacts(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("scan_id"))
	if id == "" {
		http.Error(w, "scan_id is required", http.StatusBadRequest)
		return
	}
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		url, err := h.svc.ArtifactURL(r.Context(), id, name)
		if err != nil {
			h.artifactError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"scan_id": id, "name": name, "url": url})
		return
	}
	names, err := h.svc.Artifacts(r.Context(), id)
	if err != nil {
		h.artifactError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scan_id": id, "artifacts": names})
}

func (h *Handler) artifactError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scanstore.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, scan.ErrArtifactsDisabled):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleScanLogs returns the telemetry events recorded for a scan.
// Events are keyed by the service-side job id, so the scan record is
// resolved first.
func (h *Handler) HandleScanLogs(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("scan_id"))
	if id == "" {
		http.Error(w, "scan_id is required", http.StatusBadRequest)
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, scanstore.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var events []map[string]any
	if rec.JobID != "" {
		events = h.svc.Telemetry().Read(rec.JobID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scan_id": id,
		"job_id":  rec.JobID,
		"events":  events,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
