package server

import (
	"net/http"

	"scanagent/internal/gateway/handler"
	"scanagent/internal/gateway/middleware"
)

// NewMux wires the scan endpoints and wraps them with CORS.
func NewMux(h *handler.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/scan/start", h.HandleStartScan)
	mux.HandleFunc("/scan/stop", h.HandleStopScan)
	mux.HandleFunc("/scan", h.HandleGetScan)
	mux.HandleFunc("/scans", h.HandleListScans)
	mux.HandleFunc("/scan/findings", h.HandleFindings)
	mux.HandleFunc("/scan/artifacts", h.HandleArtifacts)
	mux.HandleFunc("/scan/assist", h.HandleAssist)
	mux.HandleFunc("/scan/events", h.HandleEventsWS)
	mux.HandleFunc("/debug/scan-logs", h.HandleScanLogs)
	return middleware.CORS(mux)
}
