package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"scanagent/internal/gateway/repository/scanstore"
)

type assistRequest struct {
	ScanID     string `json:"scan_id"`
	FilePath   string `json:"file_path"`
	IssueIndex int    `json:"issue_index"`
}

// HandleAssist asks the model for a remediation proposal for one
// recorded finding.
func (h *Handler) HandleAssist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.assist == nil {
		http.Error(w, "remediation assist is not configured", http.StatusNotImplemented)
		return
	}
	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ScanID) == "" || strings.TrimSpace(req.FilePath) == "" {
		http.Error(w, "scan_id and file_path are required", http.StatusBadRequest)
		return
	}

	groups, err := h.svc.Findings(r.Context(), req.ScanID)
	if err != nil {
		if errors.Is(err, scanstore.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, group := range groups {
		if group.FilePath != req.FilePath {
			continue
		}
		if req.IssueIndex < 0 || req.IssueIndex >= len(group.Issues) {
			http.Error(w, "issue_index out of range", http.StatusBadRequest)
			return
		}
		suggestion, err := h.assist.SuggestRemediation(r.Context(), group.FilePath, group.Issues[req.IssueIndex])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, suggestion)
		return
	}
	http.Error(w, "no findings for "+req.FilePath, http.StatusNotFound)
}
