package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scanagent/internal/gateway/panel"
	artifactrepo "scanagent/internal/gateway/repository/artifact"
	"scanagent/internal/gateway/repository/scanstore"
	"scanagent/internal/gateway/service/scan"
	"scanagent/internal/scanflow"
	"scanagent/internal/scanservice"
	"scanagent/internal/telemetry"
)

func newTestHandler() *Handler {
	tel := telemetry.NewStore()
	// endpoint is never reachable; only validation paths run in these tests
	runner := scanflow.NewRunner(scanservice.New("http://127.0.0.1:0"), tel)
	svc := scan.New(runner, scanstore.NewMemoryStore(), artifactrepo.NewMemoryStore(), panel.NewRegistry(), tel)
	return New(svc, nil)
}

func TestStartScanRejectsBadRequests(t *testing.T) {
	h := newTestHandler()

	rr := httptest.NewRecorder()
	h.HandleStartScan(rr, httptest.NewRequest(http.MethodGet, "/scan/start", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d, want 405", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.HandleStartScan(rr, httptest.NewRequest(http.MethodPost, "/scan/start", strings.NewReader("{not json")))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad JSON status = %d, want 400", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.HandleStartScan(rr, httptest.NewRequest(http.MethodPost, "/scan/start", strings.NewReader(`{"language":"go"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing root status = %d, want 400", rr.Code)
	}
}

func TestStartScanReturnsID(t *testing.T) {
	h := newTestHandler()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	body := strings.NewReader(`{"project_root":` + strconvQuote(root) + `,"language":"go"}`)
	rr := httptest.NewRecorder()
	h.HandleStartScan(rr, httptest.NewRequest(http.MethodPost, "/scan/start", body))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rr.Code, rr.Body.String())
	}
	var resp struct {
		ScanID string `json:"scan_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp.ScanID, "scan-") {
		t.Fatalf("scan id = %q, want scan- prefix", resp.ScanID)
	}

	rr = httptest.NewRecorder()
	h.HandleGetScan(rr, httptest.NewRequest(http.MethodGet, "/scan?scan_id="+resp.ScanID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rr.Code)
	}
}

func TestGetScanNotFound(t *testing.T) {
	h := newTestHandler()

	rr := httptest.NewRecorder()
	h.HandleGetScan(rr, httptest.NewRequest(http.MethodGet, "/scan", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing id status = %d, want 400", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.HandleGetScan(rr, httptest.NewRequest(http.MethodGet, "/scan?scan_id=scan-nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", rr.Code)
	}
}

func TestStopScanNotFound(t *testing.T) {
	h := newTestHandler()
	rr := httptest.NewRecorder()
	h.HandleStopScan(rr, httptest.NewRequest(http.MethodPost, "/scan/stop", strings.NewReader(`{"scan_id":"scan-nope"}`)))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestFindingsRequiresID(t *testing.T) {
	h := newTestHandler()
	rr := httptest.NewRecorder()
	h.HandleFindings(rr, httptest.NewRequest(http.MethodGet, "/scan/findings", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
