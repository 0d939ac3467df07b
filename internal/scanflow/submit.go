package scanflow

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"scanagent/internal/scanservice"
	"scanagent/internal/telemetry"
)

// SubmitScan creates the remote analysis job and emits one usage event
// correlating the declared language with the client request token.
func SubmitScan(ctx context.Context, svc Service, artifacts map[scanservice.ArtifactKind]string, language string, tel *telemetry.Store) (*scanservice.ScanJob, string, error) {
	clientToken := uuid.NewString()
	job, err := svc.CreateScan(ctx, artifacts, language, clientToken)
	if err != nil {
		return nil, "", err
	}
	tel.Append(job.JobID, "scanflow", "submit", map[string]any{
		"language":     strings.TrimSpace(language),
		"client_token": clientToken,
	})
	return job, clientToken, nil
}
