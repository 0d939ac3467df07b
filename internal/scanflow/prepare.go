package scanflow

import (
	"context"
	"strings"

	"scanagent/internal/scanservice"
)

// PrepareUpload checksums the packaged archive and requests a write
// destination from the service, declaring the artifact as source code.
func PrepareUpload(ctx context.Context, svc Service, archivePath string) (*scanservice.UploadDestination, error) {
	if strings.TrimSpace(archivePath) == "" {
		return nil, ErrNoArchive
	}
	sum, err := ArchiveChecksum(archivePath)
	if err != nil {
		return nil, err
	}
	return svc.CreateUploadURL(ctx, sum, scanservice.ArtifactKindSourceCode)
}
