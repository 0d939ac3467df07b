package scanflow

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"scanagent/internal/scanservice"
)

// UploadArtifact PUTs the full archive to the issued destination with
// the service-supplied headers. Any failure surfaces as ErrUploadFailed
// with the fixed guidance text; the underlying cause is only logged.
func UploadArtifact(ctx context.Context, httpClient *http.Client, archivePath string, dest *scanservice.UploadDestination) error {
	if dest == nil {
		return fmt.Errorf("%w: %s", ErrUploadFailed, UploadGuidance)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	f, err := os.Open(archivePath)
	if err != nil {
		log.Printf("upload: open archive %s: %v", archivePath, err)
		return fmt.Errorf("%w: %s", ErrUploadFailed, UploadGuidance)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		log.Printf("upload: stat archive %s: %v", archivePath, err)
		return fmt.Errorf("%w: %s", ErrUploadFailed, UploadGuidance)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, dest.URL, f)
	if err != nil {
		log.Printf("upload: build request: %v", err)
		return fmt.Errorf("%w: %s", ErrUploadFailed, UploadGuidance)
	}
	req.ContentLength = st.Size()
	for k, v := range dest.Headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		log.Printf("upload: transfer to %s: %v", dest.URL, err)
		return fmt.Errorf("%w: %s", ErrUploadFailed, UploadGuidance)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("upload: storage endpoint returned %s for upload %s", resp.Status, dest.UploadID)
		return fmt.Errorf("%w: %s", ErrUploadFailed, UploadGuidance)
	}
	return nil
}
