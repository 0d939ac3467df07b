package artifact

import (
	"context"
	"errors"
)

// Store retains per-scan artifacts: the packaged archive that was
// submitted and the aggregated findings document.
type Store interface {
	Put(ctx context.Context, scanID, name string, content []byte) error
	Get(ctx context.Context, scanID, name string) ([]byte, error)
	GetURL(ctx context.Context, scanID, name string) (string, error)
	List(ctx context.Context, scanID string) ([]string, error)
}

var ErrNotFound = errors.New("artifact not found")

// Well-known artifact names within a scan's prefix.
const (
	NameArchive  = "truncation.zip"
	NameFindings = "findings.json"
)
