package scanflow

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

// ArchiveChecksum computes the base64-encoded MD5 digest over the full
// file bytes. The service uses it to verify upload integrity.
func ArchiveChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read archive: %w", err)
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
