package scanflow

import "errors"

var (
	// ErrNoArchive means the caller handed the flow an empty archive
	// path. Raised before any network call.
	ErrNoArchive = errors.New("no valid archive to upload")

	// ErrUploadFailed covers any failure while transferring the archive
	// to the storage endpoint. Not retried.
	ErrUploadFailed = errors.New("artifact upload failed")

	// ErrScanStopped means user-initiated cancellation was observed by
	// the poll loop. Distinct from a service-reported Cancelled status.
	ErrScanStopped = errors.New("scan stopped")

	// ErrScanTimedOut means the poll loop exhausted its wait budget
	// while the job was still pending.
	ErrScanTimedOut = errors.New("scan timed out waiting for results")
)

// UploadGuidance is the user-facing remediation text attached to upload
// failures in place of the raw transport error.
const UploadGuidance = "verify your network connection and retry the security scan"
