package scanservice

import "time"

// ArtifactKind identifies what an uploaded artifact contains.
type ArtifactKind string

const ArtifactKindSourceCode ArtifactKind = "SourceCode"

// JobStatus is the status reported by the scan service for a job.
// The value set is owned by the service; Pending is the only non-terminal one.
type JobStatus string

const (
	JobStatusPending   JobStatus = "Pending"
	JobStatusCompleted JobStatus = "Completed"
	JobStatusFailed    JobStatus = "Failed"
	JobStatusCancelled JobStatus = "Cancelled"
)

// UploadDestination is a write handle issued by the service: a presigned
// URL plus the headers the storage endpoint requires on the PUT.
type UploadDestination struct {
	UploadID string            `json:"uploadId"`
	URL      string            `json:"uploadUrl"`
	Headers  map[string]string `json:"requestHeaders"`
}

// ScanJob is the transient reference to a remote analysis job.
type ScanJob struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Finding is one issue reported by the service, scoped to a file and
// line range. Immutable once received.
type Finding struct {
	FilePath               string      `json:"filePath"`
	StartLine              int         `json:"startLine"`
	EndLine                int         `json:"endLine"`
	Title                  string      `json:"title"`
	Description            Description `json:"description"`
	DetectorID             string      `json:"detectorId"`
	DetectorName           string      `json:"detectorName,omitempty"`
	RuleID                 string      `json:"ruleId,omitempty"`
	Severity               string      `json:"severity,omitempty"`
	Remediation            Remediation `json:"remediation,omitempty"`
	RelatedVulnerabilities []string    `json:"relatedVulnerabilities,omitempty"`
}

type Description struct {
	Text string `json:"text"`
}

type Remediation struct {
	Recommendation Recommendation `json:"recommendation,omitempty"`
	SuggestedFixes []SuggestedFix `json:"suggestedFixes,omitempty"`
}

type Recommendation struct {
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

type SuggestedFix struct {
	Description string `json:"description,omitempty"`
	Code        string `json:"code,omitempty"`
}

// FindingsPage is one page of findings plus the cursor for the next one.
// An empty NextToken means the listing is exhausted.
type FindingsPage struct {
	Findings  []Finding
	NextToken string
}

type createUploadRequest struct {
	ContentMD5   string       `json:"contentMd5"`
	ArtifactKind ArtifactKind `json:"artifactType"`
}

type createScanRequest struct {
	ArtifactMap map[ArtifactKind]string `json:"artifactMap"`
	Language    string                  `json:"programmingLanguage"`
	ClientToken string                  `json:"clientToken"`
}

type getScanResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
