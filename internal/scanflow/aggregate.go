package scanflow

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"scanagent/internal/safeio"
	"scanagent/internal/scanservice"
)

// FindingsSchema identifies the findings payload shape requested from
// the service.
const FindingsSchema = "codescan/findings/1.0"

// Aggregator turns the service's paginated findings into per-file
// issue groups for files that still exist locally.
type Aggregator struct {
	svc    Service
	schema string
}

func NewAggregator(svc Service) *Aggregator {
	return &Aggregator{svc: svc, schema: FindingsSchema}
}

// Collect drains every findings page for the job, groups findings by
// their declared relative path (preserving per-file order), resolves
// each path against the parent of projectRoot and keeps only paths that
// are existing regular files. Findings for files that moved or were
// deleted since packaging are dropped silently. Any page error aborts
// the whole aggregation; there is no retry and no partial result.
func (a *Aggregator) Collect(ctx context.Context, jobID, projectRoot string) ([]AggregatedIssue, error) {
	grouped := make(map[string][]scanservice.Finding)
	var order []string

	nextToken := ""
	for {
		page, err := a.svc.ListFindings(ctx, jobID, a.schema, nextToken)
		if err != nil {
			return nil, err
		}
		for _, f := range page.Findings {
			if _, seen := grouped[f.FilePath]; !seen {
				order = append(order, f.FilePath)
			}
			grouped[f.FilePath] = append(grouped[f.FilePath], f)
		}
		if page.NextToken == "" {
			break
		}
		nextToken = page.NextToken
	}

	parent := filepath.Dir(filepath.Clean(projectRoot))
	fsys, err := safeio.NewSafeFS(parent)
	if err != nil {
		log.Printf("aggregate: cannot open %s: %v", parent, err)
		return []AggregatedIssue{}, nil
	}
	out := make([]AggregatedIssue, 0, len(order))
	for _, rel := range order {
		// confined to the parent directory; traversal outside it is
		// treated the same as a missing file
		st, err := fsys.SafeStat(filepath.FromSlash(rel))
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		abs := filepath.Join(parent, filepath.FromSlash(rel))
		findings := grouped[rel]
		issues := make([]Issue, 0, len(findings))
		for _, f := range findings {
			issues = append(issues, normalizeFinding(f))
		}
		out = append(out, AggregatedIssue{FilePath: abs, Issues: issues})
	}
	return out, nil
}

func normalizeFinding(f scanservice.Finding) Issue {
	start := f.StartLine - 1
	if start < 0 {
		start = 0
	}
	return Issue{
		StartLine:          start,
		EndLine:            f.EndLine,
		Comment:            strings.TrimSpace(f.Title) + ": " + strings.TrimSpace(f.Description.Text),
		Title:              f.Title,
		Severity:           f.Severity,
		DetectorID:         f.DetectorID,
		RecommendationText: f.Remediation.Recommendation.Text,
		RecommendationURL:  f.Remediation.Recommendation.URL,
		SuggestedFixes:     f.Remediation.SuggestedFixes,
	}
}
