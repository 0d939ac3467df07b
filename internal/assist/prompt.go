package assist

import (
	"fmt"
	"strings"

	"scanagent/internal/scanflow"
)

const promptHeader = `You are a security remediation assistant. Given one static-analysis
finding, propose a minimal fix. Respond with JSON only:
{"summary": "...", "code": "...", "references": ["..."]}`

func buildPrompt(filePath string, issue scanflow.Issue) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\n[FINDING]\n")
	fmt.Fprintf(&b, "file: %s\n", filePath)
	fmt.Fprintf(&b, "lines: %d-%d\n", issue.StartLine, issue.EndLine)
	fmt.Fprintf(&b, "issue: %s\n", issue.Comment)
	if issue.Severity != "" {
		fmt.Fprintf(&b, "severity: %s\n", issue.Severity)
	}
	if issue.DetectorID != "" {
		fmt.Fprintf(&b, "detector: %s\n", issue.DetectorID)
	}
	if issue.RecommendationText != "" {
		fmt.Fprintf(&b, "service recommendation: %s\n", issue.RecommendationText)
	}
	for _, fix := range issue.SuggestedFixes {
		if strings.TrimSpace(fix.Code) == "" {
			continue
		}
		b.WriteString("\n[SERVICE SUGGESTED FIX]\n")
		b.WriteString(fix.Code)
		b.WriteString("\n")
	}
	return b.String()
}
