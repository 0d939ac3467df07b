package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"scanagent/internal/archive"
	"scanagent/internal/scanflow"
	"scanagent/internal/scanservice"
	"scanagent/internal/telemetry"
)

var (
	runRoot     string
	runLanguage string
	runEndpoint string
	runToken    string
	runTimeout  time.Duration
	runVerbose  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Package a workspace and run a scan to completion",
	Long: `Package the workspace into an archive, upload it, submit a scan job
and poll until the job finishes. Findings are printed grouped by file,
in the order the service reported them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		root := strings.TrimSpace(runRoot)
		if root == "" {
			return fmt.Errorf("--root is required")
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolve root: %w", err)
		}
		language := strings.TrimSpace(runLanguage)
		if language == "" {
			return fmt.Errorf("--language is required")
		}
		endpoint := strings.TrimSpace(runEndpoint)
		if endpoint == "" {
			endpoint = strings.TrimSpace(os.Getenv("SCAN_SERVICE_ENDPOINT"))
		}
		if endpoint == "" {
			return fmt.Errorf("--endpoint or SCAN_SERVICE_ENDPOINT is required")
		}

		tr, err := archive.PackWorkspace(abs, "")
		if err != nil {
			return fmt.Errorf("package workspace: %w", err)
		}
		defer os.Remove(tr.ArchivePath)
		fmt.Printf("Packaged %d files (%d bytes)\n", tr.FileCount, tr.TotalBytes)

		client := scanservice.New(endpoint)
		if token := firstNonEmpty(runToken, os.Getenv("SCAN_SERVICE_TOKEN")); token != "" {
			client.SetAuthToken(token)
		}

		tel := telemetry.NewStore()
		runner := scanflow.NewRunner(client, tel)
		runner.Notify = func(phase, jobID string) {
			switch phase {
			case scanflow.PhaseUploaded:
				fmt.Println("Artifact uploaded")
			case scanflow.PhaseSubmitted:
				fmt.Printf("Scan submitted (job %s), polling...\n", jobID)
			}
		}

		// the poll cadence and wait budget are fixed; --timeout only
		// bounds the whole invocation through the context
		ctx := cmd.Context()
		if runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runTimeout)
			defer cancel()
		}

		res, err := runner.Run(ctx, tr.ArchivePath, abs, language, nil)
		if err != nil {
			return err
		}
		printFindings(res)
		if runVerbose {
			printTelemetry(tel, res.JobID)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runRoot, "root", ".", "workspace root to scan")
	runCmd.Flags().StringVarP(&runLanguage, "language", "l", "", "primary language of the workspace")
	runCmd.Flags().StringVar(&runEndpoint, "endpoint", "", "scan service endpoint (defaults to SCAN_SERVICE_ENDPOINT)")
	runCmd.Flags().StringVar(&runToken, "token", "", "bearer token (defaults to SCAN_SERVICE_TOKEN)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "overall deadline for the invocation (0 = none)")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "print recorded telemetry after the scan")
}

func printFindings(res *scanflow.Result) {
	total := 0
	for _, group := range res.Issues {
		total += len(group.Issues)
	}
	fmt.Printf("Scan %s finished: %s, %d finding(s)\n", res.JobID, res.Status, total)
	for _, group := range res.Issues {
		fmt.Printf("\n%s\n", group.FilePath)
		for _, issue := range group.Issues {
			fmt.Printf("  [%s] lines %d-%d: %s\n", severityOrDefault(issue.Severity), issue.StartLine, issue.EndLine, issue.Title)
			if issue.Comment != "" {
				fmt.Printf("    %s\n", issue.Comment)
			}
			if issue.RecommendationURL != "" {
				fmt.Printf("    see %s\n", issue.RecommendationURL)
			}
		}
	}
}

func printTelemetry(tel *telemetry.Store, jobID string) {
	events := tel.Read(jobID)
	if len(events) == 0 {
		return
	}
	fmt.Printf("\nTelemetry (%d event(s)):\n", len(events))
	for _, evt := range events {
		fmt.Printf("  %v\n", evt)
	}
}

func severityOrDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Info"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
