package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "scanctl",
	Short: "Run workspace security scans from the terminal",
	Long: `scanctl packages a workspace, submits it to the scan service and
prints the findings grouped by file.

QUICK START
  scanctl run --root . --language go
  scanctl run --root ./service --language python --endpoint http://localhost:9090`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scanctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scanctl %s\n", Version)
	},
}

func main() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
