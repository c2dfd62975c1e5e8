// Package cmd defines the CLI commands for the ncss-crawler executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ncss-crawler",
		Short: "Batch crawler for the ncss student job listing API.",
		Long: `ncss-crawler sweeps the 29 job categories of the ncss student job
listing API, normalizes every listing into a job record, and persists only
previously-unseen records into Postgres. One invocation is one crawl run.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (optional)")
	cmd.AddCommand(newCrawlCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
