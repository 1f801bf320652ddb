package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the branch's staging queue, file inventory, and per-base health",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	e := mustGetEngine()
	report, err := e.Status()
	if err != nil {
		return err
	}

	printResult(report, func() {
		fmt.Printf("branch %s", report.Branch)
		if report.Head != "" {
			fmt.Printf(" @ %s", report.Head[:min(8, len(report.Head))])
		}
		fmt.Println()
		fmt.Printf("staging: %d pending, %d indexed, %d failed\n", report.Staging.PendingCount, report.Staging.IndexedCount, report.Staging.FailedCount)
		fmt.Printf("stack: %d file(s) across %d manager(s)\n", report.Stack.TotalFiles, len(report.Stack.Managers))
		for _, b := range report.Bases {
			fmt.Printf("  %-10s %-14s documents=%d vectors=%d files=%d\n", b.Base, b.Health, b.Documents, b.Vectors, b.Files)
			if b.Error != "" {
				fmt.Printf("    error: %s\n", b.Error)
			}
		}
	})
	return nil
}
