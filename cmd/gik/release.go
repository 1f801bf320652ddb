package main

import (
	"fmt"

	"gik/internal/release"

	"github.com/spf13/cobra"
)

var (
	releaseTag    string
	releaseFrom   string
	releaseTo     string
	releaseDryRun bool
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Generate a changelog from Conventional Commit messages between two revisions",
	RunE:  runRelease,
}

func init() {
	releaseCmd.Flags().StringVar(&releaseTag, "tag", "", "tag name to title the changelog with")
	releaseCmd.Flags().StringVar(&releaseFrom, "from", "", "revision to start from, exclusive (default: root)")
	releaseCmd.Flags().StringVar(&releaseTo, "to", "", "revision to end at, inclusive (default: HEAD)")
	releaseCmd.Flags().BoolVar(&releaseDryRun, "dry-run", false, "print the changelog without writing CHANGELOG.md")
	rootCmd.AddCommand(releaseCmd)
}

func runRelease(cmd *cobra.Command, args []string) error {
	e := mustGetEngine()
	summary, err := e.Release(release.Options{Tag: releaseTag, From: releaseFrom, To: releaseTo, DryRun: releaseDryRun})
	if err != nil {
		return err
	}

	printResult(summary, func() {
		if summary.DryRun {
			fmt.Printf("%d group(s) between %s and %s (dry run)\n", len(summary.Groups), orRoot(summary.From), summary.To)
		} else {
			fmt.Printf("wrote %s: %d group(s) between %s and %s\n", summary.WrittenPath, len(summary.Groups), orRoot(summary.From), summary.To)
		}
		for _, g := range summary.Groups {
			fmt.Printf("  %s: %d entr(y/ies)\n", g.Type, len(g.Entries))
		}
	})
	return nil
}

func orRoot(rev string) string {
	if rev == "" {
		return "root"
	}
	return rev
}
