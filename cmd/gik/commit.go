package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var commitMessage string

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Embed and persist every pending source into its base",
	RunE:  runCommit,
}

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message, parsed as a Conventional Commit for release")
	rootCmd.AddCommand(commitCmd)
}

func runCommit(cmd *cobra.Command, args []string) error {
	e := mustGetEngine()
	result, err := e.Commit(commitMessage)
	if err != nil {
		return err
	}
	printResult(result, func() {
		fmt.Printf("committed revision %s across %d base(s):\n", result.RevisionID, len(result.Bases))
		for _, b := range result.Bases {
			fmt.Printf("  %s: %d chunk(s) from %d file(s), %d source(s)\n", b.Base, b.ChunkCount, b.FileCount, b.SourceCount)
		}
	})
	return nil
}
