package main

import (
	"fmt"

	"gik/internal/reindex"

	"github.com/spf13/cobra"
)

var (
	reindexForce  bool
	reindexDryRun bool
)

var reindexCmd = &cobra.Command{
	Use:   "reindex <base>",
	Short: "Rebuild one base's vector index under the active embedding model",
	Args:  cobra.ExactArgs(1),
	RunE:  runReindex,
}

func init() {
	reindexCmd.Flags().BoolVar(&reindexForce, "force", false, "reindex even if the active model already matches the base's stored model")
	reindexCmd.Flags().BoolVar(&reindexDryRun, "dry-run", false, "report what would change without rebuilding")
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	e := mustGetEngine()
	result, err := e.Reindex(args[0], reindex.Options{Force: reindexForce, DryRun: reindexDryRun})
	if err != nil {
		return err
	}
	printResult(result, func() {
		if result.DryRun {
			fmt.Printf("would reindex %s: %d chunk(s), %s -> %s\n", result.Base, result.ChunkCount, result.FromModelID, result.ToModelID)
			return
		}
		fmt.Printf("reindexed %s: %d chunk(s), %s -> %s (revision %s)\n", result.Base, result.ChunkCount, result.FromModelID, result.ToModelID, result.RevisionID)
	})
	return nil
}
