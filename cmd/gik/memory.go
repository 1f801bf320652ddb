package main

import (
	"fmt"

	"gik/internal/memory"

	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and maintain the memory base",
}

var memoryMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Summarize the memory base's live entries",
	RunE:  runMemoryMetrics,
}

var (
	pruneMode               string
	pruneMaxEntries         int
	pruneMaxEstimatedTokens int
	pruneMaxAgeDays         int
	pruneObsoleteTags       []string
)

var memoryPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply a pruning policy to the memory base's live entries",
	Long: `prune removes entries matching any configured bound (conditions OR
together). With no flags set, the memory base's own saved policy is used,
falling back to the active configuration's default.`,
	RunE: runMemoryPrune,
}

func init() {
	memoryPruneCmd.Flags().StringVar(&pruneMode, "mode", "", "delete or archive (required if any bound is set)")
	memoryPruneCmd.Flags().IntVar(&pruneMaxEntries, "max-entries", 0, "maximum live entry count")
	memoryPruneCmd.Flags().IntVar(&pruneMaxEstimatedTokens, "max-estimated-tokens", 0, "maximum total estimated tokens")
	memoryPruneCmd.Flags().IntVar(&pruneMaxAgeDays, "max-age-days", 0, "maximum entry age in days")
	memoryPruneCmd.Flags().StringSliceVar(&pruneObsoleteTags, "obsolete-tag", nil, "tag that marks an entry obsolete (repeatable)")

	memoryCmd.AddCommand(memoryMetricsCmd)
	memoryCmd.AddCommand(memoryPruneCmd)
	rootCmd.AddCommand(memoryCmd)
}

func runMemoryMetrics(cmd *cobra.Command, args []string) error {
	e := mustGetEngine()
	result, err := e.MemoryMetrics()
	if err != nil {
		return err
	}
	printResult(result, func() {
		m := result.Metrics
		fmt.Printf("entries: %d\n", m.EntryCount)
		fmt.Printf("estimated tokens: %d\n", m.EstimatedTokenCount)
		fmt.Printf("total chars: %d\n", m.TotalChars)
	})
	return nil
}

func runMemoryPrune(cmd *cobra.Command, args []string) error {
	e := mustGetEngine()

	var policy *memory.PruningPolicy
	if cmd.Flags().Changed("mode") || cmd.Flags().Changed("max-entries") ||
		cmd.Flags().Changed("max-estimated-tokens") || cmd.Flags().Changed("max-age-days") ||
		cmd.Flags().Changed("obsolete-tag") {
		p := memory.PruningPolicy{Mode: memory.PruneMode(pruneMode), ObsoleteTags: pruneObsoleteTags}
		if pruneMaxEntries > 0 {
			p.MaxEntries = &pruneMaxEntries
		}
		if pruneMaxEstimatedTokens > 0 {
			p.MaxEstimatedTokens = &pruneMaxEstimatedTokens
		}
		if pruneMaxAgeDays > 0 {
			p.MaxAgeDays = &pruneMaxAgeDays
		}
		policy = &p
	}

	result, err := e.MemoryPrune(policy)
	if err != nil {
		return err
	}
	printResult(result, func() {
		fmt.Printf("pruned %d entr(y/ies): %d archived, %d deleted\n", result.Result.Count, result.Result.ArchivedCount, result.Result.DeletedCount)
		if result.RevisionID != "" {
			fmt.Printf("revision %s\n", result.RevisionID)
		}
	})
	return nil
}
