package main

import (
	"fmt"

	"gik/internal/engine"
	"gik/internal/memory"

	"github.com/spf13/cobra"
)

var (
	addBase       string
	addMemoryText string
	addMemScope   string
	addMemSource  string
	addMemTitle   string
	addMemTags    []string
)

var addCmd = &cobra.Command{
	Use:   "add <target>...",
	Short: "Stage sources for the next commit, or ingest a memory note immediately",
	Long: `add stages one or more file paths or URLs as pending sources for the
next commit. Passing --memory instead takes the short-circuit path: the
text is embedded and ingested immediately, with no staging/commit step.`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addBase, "base", "", "base to stage targets under (inferred from target kind if omitted)")
	addCmd.Flags().StringVar(&addMemoryText, "memory", "", "ingest this text as a memory entry instead of staging targets")
	addCmd.Flags().StringVar(&addMemScope, "scope", string(memory.ScopeProject), "memory entry scope: project, branch, or global")
	addCmd.Flags().StringVar(&addMemSource, "source", string(memory.SourceManualNote), "memory entry source")
	addCmd.Flags().StringVar(&addMemTitle, "title", "", "memory entry title")
	addCmd.Flags().StringSliceVar(&addMemTags, "tags", nil, "memory entry tags")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	e := mustGetEngine()

	opts := engine.AddOptions{Base: addBase}
	if addMemoryText != "" {
		opts.MemoryText = addMemoryText
		opts.MemoryScope = memory.Scope(addMemScope)
		opts.MemorySource = memory.Source(addMemSource)
		opts.MemoryTitle = addMemTitle
		opts.MemoryTags = addMemTags
	}

	result, err := e.Add(args, opts)
	if err != nil {
		return err
	}

	printResult(result, func() {
		if result.MemoryIngest != nil {
			fmt.Printf("ingested memory entry (revision %s)\n", result.MemoryRevID)
			return
		}
		fmt.Printf("staged %d source(s), skipped %d duplicate(s)\n", len(result.Added), result.SkippedCount)
	})
	return nil
}
