package main

import (
	"fmt"
	"strings"

	"gik/internal/retrieval"

	"github.com/spf13/cobra"
)

var (
	askBases         []string
	askTopK          int
	askIncludeMemory bool
	askRerank        bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question against the indexed bases",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringSliceVar(&askBases, "base", nil, "restrict retrieval to these bases (default: all)")
	askCmd.Flags().IntVar(&askTopK, "top-k", 5, "number of rag chunks to return")
	askCmd.Flags().BoolVar(&askIncludeMemory, "memory", false, "include memory entries in retrieval")
	askCmd.Flags().BoolVar(&askRerank, "rerank", true, "apply the cross-encoder rerank stage")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	e := mustGetEngine()
	bundle, err := e.Ask(args[0], retrieval.Options{
		Bases:         askBases,
		TopK:          askTopK,
		IncludeMemory: askIncludeMemory,
		Rerank:        askRerank,
	})
	if err != nil {
		return err
	}

	printResult(bundle, func() {
		fmt.Printf("%d rag chunk(s), %d memory event(s), %d kg subgraph(s)\n\n", len(bundle.RagChunks), len(bundle.MemoryEvents), len(bundle.KgResults))
		for _, c := range bundle.RagChunks {
			fmt.Printf("[%s] %s (score %.3f)\n", c.Base, c.Path, c.Score)
			fmt.Println(indent(c.Text))
		}
		for _, m := range bundle.MemoryEvents {
			fmt.Printf("[memory:%s] %s (score %.3f)\n", m.Scope, m.ID, m.Score)
			fmt.Println(indent(m.Text))
		}
	})
	return nil
}

func indent(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}
