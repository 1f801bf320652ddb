package main

import (
	"fmt"
	"strings"

	"gik/internal/engine"

	"github.com/spf13/cobra"
)

var (
	showKg       bool
	showKgFormat string
)

var showCmd = &cobra.Command{
	Use:   "show [ref]",
	Short: "Show one revision (HEAD, HEAD~N, or an id prefix)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showKg, "kg", false, "also render the branch's knowledge graph")
	showCmd.Flags().StringVar(&showKgFormat, "kg-format", "dot", "knowledge graph export format: dot or block")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ref := "HEAD"
	if len(args) == 1 {
		ref = args[0]
	}

	e := mustGetEngine()
	view, err := e.Show(ref, engine.ShowOptions{IncludeKgExport: showKg, KgFormat: showKgFormat})
	if err != nil {
		return err
	}

	printResult(view, func() {
		fmt.Printf("revision %s\n", view.RevisionID)
		if view.ParentID != "" {
			fmt.Printf("parent:  %s\n", view.ParentID)
		}
		fmt.Printf("branch:  %s\n", view.Branch)
		fmt.Printf("date:    %s\n", view.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
		if view.Message != "" {
			fmt.Printf("message: %s\n", view.Message)
		}
		fmt.Printf("ops:     %s\n", strings.Join(view.Operations, ", "))
		fmt.Printf("bases:   %s\n", strings.Join(view.Bases, ", "))
		if view.KgDOT != "" {
			fmt.Println()
			fmt.Println(view.KgDOT)
		}
		if view.KgBlock != "" {
			fmt.Println()
			fmt.Println(view.KgBlock)
		}
	})
	return nil
}
