package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Drop pending sources from the staging log by id",
	RunE:  runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	e := mustGetEngine()
	result, err := e.Remove(args)
	if err != nil {
		return err
	}
	printResult(result, func() {
		fmt.Printf("removed %d pending source(s)\n", result.RemovedCount)
	})
	return nil
}
