package main

import (
	"fmt"

	gikerrors "gik/internal/errors"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the active branch's timeline",
	Long:  "Creates the branch's revision timeline with a single Init revision. Idempotent: re-running against an already-initialized branch reports it rather than duplicating the Init revision.",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	e := mustGetEngine()
	result, err := e.Init()
	if err != nil {
		if gikerrors.Is(err, gikerrors.AlreadyInitialized) {
			printResult(result, func() {
				fmt.Printf("branch %q is already initialized\n", e.Branch)
			})
			return nil
		}
		return err
	}

	printResult(result, func() {
		fmt.Printf("initialized branch %q (revision %s)\n", e.Branch, result.RevisionID)
	})
	return nil
}
