package main

import (
	"fmt"
	"os"

	"gik/internal/engine"
)

// mustGetEngine opens the engine rooted at the current directory, exiting
// with a formatted error on failure. Unlike the shared-instance pattern a
// long-lived server might use, gik is a one-shot CLI: every command gets
// its own Engine bound to the current process's working directory.
func mustGetEngine() *engine.Engine {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	e, err := engine.Open(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening workspace: %v\n", err)
		os.Exit(1)
	}
	return e
}
