package main

import (
	"gik/internal/version"

	"github.com/spf13/cobra"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "gik",
	Short: "gik - a local-first knowledge engine for a codebase",
	Long: `gik indexes a workspace's code, docs, and free-form notes into a set of
bases, each retrievable by hybrid dense/sparse search, and tracks every
mutation on an append-only revision timeline.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("gik version {{.Version}}\n")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print output as JSON instead of human-readable text")
}
