package main

import (
	"fmt"
	"os"

	"github.com/aretw0/grove"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "grove",
	Short: "Grove serves API request collections behind stable handles",
	Long: `Grove keeps a tree of API request collections, issues handles that
survive structural edits, and exposes them over HTTP and MCP.`,
	Version:      grove.Version,
	SilenceUsage: true,
}

// Execute runs the command line and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a grove.yaml file (GROVE_* variables override it)")
	rootCmd.PersistentFlags().String("log-level", "", "override log_level: debug, info, warn or error")
}
