// Package cmd wires the command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "activity-crawler",
	Short: "Discovers and validates children's activity providers in Paris",
	Long: `activity-crawler walks municipal portals, public registries, and the
open web to find organizations offering children's activities in Paris,
validates and deduplicates what it finds, and stores review-ready records.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"path to config file (optional, environment variables apply on top)")
}
