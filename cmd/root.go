// =============================================================================
// CI Load Engine - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (ciload)
//   ├── generateCmd (ciload generate)
//   ├── tariffsCmd  (ciload tariffs)
//   └── versionCmd  (ciload version)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging regardless of log_level.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "ciload",
	Short: "CI Load Engine - Build customs EDI loads from entry snapshots",
	Long: `CI Load Engine turns entry snapshots (entry, invoices, lines, tariffs,
containers, bills of lading, parties) into the record structure the customs
EDI target expects. Supplemental program tariffs (section 301, MTB,
exclusions) are injected and prioritized on top of each line's primary
classification.

Example Usage:
  ciload generate                        # Generate loads for every snapshot in input_dir
  ciload generate --file entry.yaml      # Generate a single snapshot
  ciload generate --dry-run              # Generate without delivering
  ciload tariffs --country CN --hts 8471.30.0100 --date 2024-03-01`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
