// Package cli implements the sart command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var projectRoot string

var rootCmd = &cobra.Command{
	Use:   "sart",
	Short: "Sustained Attention to Response Task",
	Long: `sart runs the Sustained Attention to Response Task.

Serve it over HTTP for browser clients, take it in the terminal,
or simulate participants to check scoring.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectRoot, "root", ".", "Project root holding the config directory")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
