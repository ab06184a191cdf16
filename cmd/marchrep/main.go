// Package main provides the entry point for the marchrep CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "marchrep",
		Short: "marchrep - marching step rep counter",
		Long: `marchrep counts marching steps from camera pose landmarks.

Commands:
  serve     Run the counter with the HTTP API and live feed
  replay    Count reps in a recorded landmark file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default: marchrep.yaml in ., ./config or ~/.marchrep)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newReplayCommand())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "marchrep %s (commit: %s)\n", version, commit)
		},
	}
}
