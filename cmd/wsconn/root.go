package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wsconn",
	Short: "wsconn keeps a WebSocket connection alive",
	Long: `wsconn opens a WebSocket connection and keeps it alive with an
application-level heartbeat, automatic reconnection and an outbound buffer
that holds messages while the connection is down.

Configuration can be provided via a YAML file (--config) and flags.
Flags take precedence over the file.`,
	SilenceUsage:  true,
	SilenceErrors: true, // Errors are printed by Execute
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(versionCmd)
}
