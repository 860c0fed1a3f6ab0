// Package cli implements the xpd command-line interface using Cobra.
// serve runs the daemon; the other commands work on the local store directly.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// buildVersion is set by Execute.
var buildVersion = "dev"

var rootCmd = &cobra.Command{
	Use:   "xpd",
	Short: "Gamification engine for the study platform",
	Long: `xpd keeps each learner's XP, level, daily streak and badges.

It syncs XP with roadmap and doubt activity from the platform backend and
serves the resulting state to the UI over HTTP and a live websocket feed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	buildVersion = version
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
