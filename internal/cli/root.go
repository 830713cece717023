// Package cli defines the replbox command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var versionInfo = "dev"

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit string) {
	versionInfo = fmt.Sprintf("%s (commit: %s)", version, commit)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "replbox",
	Short: "Multi-file JavaScript bundling sandbox",
	Long: `replbox - edit a set of virtual files, bundle them and share the result

Sessions live on the server and are shared as a compact URL fragment that
restores every file and build option.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to serving if no subcommand specified
		return runServe(cmd, args)
	},
}

// NewRootCommand returns the command tree. Used by tests.
func NewRootCommand() *cobra.Command {
	return rootCmd
}
