package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the mediasync command tree
func NewRootCommand() *cobra.Command {
	globalFlags = GlobalFlags{}

	rootCmd := &cobra.Command{
		Use:   "mediasync",
		Short: "Mirror a media tree and verify every copy",
		Long: `mediasync mirrors a source directory into a destination, copying only
files that are missing, and verifies every file afterwards with the chosen
strategy (size, diff, manifest or sha256). Each run writes a main log, a
differences log and a copy-failures log.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewVerifyCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
