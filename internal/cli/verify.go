package cli

import (
	"github.com/spf13/cobra"
)

// NewVerifyCommand creates the verify command
func NewVerifyCommand() *cobra.Command {
	flags := &SyncFlags{}

	cmd := &cobra.Command{
		Use:   "verify [source] [dest]",
		Short: "Verify dest against source without copying",
		Long: `Compare every source file with its counterpart in dest and write the
usual logs. Nothing is created or copied; files absent from dest are
reported as Missing.`,
		Args: validateArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd, args, flags, true)
		},
	}

	addRunFlags(cmd, flags)

	return cmd
}
