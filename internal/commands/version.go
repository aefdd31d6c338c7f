package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spirehq/spire/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			if version.Commit != "none" {
				fmt.Fprintln(cmd.OutOrStdout(), "commit:", version.Commit)
			}
			if version.Date != "unknown" {
				fmt.Fprintln(cmd.OutOrStdout(), "built:", version.Date)
			}
		},
	}
}
