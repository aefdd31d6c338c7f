package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// NewAgentHelperCmd creates the agent-helper command: a long-lived child
// process used by process-lifecycle tests. It prints a readiness line once
// started, then idles until it receives a termination signal.
func NewAgentHelperCmd() *cobra.Command {
	var ignoreTermination bool
	var exitDelay time.Duration

	cmd := &cobra.Command{
		Use:    "agent-helper",
		Short:  "Run the agent lifecycle helper process",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

			// The parent waits for this line before it starts driving the
			// process.
			fmt.Fprintln(cmd.OutOrStdout(), "ready")

			for sig := range sigs {
				if ignoreTermination {
					fmt.Fprintln(cmd.ErrOrStderr(), "ignoring signal:", sig)
					continue
				}
				if exitDelay > 0 {
					time.Sleep(exitDelay)
				}
				return nil
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ignoreTermination, "ignore-termination", false, "Keep running after termination signals (test only)")
	cmd.Flags().DurationVar(&exitDelay, "exit-delay", 0, "Delay before exiting after a termination signal")

	return cmd
}
