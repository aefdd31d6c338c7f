package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spirehq/spire/internal/deeplink"
)

// NewDeepLinkCmd creates the deep-link command, which parses a custom-scheme
// URL and prints the navigation target it resolves to.
func NewDeepLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deep-link <url>",
		Short: "Parse a spire:// deep link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := deeplink.Parse(args[0])
			if err != nil {
				return describeParseError(err)
			}

			out, merr := json.MarshalIndent(link, "", "  ")
			if merr != nil {
				return merr
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

// describeParseError rewraps the parser's typed errors with a reason tag so
// scripted callers can branch without string matching.
func describeParseError(err error) error {
	var malformed *deeplink.MalformedURLError
	var unknown *deeplink.UnknownProtocolError
	var unsupported *deeplink.UnsupportedURLError

	switch {
	case errors.As(err, &malformed):
		return fmt.Errorf("malformed-url: %w", err)
	case errors.As(err, &unknown):
		return fmt.Errorf("unknown-protocol: %w", err)
	case errors.As(err, &unsupported):
		return fmt.Errorf("unsupported-url: %w", err)
	default:
		return err
	}
}
