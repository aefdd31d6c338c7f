package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spirehq/spire/internal/appctx"
)

// NewStateCmd creates the state command, which prints the persisted workspace
// registry, optionally filtered through a jq expression. With --watch it
// keeps running and re-prints whenever another process rewrites the state
// file.
func NewStateCmd() *cobra.Command {
	var jqExpr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the workspace state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("application context not initialized")
			}

			if err := printState(cmd, app, jqExpr); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			stop, err := app.Workspaces.WatchExternal(func() {
				if err := printState(cmd, app, jqExpr); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
				}
			})
			if err != nil {
				return err
			}
			defer stop()

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&jqExpr, "jq", "", "Filter output through a jq expression")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and re-print on external state changes")

	return cmd
}

func printState(cmd *cobra.Command, app *appctx.App, jqExpr string) error {
	snapshot := app.Workspaces.Snapshot()

	if jqExpr != "" {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		return filterJQ(cmd, data, jqExpr)
	}

	format := "json"
	if app.Config != nil && app.Config.Format != "" {
		format = app.Config.Format
	}
	switch format {
	case "json":
		out, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	case "yaml":
		// Round-trip through the JSON shape so both formats expose the same
		// key names; the structs carry only JSON tags.
		data, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		var tree any
		if err := json.Unmarshal(data, &tree); err != nil {
			return err
		}
		out, err := yaml.Marshal(tree)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	default:
		return fmt.Errorf("unsupported format %q (json, yaml)", format)
	}
}

// filterJQ runs a jq expression over the JSON document and prints each result
// on its own line.
func filterJQ(cmd *cobra.Command, data []byte, expr string) error {
	query, err := gojq.Parse(expr)
	if err != nil {
		return fmt.Errorf("parsing jq expression: %w", err)
	}

	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return err
	}

	iter := query.RunWithContext(cmd.Context(), input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return fmt.Errorf("jq: %w", err)
		}
		out, err := gojq.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	}
	return nil
}
