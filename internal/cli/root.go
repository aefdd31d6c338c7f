// Package cli wires the root cobra command and global flags.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/spirehq/spire/internal/appctx"
	"github.com/spirehq/spire/internal/auth"
	"github.com/spirehq/spire/internal/clusters"
	"github.com/spirehq/spire/internal/commands"
	"github.com/spirehq/spire/internal/completion"
	"github.com/spirehq/spire/internal/config"
	"github.com/spirehq/spire/internal/connections"
	"github.com/spirehq/spire/internal/notify"
	"github.com/spirehq/spire/internal/resources"
	"github.com/spirehq/spire/internal/statefile"
	"github.com/spirehq/spire/internal/usage"
	"github.com/spirehq/spire/internal/version"
	"github.com/spirehq/spire/internal/workspaces"
)

// GlobalFlags holds the persistent flag values.
type GlobalFlags struct {
	DaemonAddr string
	StateDir   string
	Format     string
	Debug      bool
}

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags GlobalFlags

	cmd := &cobra.Command{
		Use:           "spire",
		Short:         "Terminal client state tool for remote infrastructure clusters",
		Long:          "spire manages workspaces, open documents, and connections to servers, databases, Kubernetes clusters, apps and desktops across clusters.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for commands that don't need the app
			switch cmd.Name() {
			case "help", "version", "deep-link", "agent-helper":
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				DaemonAddr: flags.DaemonAddr,
				StateDir:   flags.StateDir,
				Format:     flags.Format,
				Debug:      flags.Debug,
			})
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			app, err := buildApp(cfg)
			if err != nil {
				return err
			}

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.DaemonAddr, "daemon-addr", "", "Backend daemon address")
	cmd.PersistentFlags().StringVar(&flags.StateDir, "state-dir", "", "Directory holding workspace state")
	cmd.PersistentFlags().StringVar(&flags.Format, "format", "", "Output format (json, yaml)")
	cmd.PersistentFlags().BoolVarP(&flags.Debug, "verbose", "v", false, "Enable debug logging")

	return cmd
}

// buildApp assembles the application context for CLI invocations. The daemon
// client is offline here; the desktop shell swaps in a live one.
func buildApp(cfg *config.Config) (*appctx.App, error) {
	store, err := statefile.NewStore(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	creds := auth.NewStore(cfg.StateDir, cfg.KeyringEnabled)
	client := clusters.NewOfflineClient(creds)

	ws := workspaces.NewService(client, store)
	if err := ws.Restore(); err != nil {
		return nil, fmt.Errorf("restoring workspace state: %w", err)
	}

	return &appctx.App{
		Config:        cfg,
		Clusters:      client,
		Workspaces:    ws,
		Connections:   connections.NoTracker{},
		Notifications: notify.NewService(),
		Usage:         usage.Discard{},
		Resources:     resources.NewRefresher(),
		Browser:       appctx.SystemBrowser{},
		Clipboard:     appctx.SystemClipboard{},
	}, nil
}

// Execute runs the root command.
func Execute() {
	cmd := NewRootCmd()

	// One completer serves every command that takes resource URIs.
	completer := completion.NewCompleter(nil)

	cmd.AddCommand(commands.NewOpenCmd(completer))
	cmd.AddCommand(commands.NewStateCmd())
	cmd.AddCommand(commands.NewDeepLinkCmd())
	cmd.AddCommand(commands.NewAgentHelperCmd())
	cmd.AddCommand(commands.NewVersionCmd())

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
