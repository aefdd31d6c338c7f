// Package commands implements the spire subcommands.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spirehq/spire/internal/appctx"
	"github.com/spirehq/spire/internal/completion"
	"github.com/spirehq/spire/internal/connect"
	"github.com/spirehq/spire/internal/docs"
	"github.com/spirehq/spire/internal/uri"
	"github.com/spirehq/spire/internal/usage"
)

// NewOpenCmd creates the open command. It runs the connect orchestrator
// matching the resource URI and persists the resulting workspace state. The
// completer is shared across the command set; nil falls back to the default.
func NewOpenCmd(completer *completion.Completer) *cobra.Command {
	if completer == nil {
		completer = completion.NewCompleter(nil)
	}
	var login, dbUser, dbName, dbProtocol string

	cmd := &cobra.Command{
		Use:   "open <uri>",
		Short: "Open a document for a cluster resource",
		Long: `Open switches the active workspace to the resource's root cluster and adds
the matching document (SSH session, gateway, desktop session or cluster
browser). App resources need live metadata from the daemon and are not
supported here.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("application context not initialized")
			}

			target := uri.URI(args[0])
			if err := openTarget(cmd.Context(), app, target, openFlags{
				login:      login,
				dbUser:     dbUser,
				dbName:     dbName,
				dbProtocol: dbProtocol,
			}); err != nil {
				return err
			}

			if err := app.Workspaces.Save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "opened", target)
			return nil
		},
	}

	cmd.ValidArgsFunction = completer.URICompletion()

	cmd.Flags().StringVar(&login, "login", "", "Login for SSH or desktop sessions")
	cmd.Flags().StringVar(&dbUser, "db-user", "", "Database user for gateway connections")
	cmd.Flags().StringVar(&dbName, "db-name", "", "Database display name")
	cmd.Flags().StringVar(&dbProtocol, "db-protocol", "", "Database protocol (postgres, mysql, redis, ...)")

	return cmd
}

type openFlags struct {
	login      string
	dbUser     string
	dbName     string
	dbProtocol string
}

func openTarget(ctx context.Context, app *appctx.App, target uri.URI, flags openFlags) error {
	if params, ok := uri.ParseServer(target); ok {
		return connect.Server(ctx, app, connect.ServerTarget{
			ServerURI: target,
			Hostname:  params.ServerID,
			Login:     flags.login,
		}, usage.OriginSearchBar)
	}

	if params, ok := uri.ParseDatabase(target); ok {
		name := flags.dbName
		if name == "" {
			name = params.DbID
		}
		return connect.Database(ctx, app, connect.DatabaseTarget{
			DatabaseURI: target,
			Name:        name,
			Protocol:    flags.dbProtocol,
			DbUser:      flags.dbUser,
		}, usage.OriginSearchBar)
	}

	if _, ok := uri.ParseKube(target); ok {
		return connect.Kube(ctx, app, connect.KubeTarget{KubeURI: target}, usage.OriginSearchBar)
	}

	if _, ok := uri.ParseDesktop(target); ok {
		return connect.WindowsDesktop(ctx, app, connect.DesktopTarget{
			DesktopURI: target,
			Login:      flags.login,
		}, usage.OriginSearchBar)
	}

	if uri.IsCluster(target) {
		rootClusterURI, err := uri.RootClusterURI(target)
		if err != nil {
			return err
		}
		if err := app.Workspaces.SetActiveWorkspace(ctx, rootClusterURI); err != nil {
			return err
		}
		if target != rootClusterURI {
			if err := app.Workspaces.Workspace(rootClusterURI).SetLocalClusterURI(target); err != nil {
				return err
			}
		}
		docService := app.Workspaces.DocumentService(rootClusterURI)
		doc := docService.NewClusterDocument(docs.ClusterDocumentParams{ClusterURI: target})
		docService.Add(doc)
		docService.Open(doc.URI)
		return nil
	}

	return fmt.Errorf("cannot open %s: not a server, db, kube, desktop or cluster URI", target)
}
