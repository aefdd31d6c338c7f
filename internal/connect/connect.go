// Package connect implements the orchestration that turns "connect to this
// resource" into workspace switches and documents. Each orchestrator first
// consults the connection tracker so reopening a target the user is already
// connected to re-activates the existing tab instead of duplicating it.
package connect

import (
	"context"

	"github.com/spirehq/spire/internal/appctx"
	"github.com/spirehq/spire/internal/docs"
	"github.com/spirehq/spire/internal/uri"
	"github.com/spirehq/spire/internal/usage"
)

// redisDefaultUser is substituted when connecting to a Redis database with
// no username: Redis is the one protocol where an empty user means the
// well-known "default" account rather than "ask".
const redisDefaultUser = "default"

// ServerTarget describes an SSH connect action.
type ServerTarget struct {
	ServerURI uri.URI
	Hostname  string
	Login     string
}

// DatabaseTarget describes a database connect action.
type DatabaseTarget struct {
	DatabaseURI uri.URI
	Name        string
	Protocol    string
	DbUser      string
}

// KubeTarget describes a Kubernetes cluster connect action.
type KubeTarget struct {
	KubeURI uri.URI
}

// DesktopTarget describes a Windows desktop connect action.
type DesktopTarget struct {
	DesktopURI uri.URI
	Login      string
}

// Server opens (or re-activates) an SSH session to a server. Errors from the
// workspace switch or the tracker propagate unwrapped so the caller's
// relogin wrapper can classify them.
func Server(ctx context.Context, app *appctx.App, target ServerTarget, origin usage.Origin) error {
	rootClusterURI, err := uri.RootClusterURI(target.ServerURI)
	if err != nil {
		return err
	}
	docService := app.Workspaces.DocumentService(rootClusterURI)
	doc := docService.NewTshNodeDocument(docs.TshNodeDocumentParams{
		ServerURI: target.ServerURI,
		Hostname:  target.Hostname,
		Login:     target.Login,
		Origin:    string(origin),
	})

	if conn := app.Connections.FindConnectionByDocument(doc); conn != nil && conn.Online {
		return app.Connections.ActivateItem(ctx, conn.ID, origin)
	}

	if err := app.Workspaces.SetActiveWorkspace(ctx, rootClusterURI); err != nil {
		return err
	}
	docService.Add(doc)
	docService.Open(doc.URI)

	app.Usage.ReportConnect(usage.ConnectEvent{
		RootClusterURI: rootClusterURI,
		ResourceURI:    target.ServerURI,
		ResourceKind:   "server",
		Origin:         origin,
	})
	return nil
}

// Database opens (or re-activates) a gateway to a database. Connection reuse
// matches on (target URI, database user), never on the gateway URI, which is
// assigned only after the gateway comes up.
func Database(ctx context.Context, app *appctx.App, target DatabaseTarget, origin usage.Origin) error {
	rootClusterURI, err := uri.RootClusterURI(target.DatabaseURI)
	if err != nil {
		return err
	}

	dbUser := target.DbUser
	if target.Protocol == "redis" && dbUser == "" {
		dbUser = redisDefaultUser
	}

	docService := app.Workspaces.DocumentService(rootClusterURI)
	doc := docService.NewGatewayDocument(docs.GatewayDocumentParams{
		TargetURI:  target.DatabaseURI,
		TargetUser: dbUser,
		TargetName: target.Name,
		Origin:     string(origin),
	})

	if conn := app.Connections.FindConnectionByDocument(doc); conn != nil && conn.Online {
		return app.Connections.ActivateItem(ctx, conn.ID, origin)
	}

	if err := app.Workspaces.SetActiveWorkspace(ctx, rootClusterURI); err != nil {
		return err
	}
	docService.Add(doc)
	docService.Open(doc.URI)

	app.Usage.ReportConnect(usage.ConnectEvent{
		RootClusterURI: rootClusterURI,
		ResourceURI:    target.DatabaseURI,
		ResourceKind:   "db",
		Origin:         origin,
	})
	return nil
}

// Kube opens (or re-activates) a gateway to a Kubernetes cluster. Matching
// has no user dimension; the kube URI alone identifies the connection. A
// kube config path recorded by a previous connection for the same target is
// carried over into the new document.
func Kube(ctx context.Context, app *appctx.App, target KubeTarget, origin usage.Origin) error {
	rootClusterURI, err := uri.RootClusterURI(target.KubeURI)
	if err != nil {
		return err
	}
	docService := app.Workspaces.DocumentService(rootClusterURI)
	doc := docService.NewGatewayKubeDocument(docs.GatewayKubeDocumentParams{
		TargetURI: target.KubeURI,
		Origin:    string(origin),
	})

	conn := app.Connections.FindConnectionByDocument(doc)
	if conn != nil && conn.Online {
		return app.Connections.ActivateItem(ctx, conn.ID, origin)
	}
	if conn != nil && conn.KubeConfigRelativePath != "" {
		doc.KubeConfigRelativePath = conn.KubeConfigRelativePath
	}

	if err := app.Workspaces.SetActiveWorkspace(ctx, rootClusterURI); err != nil {
		return err
	}
	docService.Add(doc)
	docService.Open(doc.URI)

	app.Usage.ReportConnect(usage.ConnectEvent{
		RootClusterURI: rootClusterURI,
		ResourceURI:    target.KubeURI,
		ResourceKind:   "kube",
		Origin:         origin,
	})
	return nil
}

// WindowsDesktop opens a desktop session, re-activating an existing document
// for the same (desktop, login) pair instead of duplicating it.
func WindowsDesktop(ctx context.Context, app *appctx.App, target DesktopTarget, origin usage.Origin) error {
	rootClusterURI, err := uri.RootClusterURI(target.DesktopURI)
	if err != nil {
		return err
	}
	if err := app.Workspaces.SetActiveWorkspace(ctx, rootClusterURI); err != nil {
		return err
	}

	docService := app.Workspaces.DocumentService(rootClusterURI)
	docService.OpenExistingOrAddNew(
		func(d docs.Document) bool {
			session, ok := d.(*docs.DesktopSession)
			return ok && session.DesktopURI == target.DesktopURI && session.Login == target.Login
		},
		func() docs.Document {
			return docService.NewDesktopSessionDocument(docs.DesktopSessionDocumentParams{
				DesktopURI: target.DesktopURI,
				Login:      target.Login,
				Origin:     string(origin),
			})
		},
	)

	app.Usage.ReportConnect(usage.ConnectEvent{
		RootClusterURI: rootClusterURI,
		ResourceURI:    target.DesktopURI,
		ResourceKind:   "windows_desktop",
		Origin:         origin,
	})
	return nil
}
