package connect

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spirehq/spire/internal/appctx"
	"github.com/spirehq/spire/internal/clusters"
	"github.com/spirehq/spire/internal/docs"
	"github.com/spirehq/spire/internal/uri"
	"github.com/spirehq/spire/internal/usage"
)

// AppTarget describes an app connect action. AWSRoleARN must be set for
// AWS console apps; it is the role the user picked before launching.
type AppTarget struct {
	App        clusters.App
	AWSRoleARN string
}

// App launches an application. Classification is checked in precedence
// order and each branch is terminal:
//
//  1. SAML app: open the SSO URL in the browser.
//  2. AWS console app: open the console launch URL for the chosen role.
//  3. cloud:// endpoint: alert the user; such apps cannot be proxied.
//  4. http(s) endpoint: open the web app launch URL in the browser.
//  5. anything else is a TCP app: hand it to VNet when available,
//     otherwise fall back to a gateway document.
//
// Browser launches bypass the click instrumentation that fires elsewhere in
// the UI, so each browser branch reports the app-open event itself.
func App(ctx context.Context, app *appctx.App, target AppTarget, origin usage.Origin) error {
	rootClusterURI, err := uri.RootClusterURI(target.App.URI)
	if err != nil {
		return err
	}

	switch {
	case target.App.SAMLApp:
		return openInBrowser(app, rootClusterURI, target.App, target.App.SAMLSsoURL, origin)

	case target.App.AWSConsole:
		if target.AWSRoleARN == "" {
			return fmt.Errorf("connect: AWS console app %s launched without a role ARN", target.App.URI)
		}
		return openInBrowser(app, rootClusterURI, target.App, awsConsoleURL(target.App, target.AWSRoleARN), origin)

	case strings.HasPrefix(target.App.EndpointURI, "cloud://"):
		app.Notifications.NotifyError(
			fmt.Sprintf("Cannot connect to %s", appDisplayName(target.App)),
			"Cloud apps cannot be proxied through a local connection.",
		)
		return nil

	case strings.HasPrefix(target.App.EndpointURI, "http://"),
		strings.HasPrefix(target.App.EndpointURI, "https://"):
		return openInBrowser(app, rootClusterURI, target.App, webAppLaunchURL(target.App), origin)
	}

	// TCP app.
	if app.Vnet != nil {
		return launchVnet(ctx, app, rootClusterURI, target.App, origin)
	}
	return openAppGateway(ctx, app, rootClusterURI, target.App, origin)
}

func appDisplayName(a clusters.App) string {
	if a.FriendlyName != "" {
		return a.FriendlyName
	}
	return a.Name
}

func awsConsoleURL(a clusters.App, roleARN string) string {
	q := url.Values{"aws_role": {roleARN}}
	return fmt.Sprintf("https://%s/web/launch/%s?%s", a.PublicAddr, url.PathEscape(a.Name), q.Encode())
}

func webAppLaunchURL(a clusters.App) string {
	return "https://" + a.PublicAddr
}

func openInBrowser(app *appctx.App, rootClusterURI uri.URI, target clusters.App, launchURL string, origin usage.Origin) error {
	if err := app.Browser.OpenExternal(launchURL); err != nil {
		return err
	}
	app.Usage.ReportAppOpen(usage.AppOpenEvent{
		RootClusterURI: rootClusterURI,
		AppURI:         target.URI,
		Origin:         origin,
	})
	return nil
}

func launchVnet(ctx context.Context, app *appctx.App, rootClusterURI uri.URI, target clusters.App, origin usage.Origin) error {
	addr, err := app.Vnet.Start(ctx, target.URI)
	if err != nil {
		return err
	}

	description := fmt.Sprintf("Connect to %s at %s.", appDisplayName(target), addr)
	if app.Clipboard != nil {
		if err := app.Clipboard.Copy(addr); err == nil {
			description = fmt.Sprintf("The address %s has been copied to the clipboard.", addr)
		}
	}
	app.Notifications.NotifyInfo(appDisplayName(target)+" is available through VNet", description)

	app.Usage.ReportConnect(usage.ConnectEvent{
		RootClusterURI: rootClusterURI,
		ResourceURI:    target.URI,
		ResourceKind:   "app",
		Origin:         origin,
	})
	return nil
}

func openAppGateway(ctx context.Context, app *appctx.App, rootClusterURI uri.URI, target clusters.App, origin usage.Origin) error {
	// A TCP app may declare an explicit port list; the first declared port
	// becomes the target sub-resource.
	var targetPort string
	if len(target.TCPPorts) > 0 {
		targetPort = strconv.Itoa(target.TCPPorts[0].Port)
	}

	docService := app.Workspaces.DocumentService(rootClusterURI)
	doc := docService.NewGatewayDocument(docs.GatewayDocumentParams{
		TargetURI:             target.URI,
		TargetName:            target.Name,
		TargetSubresourceName: targetPort,
		Origin:                string(origin),
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
		ResourceURI:    target.URI,
		ResourceKind:   "app",
		Origin:         origin,
	})
	return nil
}
