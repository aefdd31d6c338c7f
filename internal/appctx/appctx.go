// Package appctx composes the collaborators the state core operates on.
// Core functions take the App explicitly instead of resolving dependencies
// ambiently, which keeps them testable without any UI shell.
package appctx

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"

	"github.com/spirehq/spire/internal/clusters"
	"github.com/spirehq/spire/internal/config"
	"github.com/spirehq/spire/internal/connections"
	"github.com/spirehq/spire/internal/notify"
	"github.com/spirehq/spire/internal/resources"
	"github.com/spirehq/spire/internal/uri"
	"github.com/spirehq/spire/internal/usage"
	"github.com/spirehq/spire/internal/workspaces"
)

// BrowserOpener opens a URL in the user's default external browser.
type BrowserOpener interface {
	OpenExternal(url string) error
}

// VnetLauncher starts VNet for an app target and returns the address the
// user can reach it at. A nil launcher on the App means VNet is unavailable
// and TCP apps fall back to gateway documents.
type VnetLauncher interface {
	Start(ctx context.Context, appURI uri.URI) (address string, err error)
}

// Clipboard copies text for the user.
type Clipboard interface {
	Copy(text string) error
}

// SystemClipboard is the default Clipboard backed by the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Copy(text string) error {
	return clipboard.WriteAll(text)
}

// SystemBrowser opens URLs in the default browser via the platform launcher.
type SystemBrowser struct{}

func (SystemBrowser) OpenExternal(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return exec.Command(cmd, args...).Start() //nolint:gosec,noctx // G204: cmd is hardcoded per-platform; fire-and-forget
}

// App is the composed application context handed to connect orchestrators
// and other core entry points.
type App struct {
	Config        *config.Config // nil falls back to defaults where it matters
	Clusters      clusters.Client
	Workspaces    *workspaces.Service
	Connections   connections.Tracker
	Notifications *notify.Service
	Usage         usage.Reporter
	Resources     *resources.Refresher
	Browser       BrowserOpener
	Vnet          VnetLauncher // nil when VNet is unavailable
	Clipboard     Clipboard
}

type ctxKey struct{}

// WithApp returns a context carrying the app.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, ctxKey{}, app)
}

// FromContext retrieves the app from the context, or nil.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(ctxKey{}).(*App)
	return app
}
