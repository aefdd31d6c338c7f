package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spirehq/spire/internal/appctx"
	"github.com/spirehq/spire/internal/auth"
	"github.com/spirehq/spire/internal/clusters"
	"github.com/spirehq/spire/internal/completion"
	"github.com/spirehq/spire/internal/config"
	"github.com/spirehq/spire/internal/connections"
	"github.com/spirehq/spire/internal/docs"
	"github.com/spirehq/spire/internal/notify"
	"github.com/spirehq/spire/internal/resources"
	"github.com/spirehq/spire/internal/statefile"
	"github.com/spirehq/spire/internal/uri"
	"github.com/spirehq/spire/internal/usage"
	"github.com/spirehq/spire/internal/workspaces"
)

// newCommandApp builds an app backed by a real state store in a temp dir,
// with credentials stored for the "east" cluster so workspace activation
// succeeds offline.
func newCommandApp(t *testing.T) (*appctx.App, string) {
	t.Helper()
	dir := t.TempDir()

	creds := auth.NewStore(dir, false)
	east := uri.NewClusterURI(uri.Params{RootClusterID: "east"})
	require.NoError(t, creds.Save(east, &auth.Credentials{User: "alice", SessionToken: "tok"}))

	store, err := statefile.NewStore(dir)
	require.NoError(t, err)

	ws := workspaces.NewService(clusters.NewOfflineClient(creds), store)
	require.NoError(t, ws.Restore())

	return &appctx.App{
		Clusters:      clusters.NewOfflineClient(creds),
		Workspaces:    ws,
		Connections:   connections.NoTracker{},
		Notifications: notify.NewService(),
		Usage:         usage.Discard{},
		Resources:     resources.NewRefresher(),
		Browser:       appctx.SystemBrowser{},
		Clipboard:     appctx.SystemClipboard{},
	}, dir
}

func runCommand(t *testing.T, cmd *cobra.Command, app *appctx.App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(appctx.WithApp(context.Background(), app))
	return out.String(), err
}

func TestOpenServerPersistsDocument(t *testing.T) {
	app, dir := newCommandApp(t)

	out, err := runCommand(t, NewOpenCmd(nil), app, "/clusters/east/servers/node-1", "--login", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "opened /clusters/east/servers/node-1")

	// A fresh store sees the saved document and active workspace.
	store, err := statefile.NewStore(dir)
	require.NoError(t, err)
	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, uri.URI("/clusters/east"), state.RootClusterURI)
	entry := state.Workspaces["/clusters/east"]
	require.Len(t, entry.Documents, 1)
	node := entry.Documents[0].(*docs.TshNode)
	assert.Equal(t, "alice", node.Login)
	assert.Equal(t, entry.Location, node.URI)
}

func TestOpenWithoutCredentialsFails(t *testing.T) {
	app, _ := newCommandApp(t)

	_, err := runCommand(t, NewOpenCmd(nil), app, "/clusters/west/servers/node-9")
	require.Error(t, err)
	assert.True(t, clusters.IsReloginRequired(err))
}

func TestOpenRejectsUnparsableURI(t *testing.T) {
	app, _ := newCommandApp(t)

	_, err := runCommand(t, NewOpenCmd(nil), app, "/gateways/gw-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot open")
}

func TestStatePrintsJSON(t *testing.T) {
	app, _ := newCommandApp(t)
	_, err := runCommand(t, NewOpenCmd(nil), app, "/clusters/east/servers/node-1", "--login", "alice")
	require.NoError(t, err)

	out, err := runCommand(t, NewStateCmd(), app)
	require.NoError(t, err)
	assert.Contains(t, out, `"rootClusterUri": "/clusters/east"`)
}

func TestStateJQFilter(t *testing.T) {
	app, _ := newCommandApp(t)
	_, err := runCommand(t, NewOpenCmd(nil), app, "/clusters/east/servers/node-1", "--login", "alice")
	require.NoError(t, err)

	out, err := runCommand(t, NewStateCmd(), app, "--jq", ".rootClusterUri")
	require.NoError(t, err)
	assert.Equal(t, "\"/clusters/east\"\n", out)
}

func TestStateRendersYAMLWhenConfigured(t *testing.T) {
	app, _ := newCommandApp(t)
	app.Config = &config.Config{Format: "yaml"}
	_, err := runCommand(t, NewOpenCmd(nil), app, "/clusters/east/servers/node-1", "--login", "alice")
	require.NoError(t, err)

	out, err := runCommand(t, NewStateCmd(), app)
	require.NoError(t, err)
	assert.Contains(t, out, "rootClusterUri: /clusters/east")
	assert.NotContains(t, out, `"rootClusterUri"`)
}

func TestStateRejectsUnknownFormat(t *testing.T) {
	app, _ := newCommandApp(t)
	app.Config = &config.Config{Format: "xml"}

	_, err := runCommand(t, NewStateCmd(), app)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestOpenCompletionUsesSharedCompleter(t *testing.T) {
	app, dir := newCommandApp(t)
	_, err := runCommand(t, NewOpenCmd(nil), app, "/clusters/east/servers/node-1", "--login", "alice")
	require.NoError(t, err)

	completer := completion.NewCompleter(func(*cobra.Command) string { return dir })
	cmd := NewOpenCmd(completer)
	suggestions, directive := cmd.ValidArgsFunction(cmd, nil, "/clusters/east/servers/")
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
	assert.Equal(t, []string{"/clusters/east/servers/node-1"}, suggestions)
}

func TestStateJQRejectsBadExpression(t *testing.T) {
	app, _ := newCommandApp(t)

	_, err := runCommand(t, NewStateCmd(), app, "--jq", ".[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing jq expression")
}

func TestDeepLinkPrintsParsedLink(t *testing.T) {
	out, err := runCommand(t, NewDeepLinkCmd(), nil,
		"spire://alice@proxy.example.com:443/authenticate_web_device?id=42&token=secret")
	require.NoError(t, err)
	assert.Contains(t, out, `"/authenticate_web_device"`)
	assert.Contains(t, out, `"42"`)
}

func TestDeepLinkReportsErrorReason(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		reason string
	}{
		{"unknown protocol", "https://proxy.example.com/connect_my_computer", "unknown-protocol"},
		{"unsupported path", "spire://proxy.example.com/clusters/foo", "unsupported-url"},
		{"missing token", "spire://proxy.example.com/authenticate_web_device?id=42", "malformed-url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, NewDeepLinkCmd(), nil, tt.url)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestVersionPrints(t *testing.T) {
	out, err := runCommand(t, NewVersionCmd(), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "spire version")
}
