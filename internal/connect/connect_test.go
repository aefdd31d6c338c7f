package connect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spirehq/spire/internal/appctx"
	"github.com/spirehq/spire/internal/clusters"
	"github.com/spirehq/spire/internal/connections"
	"github.com/spirehq/spire/internal/docs"
	"github.com/spirehq/spire/internal/notify"
	"github.com/spirehq/spire/internal/resources"
	"github.com/spirehq/spire/internal/uri"
	"github.com/spirehq/spire/internal/usage"
	"github.com/spirehq/spire/internal/workspaces"
)

// stubClient satisfies clusters.Client; only SyncRootCluster is exercised
// by these tests.
type stubClient struct{ clusters.Client }

func (stubClient) SyncRootCluster(ctx context.Context, rootClusterURI uri.URI) error { return nil }

type fakeTracker struct {
	match     func(docs.Document) *connections.TrackedConnection
	activated []string
}

func (f *fakeTracker) FindConnectionByDocument(doc docs.Document) *connections.TrackedConnection {
	if f.match == nil {
		return nil
	}
	return f.match(doc)
}

func (f *fakeTracker) ActivateItem(ctx context.Context, id string, origin usage.Origin) error {
	f.activated = append(f.activated, id)
	return nil
}

type fakeBrowser struct {
	opened []string
}

func (f *fakeBrowser) OpenExternal(url string) error {
	f.opened = append(f.opened, url)
	return nil
}

type fakeVnet struct {
	addr    string
	started []uri.URI
}

func (f *fakeVnet) Start(ctx context.Context, appURI uri.URI) (string, error) {
	f.started = append(f.started, appURI)
	return f.addr, nil
}

type fakeClipboard struct {
	copied []string
}

func (f *fakeClipboard) Copy(text string) error {
	f.copied = append(f.copied, text)
	return nil
}

type testEnv struct {
	app     *appctx.App
	tracker *fakeTracker
	browser *fakeBrowser
	usage   *usage.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tracker := &fakeTracker{}
	browser := &fakeBrowser{}
	recorder := &usage.Recorder{}
	return &testEnv{
		app: &appctx.App{
			Clusters:      stubClient{},
			Workspaces:    workspaces.NewService(stubClient{}, nil),
			Connections:   tracker,
			Notifications: notify.NewService(),
			Usage:         recorder,
			Resources:     resources.NewRefresher(),
			Browser:       browser,
		},
		tracker: tracker,
		browser: browser,
		usage:   recorder,
	}
}

func TestServerOpensDocumentAndSwitchesWorkspace(t *testing.T) {
	env := newTestEnv(t)
	target := ServerTarget{ServerURI: "/clusters/east/servers/node-1", Hostname: "node-1", Login: "alice"}

	require.NoError(t, Server(context.Background(), env.app, target, usage.OriginResourceTable))

	assert.Equal(t, uri.URI("/clusters/east"), env.app.Workspaces.RootClusterURI())
	ds := env.app.Workspaces.DocumentService("/clusters/east")
	list := ds.List()
	require.Len(t, list, 1)
	node := list[0].(*docs.TshNode)
	assert.Equal(t, uri.URI("/clusters/east/servers/node-1"), node.ServerURI)
	assert.Equal(t, "alice", node.Login)
	assert.True(t, ds.IsActive(node.URI))

	require.Len(t, env.usage.Connects, 1)
	assert.Equal(t, usage.OriginResourceTable, env.usage.Connects[0].Origin)
}

func TestServerReusesLiveConnection(t *testing.T) {
	env := newTestEnv(t)
	target := ServerTarget{ServerURI: "/clusters/east/servers/node-1", Hostname: "node-1", Login: "alice"}
	require.NoError(t, Server(context.Background(), env.app, target, usage.OriginResourceTable))

	// The tracker now reports a live connection for the same server+login.
	env.tracker.match = func(d docs.Document) *connections.TrackedConnection {
		node, ok := d.(*docs.TshNode)
		if ok && node.ServerURI == target.ServerURI && node.Login == "alice" {
			return &connections.TrackedConnection{ID: "conn-1", Online: true}
		}
		return nil
	}

	require.NoError(t, Server(context.Background(), env.app, target, usage.OriginSearchBar))

	assert.Len(t, env.app.Workspaces.DocumentService("/clusters/east").List(), 1,
		"a second connect to the same target must not add a second document")
	assert.Equal(t, []string{"conn-1"}, env.tracker.activated)
}

func TestDatabaseRedisDefaultsEmptyUser(t *testing.T) {
	env := newTestEnv(t)
	target := DatabaseTarget{DatabaseURI: "/clusters/east/dbs/cache", Name: "cache", Protocol: "redis"}
	require.NoError(t, Database(context.Background(), env.app, target, usage.OriginSearchBar))

	gws := env.app.Workspaces.DocumentService("/clusters/east").GatewayDocuments()
	require.Len(t, gws, 1)
	assert.Equal(t, "default", gws[0].TargetUser)
}

func TestDatabaseOtherProtocolKeepsEmptyUser(t *testing.T) {
	env := newTestEnv(t)
	target := DatabaseTarget{DatabaseURI: "/clusters/east/dbs/pg", Name: "pg", Protocol: "postgres"}
	require.NoError(t, Database(context.Background(), env.app, target, usage.OriginSearchBar))

	gws := env.app.Workspaces.DocumentService("/clusters/east").GatewayDocuments()
	require.Len(t, gws, 1)
	assert.Empty(t, gws[0].TargetUser)
}

func TestDatabaseReuseMatchesTargetAndUser(t *testing.T) {
	env := newTestEnv(t)
	target := DatabaseTarget{DatabaseURI: "/clusters/east/dbs/pg", Name: "pg", Protocol: "postgres", DbUser: "alice"}
	require.NoError(t, Database(context.Background(), env.app, target, usage.OriginResourceTable))

	env.tracker.match = func(d docs.Document) *connections.TrackedConnection {
		gw, ok := d.(*docs.Gateway)
		if ok && gw.TargetURI == target.DatabaseURI && gw.TargetUser == "alice" {
			return &connections.TrackedConnection{ID: "conn-db", Online: true}
		}
		return nil
	}
	require.NoError(t, Database(context.Background(), env.app, target, usage.OriginConnectionList))

	assert.Len(t, env.app.Workspaces.DocumentService("/clusters/east").GatewayDocuments(), 1)
	assert.Equal(t, []string{"conn-db"}, env.tracker.activated)
}

func TestKubePreservesKubeConfigPathFromOfflineConnection(t *testing.T) {
	env := newTestEnv(t)
	env.tracker.match = func(d docs.Document) *connections.TrackedConnection {
		if _, ok := d.(*docs.GatewayKube); ok {
			return &connections.TrackedConnection{
				ID:                     "conn-kube",
				Online:                 false,
				KubeConfigRelativePath: "kube/east-staging",
			}
		}
		return nil
	}

	require.NoError(t, Kube(context.Background(), env.app, KubeTarget{KubeURI: "/clusters/east/kubes/staging"}, usage.OriginReopenedSession))

	list := env.app.Workspaces.DocumentService("/clusters/east").List()
	require.Len(t, list, 1)
	kube := list[0].(*docs.GatewayKube)
	assert.Equal(t, "kube/east-staging", kube.KubeConfigRelativePath,
		"the path recorded by the previous connection wins over the empty default")
	assert.Empty(t, env.tracker.activated, "an offline connection is not re-activated")
}

func TestKubeReusesLiveConnection(t *testing.T) {
	env := newTestEnv(t)
	env.tracker.match = func(d docs.Document) *connections.TrackedConnection {
		if kube, ok := d.(*docs.GatewayKube); ok && kube.TargetURI == "/clusters/east/kubes/staging" {
			return &connections.TrackedConnection{ID: "conn-kube", Online: true}
		}
		return nil
	}

	require.NoError(t, Kube(context.Background(), env.app, KubeTarget{KubeURI: "/clusters/east/kubes/staging"}, usage.OriginSearchBar))

	assert.Empty(t, env.app.Workspaces.DocumentService("/clusters/east").List())
	assert.Equal(t, []string{"conn-kube"}, env.tracker.activated)
}

func TestWindowsDesktopReactivatesInsteadOfDuplicating(t *testing.T) {
	env := newTestEnv(t)
	target := DesktopTarget{DesktopURI: "/clusters/east/windows_desktops/win-1", Login: "admin"}

	require.NoError(t, WindowsDesktop(context.Background(), env.app, target, usage.OriginResourceTable))
	require.NoError(t, WindowsDesktop(context.Background(), env.app, target, usage.OriginResourceTable))

	ds := env.app.Workspaces.DocumentService("/clusters/east")
	require.Len(t, ds.List(), 1)

	// A different login for the same desktop is a separate session.
	other := DesktopTarget{DesktopURI: target.DesktopURI, Login: "operator"}
	require.NoError(t, WindowsDesktop(context.Background(), env.app, other, usage.OriginResourceTable))
	assert.Len(t, ds.List(), 2)
}
