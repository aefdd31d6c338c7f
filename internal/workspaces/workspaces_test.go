package workspaces

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spirehq/spire/internal/clusters"
	"github.com/spirehq/spire/internal/docs"
	"github.com/spirehq/spire/internal/statefile"
	"github.com/spirehq/spire/internal/uri"
)

// fakeClient implements clusters.Client for registry tests.
type fakeClient struct {
	syncCalls   []uri.URI
	syncErr     error
	getPrefs    func(ctx context.Context, clusterURI uri.URI) (*clusters.UnifiedResourcePreferences, error)
	updatePrefs func(ctx context.Context, clusterURI uri.URI, prefs clusters.UnifiedResourcePreferences) (*clusters.UnifiedResourcePreferences, error)
}

func (f *fakeClient) SyncRootCluster(ctx context.Context, rootClusterURI uri.URI) error {
	f.syncCalls = append(f.syncCalls, rootClusterURI)
	return f.syncErr
}

func (f *fakeClient) GetCluster(ctx context.Context, clusterURI uri.URI) (*clusters.Cluster, error) {
	return &clusters.Cluster{URI: clusterURI, Connected: true}, nil
}

func (f *fakeClient) ListUnifiedResources(ctx context.Context, req clusters.ListUnifiedResourcesRequest) (*clusters.UnifiedResourcesPage, error) {
	return &clusters.UnifiedResourcesPage{}, nil
}

func (f *fakeClient) GetUserPreferences(ctx context.Context, clusterURI uri.URI) (*clusters.UnifiedResourcePreferences, error) {
	if f.getPrefs != nil {
		return f.getPrefs(ctx, clusterURI)
	}
	prefs := clusters.DefaultUnifiedResourcePreferences()
	return &prefs, nil
}

func (f *fakeClient) UpdateUserPreferences(ctx context.Context, clusterURI uri.URI, prefs clusters.UnifiedResourcePreferences) (*clusters.UnifiedResourcePreferences, error) {
	if f.updatePrefs != nil {
		return f.updatePrefs(ctx, clusterURI, prefs)
	}
	return &prefs, nil
}

func (f *fakeClient) GetDbUsers(ctx context.Context, dbURI uri.URI) ([]string, error) {
	return nil, nil
}

func (f *fakeClient) CreateAccessRequest(ctx context.Context, params clusters.CreateAccessRequestParams) (*clusters.AccessRequest, error) {
	return &clusters.AccessRequest{ID: "req-1", State: "pending"}, nil
}

func (f *fakeClient) GetRequestableRoles(ctx context.Context, rootClusterURI uri.URI) ([]string, error) {
	return nil, nil
}

func TestSetActiveWorkspaceIsIdempotent(t *testing.T) {
	client := &fakeClient{}
	s := NewService(client, nil)

	require.NoError(t, s.SetActiveWorkspace(context.Background(), "/clusters/east"))
	require.NoError(t, s.SetActiveWorkspace(context.Background(), "/clusters/east"))

	assert.Equal(t, uri.URI("/clusters/east"), s.RootClusterURI())
	assert.Len(t, client.syncCalls, 1, "profile sync runs only on actual switches")
}

func TestSetActiveWorkspaceRejectsNonRootURI(t *testing.T) {
	s := NewService(&fakeClient{}, nil)
	err := s.SetActiveWorkspace(context.Background(), "/clusters/east/leaves/edge")
	require.Error(t, err)
	err = s.SetActiveWorkspace(context.Background(), "/clusters/east/servers/node-1")
	require.Error(t, err)
}

func TestSetActiveWorkspaceSyncFailureLeavesActiveUnchanged(t *testing.T) {
	client := &fakeClient{}
	s := NewService(client, nil)
	require.NoError(t, s.SetActiveWorkspace(context.Background(), "/clusters/east"))

	client.syncErr = errors.New("profile load failed")
	err := s.SetActiveWorkspace(context.Background(), "/clusters/west")
	require.Error(t, err)
	assert.Equal(t, uri.URI("/clusters/east"), s.RootClusterURI())
	assert.Nil(t, s.Workspace("/clusters/west"), "failed activation must not leave a half-made workspace")
}

func TestSwitchingWorkspacesDoesNotTouchDocuments(t *testing.T) {
	client := &fakeClient{}
	s := NewService(client, nil)
	require.NoError(t, s.SetActiveWorkspace(context.Background(), "/clusters/east"))

	ds := s.DocumentService("/clusters/east")
	ds.Add(ds.NewClusterDocument(docs.ClusterDocumentParams{ClusterURI: "/clusters/east"}))
	before := ds.List()

	require.NoError(t, s.SetActiveWorkspace(context.Background(), "/clusters/west"))
	require.NoError(t, s.SetActiveWorkspace(context.Background(), "/clusters/east"))

	assert.Equal(t, before, s.DocumentService("/clusters/east").List())
	assert.Empty(t, s.DocumentService("/clusters/west").List())
}

func TestDocumentServiceIsStablePerRootCluster(t *testing.T) {
	s := NewService(&fakeClient{}, nil)
	a := s.DocumentService("/clusters/east")
	b := s.DocumentService("/clusters/east")
	c := s.DocumentService("/clusters/west")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestSetLocalClusterURI(t *testing.T) {
	s := NewService(&fakeClient{}, nil)
	require.NoError(t, s.SetActiveWorkspace(context.Background(), "/clusters/east"))
	w := s.Workspace("/clusters/east")
	require.NotNil(t, w)

	require.NoError(t, w.SetLocalClusterURI("/clusters/east/leaves/edge"))
	assert.Equal(t, uri.URI("/clusters/east/leaves/edge"), w.LocalClusterURI())

	require.Error(t, w.SetLocalClusterURI("/clusters/west"))
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	store, err := statefile.NewStore(t.TempDir())
	require.NoError(t, err)

	s := NewService(&fakeClient{}, store)
	require.NoError(t, s.SetActiveWorkspace(context.Background(), "/clusters/east"))
	ds := s.DocumentService("/clusters/east")
	cluster := ds.NewClusterDocument(docs.ClusterDocumentParams{ClusterURI: "/clusters/east"})
	node := ds.NewTshNodeDocument(docs.TshNodeDocumentParams{
		ServerURI: "/clusters/east/servers/node-1", Hostname: "node-1", Login: "alice",
	})
	ds.Add(cluster)
	ds.Add(node)
	ds.Open(node.URI)
	require.NoError(t, s.Save())

	restored := NewService(&fakeClient{}, store)
	require.NoError(t, restored.Restore())

	assert.Equal(t, uri.URI("/clusters/east"), restored.RootClusterURI())
	rds := restored.DocumentService("/clusters/east")
	require.Len(t, rds.List(), 2)
	assert.Equal(t, node.URI, rds.Location())
	assert.Equal(t, docs.Document(cluster), rds.Get(cluster.URI))
}

func TestPreferencesDefaultBeforeFetch(t *testing.T) {
	s := NewService(&fakeClient{}, nil)
	prefs := s.UnifiedResourcePreferences("/clusters/east")
	assert.Equal(t, clusters.DefaultUnifiedResourcePreferences(), prefs)
}

func TestFetchPreferencesAppliesResult(t *testing.T) {
	client := &fakeClient{
		getPrefs: func(ctx context.Context, clusterURI uri.URI) (*clusters.UnifiedResourcePreferences, error) {
			return &clusters.UnifiedResourcePreferences{
				ViewMode:       clusters.ViewModeList,
				DefaultTab:     clusters.DefaultTabPinned,
				LabelsViewMode: clusters.LabelsViewModeExpanded,
			}, nil
		},
	}
	s := NewService(client, nil)
	w := s.ensure("/clusters/east")

	require.NoError(t, w.FetchUnifiedResourcePreferences(context.Background(), client))
	assert.Equal(t, clusters.ViewModeList, w.UnifiedResourcePreferences().ViewMode)
}

func TestUpdateSupersedesInFlightFetch(t *testing.T) {
	fetchStarted := make(chan struct{})
	releaseFetch := make(chan struct{})
	var fetchCtxErr error

	client := &fakeClient{
		getPrefs: func(ctx context.Context, clusterURI uri.URI) (*clusters.UnifiedResourcePreferences, error) {
			close(fetchStarted)
			<-releaseFetch
			fetchCtxErr = ctx.Err()
			// Stale server state from before the user's update.
			return &clusters.UnifiedResourcePreferences{ViewMode: clusters.ViewModeCard}, nil
		},
	}
	s := NewService(client, nil)
	w := s.ensure("/clusters/east")

	fetchDone := make(chan error, 1)
	go func() {
		fetchDone <- w.FetchUnifiedResourcePreferences(context.Background(), client)
	}()
	<-fetchStarted

	update := clusters.UnifiedResourcePreferences{ViewMode: clusters.ViewModeList}
	require.NoError(t, w.UpdateUnifiedResourcePreferences(context.Background(), client, update))

	close(releaseFetch)
	select {
	case err := <-fetchDone:
		require.NoError(t, err, "a superseded fetch resolves quietly")
	case <-time.After(time.Second):
		t.Fatal("fetch did not resolve")
	}

	assert.Equal(t, clusters.ViewModeList, w.UnifiedResourcePreferences().ViewMode,
		"the user update wins over the stale fetch result")
	assert.Error(t, fetchCtxErr, "the superseded fetch's context is aborted")
}

func TestUpdateAppliesOptimisticallyBeforeServerResponds(t *testing.T) {
	applied := make(chan struct{})
	client := &fakeClient{
		updatePrefs: func(ctx context.Context, clusterURI uri.URI, prefs clusters.UnifiedResourcePreferences) (*clusters.UnifiedResourcePreferences, error) {
			<-applied
			return &prefs, nil
		},
	}
	s := NewService(client, nil)
	w := s.ensure("/clusters/east")

	done := make(chan error, 1)
	go func() {
		done <- w.UpdateUnifiedResourcePreferences(context.Background(), client,
			clusters.UnifiedResourcePreferences{ViewMode: clusters.ViewModeList})
	}()

	require.Eventually(t, func() bool {
		return w.UnifiedResourcePreferences().ViewMode == clusters.ViewModeList
	}, time.Second, 5*time.Millisecond, "display state updates before the server acks")

	close(applied)
	require.NoError(t, <-done)
}

func TestRemoveWorkspace(t *testing.T) {
	s := NewService(&fakeClient{}, nil)
	require.NoError(t, s.SetActiveWorkspace(context.Background(), "/clusters/east"))
	s.RemoveWorkspace("/clusters/east")
	assert.Empty(t, s.RootClusterURI())
	assert.Nil(t, s.Workspace("/clusters/east"))
}

func TestWatchExternalReloadsRewrittenState(t *testing.T) {
	dir := t.TempDir()
	writerStore, err := statefile.NewStore(dir)
	require.NoError(t, err)
	readerStore, err := statefile.NewStore(dir)
	require.NoError(t, err)

	writer := NewService(&fakeClient{}, writerStore)
	require.NoError(t, writer.SetActiveWorkspace(context.Background(), "/clusters/east"))

	reader := NewService(&fakeClient{}, readerStore)
	require.NoError(t, reader.Restore())
	require.Nil(t, reader.Workspace("/clusters/west"))

	reloaded := make(chan struct{}, 4)
	stop, err := reader.WatchExternal(func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer stop()

	require.NoError(t, writer.SetActiveWorkspace(context.Background(), "/clusters/west"))

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after the other process rewrote the state")
	}
	assert.NotNil(t, reader.Workspace("/clusters/west"))
	assert.Equal(t, uri.URI("/clusters/west"), reader.RootClusterURI())
}

func TestWatchExternalWithoutStoreIsNoOp(t *testing.T) {
	s := NewService(&fakeClient{}, nil)
	stop, err := s.WatchExternal(func() { t.Fatal("no store, no reloads") })
	require.NoError(t, err)
	stop()
}
