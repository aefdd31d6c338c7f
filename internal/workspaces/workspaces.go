// Package workspaces maintains the registry of per-root-cluster workspaces:
// each connected root cluster owns a document service, an access request
// draft, and a cached view-preferences fallback. Exactly zero or one root
// cluster is active at a time; the choice is persisted across restarts.
package workspaces

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spirehq/spire/internal/accessrequests"
	"github.com/spirehq/spire/internal/clusters"
	"github.com/spirehq/spire/internal/docs"
	"github.com/spirehq/spire/internal/statefile"
	"github.com/spirehq/spire/internal/uri"
)

// Workspace is the state container for one connected root cluster.
type Workspace struct {
	rootClusterURI uri.URI
	documents      *docs.Service
	accessRequests *accessrequests.Service
	prefs          *prefsCache

	mu              sync.Mutex
	localClusterURI uri.URI
}

// RootClusterURI returns the root cluster this workspace belongs to.
func (w *Workspace) RootClusterURI() uri.URI { return w.rootClusterURI }

// Documents returns the workspace's document service.
func (w *Workspace) Documents() *docs.Service { return w.documents }

// AccessRequests returns the workspace's draft access request selection.
func (w *Workspace) AccessRequests() *accessrequests.Service { return w.accessRequests }

// LocalClusterURI returns the cluster currently browsed within this
// workspace, which may be a leaf of the root.
func (w *Workspace) LocalClusterURI() uri.URI {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.localClusterURI
}

// SetLocalClusterURI switches the browsed cluster. The URI must belong to
// the workspace's root cluster.
func (w *Workspace) SetLocalClusterURI(clusterURI uri.URI) error {
	if !uri.BelongsToProfile(w.rootClusterURI, clusterURI) {
		return fmt.Errorf("workspaces: cluster %s does not belong to %s", clusterURI, w.rootClusterURI)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.localClusterURI = clusterURI
	return nil
}

// Service is the process-wide workspace registry.
type Service struct {
	client clusters.Client
	store  *statefile.Store // optional
	log    *slog.Logger

	mu             sync.RWMutex
	workspaces     map[uri.URI]*Workspace
	rootClusterURI uri.URI // active workspace; empty when none
}

// NewService creates the registry. The statefile store may be nil, in which
// case state is kept in memory only.
func NewService(client clusters.Client, store *statefile.Store) *Service {
	return &Service{
		client:     client,
		store:      store,
		log:        slog.Default().With("component", "workspaces"),
		workspaces: make(map[uri.URI]*Workspace),
	}
}

func newWorkspace(rootClusterURI uri.URI) *Workspace {
	return &Workspace{
		rootClusterURI:  rootClusterURI,
		localClusterURI: rootClusterURI,
		documents:       docs.NewService(),
		accessRequests:  accessrequests.NewService(),
		prefs:           newPrefsCache(),
	}
}

// Workspace returns the workspace for a root cluster, or nil.
func (s *Service) Workspace(rootClusterURI uri.URI) *Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspaces[rootClusterURI]
}

// ensure returns the workspace for the root cluster, creating an empty one
// on first access. At most one workspace exists per root cluster.
func (s *Service) ensure(rootClusterURI uri.URI) *Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.workspaces[rootClusterURI]; ok {
		return w
	}
	w := newWorkspace(rootClusterURI)
	s.workspaces[rootClusterURI] = w
	return w
}

// DocumentService is the sole way other code reaches a workspace's document
// list.
func (s *Service) DocumentService(rootClusterURI uri.URI) *docs.Service {
	return s.ensure(rootClusterURI).Documents()
}

// AccessRequestsService returns a workspace's draft access request state.
func (s *Service) AccessRequestsService(rootClusterURI uri.URI) *accessrequests.Service {
	return s.ensure(rootClusterURI).AccessRequests()
}

// RootClusterURI returns the active workspace's root cluster, or empty.
func (s *Service) RootClusterURI() uri.URI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rootClusterURI
}

// ActiveWorkspace returns the active workspace, or nil.
func (s *Service) ActiveWorkspace() *Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rootClusterURI == "" {
		return nil
	}
	return s.workspaces[s.rootClusterURI]
}

// SetActiveWorkspace makes the given root cluster's workspace the active
// one, loading the cluster profile first when needed. It is idempotent and
// never touches another workspace's documents. The switch is persisted.
func (s *Service) SetActiveWorkspace(ctx context.Context, rootClusterURI uri.URI) error {
	if !uri.IsRootCluster(rootClusterURI) {
		return fmt.Errorf("workspaces: %s is not a root cluster URI", rootClusterURI)
	}
	if s.RootClusterURI() == rootClusterURI {
		return nil
	}

	// Activation may need the cluster profile; loading is async and may
	// fail (expired credentials), in which case the active workspace stays
	// unchanged and the error propagates for the relogin wrapper.
	if err := s.client.SyncRootCluster(ctx, rootClusterURI); err != nil {
		return err
	}

	s.ensure(rootClusterURI)
	s.mu.Lock()
	s.rootClusterURI = rootClusterURI
	s.mu.Unlock()

	s.log.Debug("switched active workspace", "rootClusterUri", rootClusterURI)
	return s.Save()
}

// Restore rebuilds the registry from the persisted state file. Called once
// at startup, before any workspace is used.
func (s *Service) Restore() error {
	if s.store == nil {
		return nil
	}
	state, err := s.store.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for rootURI, entry := range state.Workspaces {
		if _, ok := s.workspaces[rootURI]; ok {
			continue
		}
		w := newWorkspace(rootURI)
		if entry.LocalClusterURI != "" {
			w.localClusterURI = entry.LocalClusterURI
		}
		for _, d := range entry.Documents {
			w.documents.Add(d)
		}
		if entry.Location != "" {
			w.documents.Open(entry.Location)
		}
		s.workspaces[rootURI] = w
	}
	if state.RootClusterURI != "" {
		if _, ok := s.workspaces[state.RootClusterURI]; ok {
			s.rootClusterURI = state.RootClusterURI
		}
	}
	return nil
}

// Snapshot captures the registry as the persisted state shape.
func (s *Service) Snapshot() *statefile.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := statefile.State{
		RootClusterURI: s.rootClusterURI,
		Workspaces:     make(map[uri.URI]statefile.WorkspaceEntry, len(s.workspaces)),
	}
	for rootURI, w := range s.workspaces {
		state.Workspaces[rootURI] = statefile.WorkspaceEntry{
			Location:        w.documents.Location(),
			LocalClusterURI: w.LocalClusterURI(),
			Documents:       w.documents.List(),
		}
	}
	return &state
}

// Save writes the current registry to the state file. Documents are plain
// data, so the round-trip is lossless.
func (s *Service) Save() error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(s.Snapshot())
}

// WatchExternal reloads the registry when the state file is rewritten and
// then invokes onReload. Restore never overwrites a live workspace, so
// reacting to the registry's own saves is a harmless no-op; rewrites by a
// second process surface their new workspaces and active-root change.
func (s *Service) WatchExternal(onReload func()) (stop func(), err error) {
	if s.store == nil {
		return func() {}, nil
	}
	return s.store.Watch(func() {
		if err := s.Restore(); err != nil {
			s.log.Warn("failed to reload externally rewritten state", "error", err)
			return
		}
		onReload()
	})
}

// RemoveWorkspace drops a workspace, for example after the user logs out of
// the cluster. Removing the active workspace leaves no workspace active.
func (s *Service) RemoveWorkspace(rootClusterURI uri.URI) {
	s.mu.Lock()
	delete(s.workspaces, rootClusterURI)
	if s.rootClusterURI == rootClusterURI {
		s.rootClusterURI = ""
	}
	s.mu.Unlock()
	if err := s.Save(); err != nil {
		s.log.Warn("failed to persist workspace removal", "error", err)
	}
}
