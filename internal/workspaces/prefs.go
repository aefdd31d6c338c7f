package workspaces

import (
	"context"
	"sync"

	"github.com/spirehq/spire/internal/clusters"
	"github.com/spirehq/spire/internal/uri"
)

// prefsPhase is the coordination state between the initial preference fetch
// and user-initiated updates. A user update arriving while the fetch is in
// flight supersedes it: the update wins for display, and the stale fetch
// result is discarded when it eventually resolves.
type prefsPhase int

const (
	prefsIdle prefsPhase = iota
	prefsFetching
	prefsSuperseded
	prefsSettled
)

// prefsCache holds one workspace's optimistic preference fallback.
type prefsCache struct {
	mu          sync.Mutex
	phase       prefsPhase
	current     clusters.UnifiedResourcePreferences
	haveCurrent bool
	cancelFetch context.CancelFunc
}

func newPrefsCache() *prefsCache {
	return &prefsCache{}
}

func (c *prefsCache) get() clusters.UnifiedResourcePreferences {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.haveCurrent {
		return clusters.DefaultUnifiedResourcePreferences()
	}
	return c.current
}

// UnifiedResourcePreferences returns the workspace's current preference
// view: the last applied value, or the defaults before anything resolved.
func (w *Workspace) UnifiedResourcePreferences() clusters.UnifiedResourcePreferences {
	return w.prefs.get()
}

// FetchUnifiedResourcePreferences loads the authoritative preferences from
// the backend and caches them, unless a user update superseded the fetch
// while it was in flight.
func (w *Workspace) FetchUnifiedResourcePreferences(ctx context.Context, client clusters.Client) error {
	c := w.prefs

	c.mu.Lock()
	fetchCtx, cancel := context.WithCancel(ctx)
	c.phase = prefsFetching
	c.cancelFetch = cancel
	c.mu.Unlock()
	defer cancel()

	prefs, err := client.GetUserPreferences(fetchCtx, w.rootClusterURI)

	c.mu.Lock()
	defer c.mu.Unlock()
	superseded := c.phase == prefsSuperseded
	c.phase = prefsSettled
	c.cancelFetch = nil
	if superseded {
		// The user's update already owns the display state; the stale
		// result (or its cancellation error) is dropped.
		return nil
	}
	if err != nil {
		return err
	}
	c.current = *prefs
	c.haveCurrent = true
	return nil
}

// UpdateUnifiedResourcePreferences applies a user-initiated preference
// change: optimistically for display, then authoritatively via the backend.
// An in-flight initial fetch is marked superseded and aborted so its stale
// result cannot overwrite the update.
func (w *Workspace) UpdateUnifiedResourcePreferences(ctx context.Context, client clusters.Client, prefs clusters.UnifiedResourcePreferences) error {
	c := w.prefs

	c.mu.Lock()
	if c.phase == prefsFetching {
		c.phase = prefsSuperseded
		if c.cancelFetch != nil {
			c.cancelFetch()
		}
	}
	c.current = prefs
	c.haveCurrent = true
	c.mu.Unlock()

	updated, err := client.UpdateUserPreferences(ctx, w.rootClusterURI, prefs)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = *updated
	c.haveCurrent = true
	if c.phase != prefsFetching {
		c.phase = prefsSettled
	}
	return nil
}

// UnifiedResourcePreferences returns the cached preference fallback for a
// workspace by root cluster.
func (s *Service) UnifiedResourcePreferences(rootClusterURI uri.URI) clusters.UnifiedResourcePreferences {
	return s.ensure(rootClusterURI).UnifiedResourcePreferences()
}
