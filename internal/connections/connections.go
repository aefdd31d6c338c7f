// Package connections defines the connection tracker contract: the external
// registry of currently-live gateway and session connections that connect
// flows consult for reuse.
package connections

import (
	"context"

	"github.com/spirehq/spire/internal/docs"
	"github.com/spirehq/spire/internal/usage"
)

// TrackedConnection is one connection known to the tracker. Online reports
// whether it is currently live; offline entries still carry state worth
// preserving, such as the kube config path a previous gateway wrote.
type TrackedConnection struct {
	ID                     string
	Online                 bool
	KubeConfigRelativePath string
}

// Tracker is the reuse/dedup surface the state core depends on. Matching is
// by document identity (target URI plus the disambiguating user field), not
// by gateway URI, which is assigned post-hoc and unstable across restarts.
type Tracker interface {
	// FindConnectionByDocument returns the live connection matching the
	// candidate document's identity, or nil.
	FindConnectionByDocument(doc docs.Document) *TrackedConnection
	// ActivateItem brings the tracked connection's tab to the front.
	ActivateItem(ctx context.Context, id string, origin usage.Origin) error
}

// NoTracker is a Tracker that knows of no connections. CLI invocations use
// it; without a daemon there is nothing to reuse.
type NoTracker struct{}

func (NoTracker) FindConnectionByDocument(docs.Document) *TrackedConnection { return nil }

func (NoTracker) ActivateItem(context.Context, string, usage.Origin) error { return nil }
