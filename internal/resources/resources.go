// Package resources implements the refresh request bus that keeps open
// resource-browsing documents consistent after out-of-band events such as a
// newly enrolled agent or a granted access request.
package resources

import (
	"sync"

	"github.com/spirehq/spire/internal/uri"
)

// Refresher broadcasts refresh requests scoped by root cluster. Listeners
// registered for one root cluster are never invoked for another; the scoping
// is structural, not a naming convention.
type Refresher struct {
	mu        sync.Mutex
	nextID    int
	listeners map[uri.URI]map[int]func()
}

// NewRefresher returns an empty refresh bus.
func NewRefresher() *Refresher {
	return &Refresher{listeners: make(map[uri.URI]map[int]func())}
}

// RequestRefresh synchronously invokes every listener registered for the
// root cluster. It is fire-and-forget: it does not wait for the fetches the
// listeners kick off.
func (r *Refresher) RequestRefresh(rootClusterURI uri.URI) {
	r.mu.Lock()
	set := r.listeners[rootClusterURI]
	fns := make([]func(), 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// OnRefreshRequest registers a listener for one root cluster and returns its
// unsubscribe function. A document must unsubscribe on teardown so a stale
// refresh cannot trigger a fetch against a torn-down view.
func (r *Refresher) OnRefreshRequest(rootClusterURI uri.URI, listener func()) (cleanup func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	set := r.listeners[rootClusterURI]
	if set == nil {
		set = make(map[int]func())
		r.listeners[rootClusterURI] = set
	}
	set[id] = listener

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if set := r.listeners[rootClusterURI]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(r.listeners, rootClusterURI)
			}
		}
	}
}
