// Package usage defines the telemetry events emitted by connect flows and
// the reporter contract they are delivered through. The transport is out of
// scope; the default reporter drops events.
package usage

import "github.com/spirehq/spire/internal/uri"

// Origin tags which UI affordance triggered a connect action.
type Origin string

const (
	OriginResourceTable   Origin = "resource_table"
	OriginSearchBar       Origin = "search_bar"
	OriginConnectionList  Origin = "connection_list"
	OriginReopenedSession Origin = "reopened_session"
)

// ConnectEvent records a connect action against a resource.
type ConnectEvent struct {
	RootClusterURI uri.URI
	ResourceURI    uri.URI
	ResourceKind   string
	Origin         Origin
}

// AppOpenEvent records an app launched in the external browser. Browser
// launches bypass the instrumentation that fires on in-app anchor clicks, so
// every browser-open path reports this event explicitly.
type AppOpenEvent struct {
	RootClusterURI uri.URI
	AppURI         uri.URI
	Origin         Origin
}

// Reporter delivers usage events.
type Reporter interface {
	ReportConnect(ConnectEvent)
	ReportAppOpen(AppOpenEvent)
}

// Discard is a Reporter that drops all events.
type Discard struct{}

func (Discard) ReportConnect(ConnectEvent) {}
func (Discard) ReportAppOpen(AppOpenEvent) {}

// Recorder is a Reporter that retains events, for tests.
type Recorder struct {
	Connects []ConnectEvent
	AppOpens []AppOpenEvent
}

func (r *Recorder) ReportConnect(e ConnectEvent) { r.Connects = append(r.Connects, e) }
func (r *Recorder) ReportAppOpen(e AppOpenEvent) { r.AppOpens = append(r.AppOpens, e) }
