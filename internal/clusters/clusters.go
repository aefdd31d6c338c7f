// Package clusters defines the contract with the backend daemon: the typed
// shapes of clusters and their resources, and the narrow client interface
// the state core calls. The daemon itself and its wire format live outside
// this repository.
package clusters

import (
	"context"
	"errors"
	"fmt"

	"github.com/spirehq/spire/internal/uri"
)

// Cluster describes a root or leaf cluster known to the daemon.
type Cluster struct {
	URI       uri.URI
	Name      string
	Connected bool
	// ProfileLoaded reports whether the full profile (auth settings, user)
	// has been fetched for this cluster.
	ProfileLoaded bool
}

// Server is an SSH-reachable node.
type Server struct {
	URI      uri.URI
	Hostname string
	Logins   []string
}

// Kube is a Kubernetes cluster resource.
type Kube struct {
	URI  uri.URI
	Name string
}

// Database is a database resource.
type Database struct {
	URI      uri.URI
	Name     string
	Protocol string
}

// Desktop is a Windows desktop resource.
type Desktop struct {
	URI    uri.URI
	Name   string
	Logins []string
}

// AppTCPPort is one port or port range a TCP app declares.
type AppTCPPort struct {
	Port    int
	EndPort int
}

// App is an application resource. The endpoint URI scheme classifies it:
// tcp:// apps get local gateways, cloud:// apps cannot be proxied, and
// http(s):// apps open in the browser.
type App struct {
	URI          uri.URI
	Name         string
	EndpointURI  string
	PublicAddr   string
	FriendlyName string

	SAMLApp    bool
	SAMLSsoURL string

	AWSConsole bool
	AWSRoles   []AWSRole

	TCPPorts []AppTCPPort
}

// AWSRole is a role the user may assume when launching an AWS console app.
type AWSRole struct {
	Name string
	ARN  string
}

// Gateway mirrors a live local proxy owned by the daemon.
type Gateway struct {
	URI                   uri.URI
	TargetURI             uri.URI
	TargetUser            string
	TargetSubresourceName string
	LocalAddress          string
	LocalPort             string
}

// ListUnifiedResourcesRequest pages through a cluster's resources.
type ListUnifiedResourcesRequest struct {
	ClusterURI     uri.URI
	Search         string
	Kinds          []string
	PinnedOnly     bool
	Limit          int
	StartKey       string
	SortBy         string
	SortDescending bool
}

// UnifiedResource is one element of a unified resource listing; exactly one
// of the typed fields is set.
type UnifiedResource struct {
	Server   *Server
	Kube     *Kube
	Database *Database
	App      *App
	Desktop  *Desktop
}

// UnifiedResourcesPage is one page of results with the pagination cursor.
type UnifiedResourcesPage struct {
	Resources []UnifiedResource
	NextKey   string
}

// ViewMode selects how unified resources are rendered.
type ViewMode string

const (
	ViewModeCard ViewMode = "card"
	ViewModeList ViewMode = "list"
)

// DefaultTab selects which unified resource tab opens first.
type DefaultTab string

const (
	DefaultTabAll    DefaultTab = "all"
	DefaultTabPinned DefaultTab = "pinned"
)

// LabelsViewMode selects whether resource labels start expanded.
type LabelsViewMode string

const (
	LabelsViewModeCollapsed LabelsViewMode = "collapsed"
	LabelsViewModeExpanded  LabelsViewMode = "expanded"
)

// UnifiedResourcePreferences are the per-user view preferences the backend
// stores and the workspace caches as an optimistic local fallback.
type UnifiedResourcePreferences struct {
	ViewMode        ViewMode
	DefaultTab      DefaultTab
	LabelsViewMode  LabelsViewMode
	PinnedResources []uri.URI
}

// DefaultUnifiedResourcePreferences is the fallback used before the first
// successful preference fetch.
func DefaultUnifiedResourcePreferences() UnifiedResourcePreferences {
	return UnifiedResourcePreferences{
		ViewMode:       ViewModeCard,
		DefaultTab:     DefaultTabAll,
		LabelsViewMode: LabelsViewModeCollapsed,
	}
}

// CreateAccessRequestParams carries a draft access request.
type CreateAccessRequestParams struct {
	RootClusterURI uri.URI
	Reason         string
	Roles          []string
	ResourceURIs   []uri.URI
}

// AccessRequest is a created access request.
type AccessRequest struct {
	ID    string
	State string
}

// Client is the backend daemon RPC surface the state core depends on. Every
// call takes a context so an outer retry-with-relogin wrapper can abort or
// reissue it.
type Client interface {
	// SyncRootCluster loads the cluster profile if it is not loaded yet.
	// Idempotent; called during workspace activation.
	SyncRootCluster(ctx context.Context, rootClusterURI uri.URI) error
	GetCluster(ctx context.Context, clusterURI uri.URI) (*Cluster, error)

	ListUnifiedResources(ctx context.Context, req ListUnifiedResourcesRequest) (*UnifiedResourcesPage, error)

	GetUserPreferences(ctx context.Context, clusterURI uri.URI) (*UnifiedResourcePreferences, error)
	UpdateUserPreferences(ctx context.Context, clusterURI uri.URI, prefs UnifiedResourcePreferences) (*UnifiedResourcePreferences, error)

	GetDbUsers(ctx context.Context, dbURI uri.URI) ([]string, error)
	CreateAccessRequest(ctx context.Context, params CreateAccessRequestParams) (*AccessRequest, error)
	GetRequestableRoles(ctx context.Context, rootClusterURI uri.URI) ([]string, error)
}

// ReloginRequiredError marks a backend error caused by expired credentials.
// The retry-with-relogin wrapper (outside this core) matches it with
// errors.As and reissues the call after interactive login.
type ReloginRequiredError struct {
	ClusterURI uri.URI
	Err        error
}

func (e *ReloginRequiredError) Error() string {
	return fmt.Sprintf("cluster %s requires relogin: %v", e.ClusterURI, e.Err)
}

func (e *ReloginRequiredError) Unwrap() error { return e.Err }

// IsReloginRequired reports whether err carries a ReloginRequiredError.
func IsReloginRequired(err error) bool {
	var relogin *ReloginRequiredError
	return errors.As(err, &relogin)
}
