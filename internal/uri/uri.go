// Package uri implements the hierarchical identifiers used to address
// clusters and the resources inside them, plus the document and gateway
// namespaces. URIs are plain strings; equality is string equality.
package uri

import (
	"fmt"
	"regexp"
)

// URI identifies a cluster, a resource within a cluster, a document, or a
// gateway. The zero value is the empty (invalid) URI.
type URI string

func (u URI) String() string { return string(u) }

// Home is the well-known location activated when a workspace has no
// documents. It is a sentinel outside the document list, not a document.
const Home URI = "/docs/home"

// Params carries the named path segments for URI builders and the segments
// extracted by parse functions. A field is empty when the corresponding
// segment is absent.
type Params struct {
	RootClusterID string
	LeafClusterID string
	ServerID      string
	KubeID        string
	DbID          string
	AppID         string
	DesktopID     string
	DocID         string
	GatewayID     string
}

// clusterPrefix matches the cluster portion of any cluster or resource URI.
// The leaf pattern is tried before the root pattern so that a leaf URI is
// never mistaken for a root URI with extra segments.
var (
	reLeafCluster = regexp.MustCompile(`^/clusters/([^/]+)/leaves/([^/]+)`)
	reRootCluster = regexp.MustCompile(`^/clusters/([^/]+)`)

	reServer   = regexp.MustCompile(`^/clusters/([^/]+)(?:/leaves/([^/]+))?/servers/([^/]+)$`)
	reKube     = regexp.MustCompile(`^/clusters/([^/]+)(?:/leaves/([^/]+))?/kubes/([^/]+)$`)
	reDb       = regexp.MustCompile(`^/clusters/([^/]+)(?:/leaves/([^/]+))?/dbs/([^/]+)$`)
	reApp      = regexp.MustCompile(`^/clusters/([^/]+)(?:/leaves/([^/]+))?/apps/([^/]+)$`)
	reDesktop  = regexp.MustCompile(`^/clusters/([^/]+)(?:/leaves/([^/]+))?/windows_desktops/([^/]+)$`)
	reRootOnly = regexp.MustCompile(`^/clusters/([^/]+)$`)
	reLeafOnly = regexp.MustCompile(`^/clusters/([^/]+)/leaves/([^/]+)$`)
	reDoc      = regexp.MustCompile(`^/docs/([^/]+)$`)
	reGateway  = regexp.MustCompile(`^/gateways/([^/]+)$`)
)

// require panics with a descriptive message when a mandatory builder
// parameter is missing. Builders are only called by code that already holds
// valid parameters; a missing segment is a bug and is surfaced immediately.
func require(builder, field, value string) {
	if value == "" {
		panic(fmt.Sprintf("uri: %s requires %s", builder, field))
	}
}

func clusterPath(p Params) string {
	if p.LeafClusterID != "" {
		return fmt.Sprintf("/clusters/%s/leaves/%s", p.RootClusterID, p.LeafClusterID)
	}
	return fmt.Sprintf("/clusters/%s", p.RootClusterID)
}

// NewClusterURI builds a root or leaf cluster URI.
func NewClusterURI(p Params) URI {
	require("cluster URI", "rootClusterId", p.RootClusterID)
	return URI(clusterPath(p))
}

// NewServerURI builds a server URI under a root or leaf cluster.
func NewServerURI(p Params) URI {
	require("server URI", "rootClusterId", p.RootClusterID)
	require("server URI", "serverId", p.ServerID)
	return URI(clusterPath(p) + "/servers/" + p.ServerID)
}

// NewKubeURI builds a Kubernetes cluster URI.
func NewKubeURI(p Params) URI {
	require("kube URI", "rootClusterId", p.RootClusterID)
	require("kube URI", "kubeId", p.KubeID)
	return URI(clusterPath(p) + "/kubes/" + p.KubeID)
}

// NewDatabaseURI builds a database URI.
func NewDatabaseURI(p Params) URI {
	require("database URI", "rootClusterId", p.RootClusterID)
	require("database URI", "dbId", p.DbID)
	return URI(clusterPath(p) + "/dbs/" + p.DbID)
}

// NewAppURI builds an application URI.
func NewAppURI(p Params) URI {
	require("app URI", "rootClusterId", p.RootClusterID)
	require("app URI", "appId", p.AppID)
	return URI(clusterPath(p) + "/apps/" + p.AppID)
}

// NewDesktopURI builds a Windows desktop URI.
func NewDesktopURI(p Params) URI {
	require("desktop URI", "rootClusterId", p.RootClusterID)
	require("desktop URI", "desktopId", p.DesktopID)
	return URI(clusterPath(p) + "/windows_desktops/" + p.DesktopID)
}

// NewDocumentURI builds a document URI from an opaque document id.
func NewDocumentURI(p Params) URI {
	require("document URI", "docId", p.DocID)
	return URI("/docs/" + p.DocID)
}

// NewGatewayURI builds a gateway URI from an opaque gateway id.
func NewGatewayURI(p Params) URI {
	require("gateway URI", "gatewayId", p.GatewayID)
	return URI("/gateways/" + p.GatewayID)
}

// ParseCluster extracts the cluster segments from a cluster or resource URI.
// The leaf pattern is matched first, falling back to the root pattern.
// Returns ok=false for anything that does not start with a cluster path.
func ParseCluster(u URI) (Params, bool) {
	if m := reLeafCluster.FindStringSubmatch(string(u)); m != nil {
		return Params{RootClusterID: m[1], LeafClusterID: m[2]}, true
	}
	if m := reRootCluster.FindStringSubmatch(string(u)); m != nil {
		return Params{RootClusterID: m[1]}, true
	}
	return Params{}, false
}

// RootClusterURI re-serializes any cluster or resource URI as the URI of its
// root cluster. It returns an error when the input does not contain a
// cluster path at all.
func RootClusterURI(u URI) (URI, error) {
	p, ok := ParseCluster(u)
	if !ok {
		return "", fmt.Errorf("uri: %q does not contain a cluster path", u)
	}
	return NewClusterURI(Params{RootClusterID: p.RootClusterID}), nil
}

// ClusterURI is like RootClusterURI but preserves the leaf segment when the
// input addresses a resource inside a leaf cluster.
func ClusterURI(u URI) (URI, error) {
	p, ok := ParseCluster(u)
	if !ok {
		return "", fmt.Errorf("uri: %q does not contain a cluster path", u)
	}
	return NewClusterURI(p), nil
}

// BelongsToProfile reports whether both URIs resolve to the same root
// cluster. Unparseable inputs never belong to anything.
func BelongsToProfile(a, b URI) bool {
	pa, okA := ParseCluster(a)
	pb, okB := ParseCluster(b)
	return okA && okB && pa.RootClusterID == pb.RootClusterID
}

// Type-narrowing predicates. Each reports whether the URI matches the
// corresponding full pattern.

func IsRootCluster(u URI) bool { return reRootOnly.MatchString(string(u)) }
func IsLeafCluster(u URI) bool { return reLeafOnly.MatchString(string(u)) }
func IsCluster(u URI) bool     { return IsRootCluster(u) || IsLeafCluster(u) }
func IsServer(u URI) bool      { return reServer.MatchString(string(u)) }
func IsKube(u URI) bool        { return reKube.MatchString(string(u)) }
func IsDatabase(u URI) bool    { return reDb.MatchString(string(u)) }
func IsApp(u URI) bool         { return reApp.MatchString(string(u)) }
func IsDesktop(u URI) bool     { return reDesktop.MatchString(string(u)) }
func IsDocument(u URI) bool    { return reDoc.MatchString(string(u)) }
func IsGateway(u URI) bool     { return reGateway.MatchString(string(u)) }

// parseResource matches u against a resource pattern with groups
// (root, leaf?, id) and returns the cluster segments plus the resource id.
func parseResource(re *regexp.Regexp, u URI) (Params, string, bool) {
	m := re.FindStringSubmatch(string(u))
	if m == nil {
		return Params{}, "", false
	}
	return Params{RootClusterID: m[1], LeafClusterID: m[2]}, m[3], true
}

// ParseServer extracts the segments of a server URI.
func ParseServer(u URI) (Params, bool) {
	p, id, ok := parseResource(reServer, u)
	p.ServerID = id
	return p, ok
}

// ParseKube extracts the segments of a kube URI.
func ParseKube(u URI) (Params, bool) {
	p, id, ok := parseResource(reKube, u)
	p.KubeID = id
	return p, ok
}

// ParseDatabase extracts the segments of a database URI.
func ParseDatabase(u URI) (Params, bool) {
	p, id, ok := parseResource(reDb, u)
	p.DbID = id
	return p, ok
}

// ParseApp extracts the segments of an app URI.
func ParseApp(u URI) (Params, bool) {
	p, id, ok := parseResource(reApp, u)
	p.AppID = id
	return p, ok
}

// ParseDesktop extracts the segments of a Windows desktop URI.
func ParseDesktop(u URI) (Params, bool) {
	p, id, ok := parseResource(reDesktop, u)
	p.DesktopID = id
	return p, ok
}
