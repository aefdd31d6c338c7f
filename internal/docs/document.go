// Package docs implements the per-workspace document (tab) model: a closed
// set of document variants plus the service that owns one workspace's
// ordered document list and active location.
package docs

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spirehq/spire/internal/uri"
)

// Kind discriminates document variants. It is stored on every document and
// round-trips through serialization.
type Kind string

const (
	KindBlank               Kind = "doc.blank"
	KindCluster             Kind = "doc.cluster"
	KindTerminalShell       Kind = "doc.terminal_shell"
	KindTshNode             Kind = "doc.terminal_tsh_node"
	KindKubeExec            Kind = "doc.kube_exec"
	KindGateway             Kind = "doc.gateway"
	KindGatewayCLIClient    Kind = "doc.gateway_cli_client"
	KindGatewayKube         Kind = "doc.gateway_kube"
	KindAccessRequests      Kind = "doc.access_requests"
	KindConnectMyComputer   Kind = "doc.connect_my_computer"
	KindAuthorizeWebSession Kind = "doc.authorize_web_session"
	KindDesktopSession      Kind = "doc.desktop_session"
	KindVnetDiag            Kind = "doc.vnet_diag"
	KindVnetInfo            Kind = "doc.vnet_info"
)

// Status tracks the lifecycle of documents that represent live sessions.
type Status string

const (
	StatusNone       Status = ""
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusError      Status = "error"
)

// Base holds the fields common to every document. The document's own URI is
// its identity key; Kind is the variant discriminant.
type Base struct {
	URI   uri.URI `json:"uri"`
	Title string  `json:"title"`
	Kind  Kind    `json:"kind"`
}

// Document is the sealed document union. Every variant embeds Base and
// implements clone, which keeps the set closed and gives the service a
// single copy point for copy-on-write updates.
type Document interface {
	Common() *Base
	clone() Document
}

func (b *Base) Common() *Base { return b }

// Blank is the transient placeholder synthesized when an unknown URI is
// opened.
type Blank struct {
	Base
}

func (d *Blank) clone() Document { c := *d; return &c }

// Cluster is a resource browser bound to a (root or leaf) cluster.
type Cluster struct {
	Base
	ClusterURI uri.URI `json:"clusterUri"`
}

func (d *Cluster) clone() Document { c := *d; return &c }

// TerminalShell is a local PTY session.
type TerminalShell struct {
	Base
	Cwd            string  `json:"cwd,omitempty"`
	RootClusterURI uri.URI `json:"rootClusterUri"`
}

func (d *TerminalShell) clone() Document { c := *d; return &c }

// TshNode is an SSH session bound to a resolved server. The legacy
// pending-resolution form is TshNodeWithLoginHost.
type TshNode struct {
	Base
	Status    Status  `json:"status,omitempty"`
	ServerURI uri.URI `json:"serverUri"`
	ServerID  string  `json:"serverId"`
	Login     string  `json:"login"`
	Origin    string  `json:"origin,omitempty"`
}

func (d *TshNode) clone() Document { c := *d; return &c }

// TshNodeWithLoginHost is an SSH session addressed as "login@host" before
// the host has been resolved to a server id. It shares KindTshNode with
// TshNode and is told apart by the presence of LoginHost.
type TshNodeWithLoginHost struct {
	Base
	Status     Status  `json:"status,omitempty"`
	ClusterURI uri.URI `json:"clusterUri"`
	LoginHost  string  `json:"loginHost"`
	Origin     string  `json:"origin,omitempty"`
}

func (d *TshNodeWithLoginHost) clone() Document { c := *d; return &c }

// KubeExec is an exec session into a pod container.
type KubeExec struct {
	Base
	Status    Status  `json:"status,omitempty"`
	KubeURI   uri.URI `json:"kubeUri"`
	Namespace string  `json:"namespace,omitempty"`
	Pod       string  `json:"pod,omitempty"`
	Container string  `json:"container,omitempty"`
}

func (d *KubeExec) clone() Document { c := *d; return &c }

// Gateway is a local proxy for a database or TCP app target. GatewayURI is
// populated only once the backend has actually established the gateway, so
// reuse matching goes through (TargetURI, TargetUser), never GatewayURI.
type Gateway struct {
	Base
	Status                Status  `json:"status,omitempty"`
	TargetURI             uri.URI `json:"targetUri"`
	TargetUser            string  `json:"targetUser,omitempty"`
	TargetName            string  `json:"targetName"`
	TargetSubresourceName string  `json:"targetSubresourceName,omitempty"`
	GatewayURI            uri.URI `json:"gatewayUri,omitempty"`
	Port                  string  `json:"port,omitempty"`
	Origin                string  `json:"origin,omitempty"`
}

func (d *Gateway) clone() Document { c := *d; return &c }

// GatewayCLIClient is a terminal running a CLI client (psql, redis-cli, ...)
// attached to a gateway.
type GatewayCLIClient struct {
	Base
	Status         Status  `json:"status,omitempty"`
	RootClusterURI uri.URI `json:"rootClusterUri"`
	TargetURI      uri.URI `json:"targetUri"`
	TargetUser     string  `json:"targetUser,omitempty"`
	TargetName     string  `json:"targetName"`
	TargetProtocol string  `json:"targetProtocol"`
}

func (d *GatewayCLIClient) clone() Document { c := *d; return &c }

// GatewayKube is a gateway for a Kubernetes cluster target. The kube config
// path is written once the gateway is up and survives reconnects.
type GatewayKube struct {
	Base
	Status                 Status  `json:"status,omitempty"`
	TargetURI              uri.URI `json:"targetUri"`
	GatewayURI             uri.URI `json:"gatewayUri,omitempty"`
	KubeConfigRelativePath string  `json:"kubeConfigRelativePath,omitempty"`
	Origin                 string  `json:"origin,omitempty"`
}

func (d *GatewayKube) clone() Document { c := *d; return &c }

// AccessRequests is the access request browser for a cluster.
type AccessRequests struct {
	Base
	ClusterURI uri.URI `json:"clusterUri"`
	RequestID  string  `json:"requestId,omitempty"`
}

func (d *AccessRequests) clone() Document { c := *d; return &c }

// ConnectMyComputer is the local agent enrollment setup flow.
type ConnectMyComputer struct {
	Base
	RootClusterURI uri.URI `json:"rootClusterUri"`
}

func (d *ConnectMyComputer) clone() Document { c := *d; return &c }

// WebSessionRequest carries the parameters of a pending web session
// authorization.
type WebSessionRequest struct {
	ID          string `json:"id"`
	Token       string `json:"token"`
	RedirectURI string `json:"redirectUri,omitempty"`
}

// AuthorizeWebSession asks the user to approve a browser session.
type AuthorizeWebSession struct {
	Base
	RootClusterURI uri.URI           `json:"rootClusterUri"`
	WebSessionReq  WebSessionRequest `json:"webSessionRequest"`
}

func (d *AuthorizeWebSession) clone() Document { c := *d; return &c }

// DesktopSession is a remote Windows desktop session.
type DesktopSession struct {
	Base
	Status     Status  `json:"status,omitempty"`
	DesktopURI uri.URI `json:"desktopUri"`
	Login      string  `json:"login"`
	Origin     string  `json:"origin,omitempty"`
}

func (d *DesktopSession) clone() Document { c := *d; return &c }

// VnetDiag shows VNet diagnostics for a root cluster.
type VnetDiag struct {
	Base
	RootClusterURI uri.URI `json:"rootClusterUri"`
}

func (d *VnetDiag) clone() Document { c := *d; return &c }

// VnetInfo is the VNet informational panel.
type VnetInfo struct {
	Base
	RootClusterURI uri.URI `json:"rootClusterUri"`
}

func (d *VnetInfo) clone() Document { c := *d; return &c }

// freshURI returns a new globally-unique document URI.
func freshURI() uri.URI {
	return uri.NewDocumentURI(uri.Params{DocID: uuid.NewString()})
}

// ResourceURI returns the remote resource a document is bound to, or the
// empty URI for documents without one. This is the single dispatch point
// over all variants; an unhandled variant is a bug.
func ResourceURI(d Document) uri.URI {
	switch d := d.(type) {
	case *Blank:
		return ""
	case *Cluster:
		return d.ClusterURI
	case *TerminalShell:
		return ""
	case *TshNode:
		return d.ServerURI
	case *TshNodeWithLoginHost:
		return d.ClusterURI
	case *KubeExec:
		return d.KubeURI
	case *Gateway:
		return d.TargetURI
	case *GatewayCLIClient:
		return d.TargetURI
	case *GatewayKube:
		return d.TargetURI
	case *AccessRequests:
		return d.ClusterURI
	case *ConnectMyComputer:
		return d.RootClusterURI
	case *AuthorizeWebSession:
		return d.RootClusterURI
	case *DesktopSession:
		return d.DesktopURI
	case *VnetDiag:
		return d.RootClusterURI
	case *VnetInfo:
		return d.RootClusterURI
	default:
		panic(fmt.Sprintf("docs: unhandled document variant %T", d))
	}
}
