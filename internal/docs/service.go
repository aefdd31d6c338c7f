package docs

import (
	"fmt"
	"sync"

	"github.com/spirehq/spire/internal/uri"
)

// Service owns the ordered document list and the active location of a single
// workspace. Every mutation replaces the whole list under the lock, so a
// reader sees either the fully-old or the fully-new state, never a partial
// splice.
type Service struct {
	mu       sync.RWMutex
	docs     []Document
	location uri.URI
}

// NewService returns an empty service with the home sentinel as its
// location.
func NewService() *Service {
	return &Service{location: uri.Home}
}

// Open makes the document with the given URI the active location. If no such
// document exists yet, a transient blank document is synthesized first.
func (s *Service) Open(docURI uri.URI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The home sentinel lives outside the list and never gets a blank.
	if docURI != uri.Home && s.indexLocked(docURI) == -1 {
		blank := &Blank{Base: Base{URI: docURI, Title: "New Tab", Kind: KindBlank}}
		s.docs = append(copyDocs(s.docs), blank)
	}
	s.location = docURI
}

// Add appends a document to the list without activating it.
func (s *Service) Add(d Document) {
	s.AddAt(d, -1)
}

// AddAt inserts a document at the given position; -1 or an out-of-range
// position appends.
func (s *Service) AddAt(d Document, position int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyDocs(s.docs)
	if position < 0 || position > len(next) {
		next = append(next, d)
	} else {
		next = append(next[:position], append([]Document{d}, next[position:]...)...)
	}
	s.docs = next
}

// Update clones the document matching the URI, applies fn to the clone, and
// swaps it into the list. Unknown URIs are a no-op: callers routinely update
// racily with close.
func (s *Service) Update(docURI uri.URI, fn func(Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(docURI)
	if i == -1 {
		return
	}
	next := copyDocs(s.docs)
	updated := next[i].clone()
	fn(updated)
	next[i] = updated
	s.docs = next
}

// Close removes the document matching the URI. When the closed document was
// active, the adjacent document (successor first, then predecessor, then
// home) becomes active before removal. Closing the home sentinel or an
// unknown URI is a no-op.
func (s *Service) Close(docURI uri.URI) {
	if docURI == uri.Home {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(docURI)
	if i == -1 {
		return
	}
	if s.location == docURI {
		s.location = s.nextURILocked(docURI)
	}
	next := copyDocs(s.docs)
	s.docs = append(next[:i], next[i+1:]...)
}

// CloseOthers closes every document except the one matching the URI.
func (s *Service) CloseOthers(docURI uri.URI) {
	for _, d := range s.List() {
		if d.Common().URI != docURI {
			s.Close(d.Common().URI)
		}
	}
}

// CloseToRight closes every document after the one matching the URI in list
// order.
func (s *Service) CloseToRight(docURI uri.URI) {
	list := s.List()
	i := indexOf(list, docURI)
	if i == -1 {
		return
	}
	for _, d := range list[i+1:] {
		s.Close(d.Common().URI)
	}
}

// DuplicatePtyAndActivate clones a PTY document (same fields, fresh URI),
// inserts the clone immediately after the original, and activates it.
func (s *Service) DuplicatePtyAndActivate(docURI uri.URI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(docURI)
	if i == -1 {
		return
	}
	dup := s.docs[i].clone()
	dup.Common().URI = freshURI()
	next := copyDocs(s.docs)
	next = append(next[:i+1], append([]Document{dup}, next[i+1:]...)...)
	s.docs = next
	s.location = dup.Common().URI
}

// NextURI returns the URI that should become active when the given document
// goes away: its successor in list order, else its predecessor, else home.
// It is computed from the list that still contains the URI.
func (s *Service) NextURI(docURI uri.URI) uri.URI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextURILocked(docURI)
}

func (s *Service) nextURILocked(docURI uri.URI) uri.URI {
	i := s.indexLocked(docURI)
	if i == -1 {
		return uri.Home
	}
	if i+1 < len(s.docs) {
		return s.docs[i+1].Common().URI
	}
	if i > 0 {
		return s.docs[i-1].Common().URI
	}
	return uri.Home
}

// Active returns the document at the current location, or nil when the
// location is the home sentinel or stale.
func (s *Service) Active() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(s.location); i != -1 {
		return s.docs[i]
	}
	return nil
}

// Location returns the active document URI.
func (s *Service) Location() uri.URI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// Get returns the document matching the URI, or nil.
func (s *Service) Get(docURI uri.URI) Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(docURI); i != -1 {
		return s.docs[i]
	}
	return nil
}

// List returns a copy of the ordered document list.
func (s *Service) List() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyDocs(s.docs)
}

// TshNodeDocuments returns the SSH session documents with a resolved server.
// Used by connection reuse to search existing live sessions.
func (s *Service) TshNodeDocuments() []*TshNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*TshNode
	for _, d := range s.docs {
		if n, ok := d.(*TshNode); ok {
			out = append(out, n)
		}
	}
	return out
}

// GatewayDocuments returns the gateway documents in list order.
func (s *Service) GatewayDocuments() []*Gateway {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Gateway
	for _, d := range s.docs {
		if g, ok := d.(*Gateway); ok {
			out = append(out, g)
		}
	}
	return out
}

// IsActive reports whether the URI is the current location.
func (s *Service) IsActive(docURI uri.URI) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location == docURI
}

// IsClusterDocumentActive reports whether the active document is a cluster
// browser for the given cluster.
func (s *Service) IsClusterDocumentActive(clusterURI uri.URI) bool {
	active := s.Active()
	if active == nil {
		return false
	}
	c, ok := active.(*Cluster)
	return ok && c.ClusterURI == clusterURI
}

// OpenExistingOrAddNew activates the first document matching pred; when none
// matches, it builds one via factory, adds it, and activates it. This is the
// canonical non-duplicating "navigate to or open" idiom.
func (s *Service) OpenExistingOrAddNew(pred func(Document) bool, factory func() Document) {
	for _, d := range s.List() {
		if pred(d) {
			s.Open(d.Common().URI)
			return
		}
	}
	d := factory()
	s.Add(d)
	s.Open(d.Common().URI)
}

func (s *Service) indexLocked(docURI uri.URI) int {
	return indexOf(s.docs, docURI)
}

func indexOf(list []Document, docURI uri.URI) int {
	for i, d := range list {
		if d.Common().URI == docURI {
			return i
		}
	}
	return -1
}

func copyDocs(list []Document) []Document {
	next := make([]Document, len(list))
	copy(next, list)
	return next
}

// -- Factories
//
// Factory methods assign a fresh globally-unique document URI and populate
// kind-specific fields. They never mutate service state; callers decide
// whether and where to add the result.

// ClusterDocumentParams configures NewClusterDocument.
type ClusterDocumentParams struct {
	ClusterURI  uri.URI
	ClusterName string
}

// NewClusterDocument builds a cluster browser document.
func (s *Service) NewClusterDocument(p ClusterDocumentParams) *Cluster {
	title := p.ClusterName
	if title == "" {
		if cp, ok := uri.ParseCluster(p.ClusterURI); ok {
			title = cp.RootClusterID
			if cp.LeafClusterID != "" {
				title = cp.LeafClusterID
			}
		}
	}
	return &Cluster{
		Base:       Base{URI: freshURI(), Title: title, Kind: KindCluster},
		ClusterURI: p.ClusterURI,
	}
}

// TshNodeDocumentParams configures NewTshNodeDocument.
type TshNodeDocumentParams struct {
	ServerURI uri.URI
	Hostname  string
	Login     string
	Origin    string
}

// NewTshNodeDocument builds an SSH session document for a resolved server.
func (s *Service) NewTshNodeDocument(p TshNodeDocumentParams) *TshNode {
	sp, _ := uri.ParseServer(p.ServerURI)
	return &TshNode{
		Base:      Base{URI: freshURI(), Title: fmt.Sprintf("%s@%s", p.Login, p.Hostname), Kind: KindTshNode},
		Status:    StatusConnecting,
		ServerURI: p.ServerURI,
		ServerID:  sp.ServerID,
		Login:     p.Login,
		Origin:    p.Origin,
	}
}

// GatewayDocumentParams configures NewGatewayDocument.
type GatewayDocumentParams struct {
	TargetURI             uri.URI
	TargetUser            string
	TargetName            string
	TargetSubresourceName string
	GatewayURI            uri.URI
	Origin                string
}

// NewGatewayDocument builds a gateway document for a database or TCP app
// target.
func (s *Service) NewGatewayDocument(p GatewayDocumentParams) *Gateway {
	title := p.TargetName
	if p.TargetUser != "" {
		title = fmt.Sprintf("%s/%s", p.TargetName, p.TargetUser)
	}
	return &Gateway{
		Base:                  Base{URI: freshURI(), Title: title, Kind: KindGateway},
		TargetURI:             p.TargetURI,
		TargetUser:            p.TargetUser,
		TargetName:            p.TargetName,
		TargetSubresourceName: p.TargetSubresourceName,
		GatewayURI:            p.GatewayURI,
		Origin:                p.Origin,
	}
}

// GatewayKubeDocumentParams configures NewGatewayKubeDocument.
type GatewayKubeDocumentParams struct {
	TargetURI              uri.URI
	KubeConfigRelativePath string
	Origin                 string
}

// NewGatewayKubeDocument builds a gateway document for a Kubernetes cluster
// target.
func (s *Service) NewGatewayKubeDocument(p GatewayKubeDocumentParams) *GatewayKube {
	kp, _ := uri.ParseKube(p.TargetURI)
	return &GatewayKube{
		Base:                   Base{URI: freshURI(), Title: kp.KubeID, Kind: KindGatewayKube},
		TargetURI:              p.TargetURI,
		KubeConfigRelativePath: p.KubeConfigRelativePath,
		Origin:                 p.Origin,
	}
}

// DesktopSessionDocumentParams configures NewDesktopSessionDocument.
type DesktopSessionDocumentParams struct {
	DesktopURI uri.URI
	Login      string
	Origin     string
}

// NewDesktopSessionDocument builds a Windows desktop session document.
func (s *Service) NewDesktopSessionDocument(p DesktopSessionDocumentParams) *DesktopSession {
	dp, _ := uri.ParseDesktop(p.DesktopURI)
	return &DesktopSession{
		Base:       Base{URI: freshURI(), Title: fmt.Sprintf("%s@%s", p.Login, dp.DesktopID), Kind: KindDesktopSession},
		Status:     StatusConnecting,
		DesktopURI: p.DesktopURI,
		Login:      p.Login,
		Origin:     p.Origin,
	}
}

// NewTerminalShellDocument builds a local PTY document.
func (s *Service) NewTerminalShellDocument(rootClusterURI uri.URI, cwd string) *TerminalShell {
	return &TerminalShell{
		Base:           Base{URI: freshURI(), Title: "Terminal", Kind: KindTerminalShell},
		Cwd:            cwd,
		RootClusterURI: rootClusterURI,
	}
}

// NewAccessRequestsDocument builds an access request browser document.
func (s *Service) NewAccessRequestsDocument(clusterURI uri.URI, requestID string) *AccessRequests {
	return &AccessRequests{
		Base:       Base{URI: freshURI(), Title: "Access Requests", Kind: KindAccessRequests},
		ClusterURI: clusterURI,
		RequestID:  requestID,
	}
}

// NewConnectMyComputerDocument builds the local agent setup document.
func (s *Service) NewConnectMyComputerDocument(rootClusterURI uri.URI) *ConnectMyComputer {
	return &ConnectMyComputer{
		Base:           Base{URI: freshURI(), Title: "Connect My Computer", Kind: KindConnectMyComputer},
		RootClusterURI: rootClusterURI,
	}
}

// NewAuthorizeWebSessionDocument builds a web session authorization document.
func (s *Service) NewAuthorizeWebSessionDocument(rootClusterURI uri.URI, req WebSessionRequest) *AuthorizeWebSession {
	return &AuthorizeWebSession{
		Base:           Base{URI: freshURI(), Title: "Authorize Web Session", Kind: KindAuthorizeWebSession},
		RootClusterURI: rootClusterURI,
		WebSessionReq:  req,
	}
}

// KubeExecDocumentParams configures NewKubeExecDocument.
type KubeExecDocumentParams struct {
	KubeURI   uri.URI
	Namespace string
	Pod       string
	Container string
}

// NewKubeExecDocument builds an exec session document for a pod container.
func (s *Service) NewKubeExecDocument(p KubeExecDocumentParams) *KubeExec {
	title := p.Pod
	if p.Container != "" {
		title = fmt.Sprintf("%s/%s", p.Pod, p.Container)
	}
	return &KubeExec{
		Base:      Base{URI: freshURI(), Title: title, Kind: KindKubeExec},
		Status:    StatusConnecting,
		KubeURI:   p.KubeURI,
		Namespace: p.Namespace,
		Pod:       p.Pod,
		Container: p.Container,
	}
}

// GatewayCLIClientDocumentParams configures NewGatewayCLIClientDocument.
type GatewayCLIClientDocumentParams struct {
	RootClusterURI uri.URI
	TargetURI      uri.URI
	TargetUser     string
	TargetName     string
	TargetProtocol string
}

// NewGatewayCLIClientDocument builds a terminal document for a CLI client
// (psql, redis-cli, ...) attached to a gateway.
func (s *Service) NewGatewayCLIClientDocument(p GatewayCLIClientDocumentParams) *GatewayCLIClient {
	title := p.TargetName
	if p.TargetUser != "" {
		title = fmt.Sprintf("%s/%s", p.TargetName, p.TargetUser)
	}
	return &GatewayCLIClient{
		Base:           Base{URI: freshURI(), Title: title, Kind: KindGatewayCLIClient},
		Status:         StatusConnecting,
		RootClusterURI: p.RootClusterURI,
		TargetURI:      p.TargetURI,
		TargetUser:     p.TargetUser,
		TargetName:     p.TargetName,
		TargetProtocol: p.TargetProtocol,
	}
}

// NewVnetDiagDocument builds the VNet diagnostics document.
func (s *Service) NewVnetDiagDocument(rootClusterURI uri.URI) *VnetDiag {
	return &VnetDiag{
		Base:           Base{URI: freshURI(), Title: "VNet Diagnostics", Kind: KindVnetDiag},
		RootClusterURI: rootClusterURI,
	}
}

// NewVnetInfoDocument builds the VNet informational document.
func (s *Service) NewVnetInfoDocument(rootClusterURI uri.URI) *VnetInfo {
	return &VnetInfo{
		Base:           Base{URI: freshURI(), Title: "VNet", Kind: KindVnetInfo},
		RootClusterURI: rootClusterURI,
	}
}
