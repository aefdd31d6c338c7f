package clusters

import (
	"context"
	"fmt"

	"github.com/spirehq/spire/internal/auth"
	"github.com/spirehq/spire/internal/uri"
)

// ErrDaemonUnavailable is returned by offline client methods that need the
// backend daemon.
var ErrDaemonUnavailable = fmt.Errorf("backend daemon is not available")

// OfflineClient is the Client used when no daemon connection exists, such as
// CLI invocations that only mutate persisted workspace state. Workspace
// activation succeeds as long as credentials for the root cluster are stored;
// everything that needs the daemon reports ErrDaemonUnavailable.
type OfflineClient struct {
	creds *auth.Store
}

// NewOfflineClient returns an offline client backed by the credential store.
func NewOfflineClient(creds *auth.Store) *OfflineClient {
	return &OfflineClient{creds: creds}
}

func (c *OfflineClient) SyncRootCluster(ctx context.Context, rootClusterURI uri.URI) error {
	if _, err := c.creds.Load(rootClusterURI); err != nil {
		return &ReloginRequiredError{ClusterURI: rootClusterURI, Err: err}
	}
	return nil
}

func (c *OfflineClient) GetCluster(ctx context.Context, clusterURI uri.URI) (*Cluster, error) {
	return nil, ErrDaemonUnavailable
}

func (c *OfflineClient) ListUnifiedResources(ctx context.Context, req ListUnifiedResourcesRequest) (*UnifiedResourcesPage, error) {
	return nil, ErrDaemonUnavailable
}

func (c *OfflineClient) GetUserPreferences(ctx context.Context, clusterURI uri.URI) (*UnifiedResourcePreferences, error) {
	return nil, ErrDaemonUnavailable
}

func (c *OfflineClient) UpdateUserPreferences(ctx context.Context, clusterURI uri.URI, prefs UnifiedResourcePreferences) (*UnifiedResourcePreferences, error) {
	return nil, ErrDaemonUnavailable
}

func (c *OfflineClient) GetDbUsers(ctx context.Context, dbURI uri.URI) ([]string, error) {
	return nil, ErrDaemonUnavailable
}

func (c *OfflineClient) CreateAccessRequest(ctx context.Context, params CreateAccessRequestParams) (*AccessRequest, error) {
	return nil, ErrDaemonUnavailable
}

func (c *OfflineClient) GetRequestableRoles(ctx context.Context, clusterURI uri.URI) ([]string, error) {
	return nil, ErrDaemonUnavailable
}
