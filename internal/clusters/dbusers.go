package clusters

import (
	"context"

	"github.com/spirehq/spire/internal/notify"
	"github.com/spirehq/spire/internal/uri"
)

// DbUsersForDatabase fetches the usernames available for a database, for the
// login suggestion menu. The lookup is best-effort: a failure surfaces a
// non-blocking warning and is then rethrown so the caller's inline UI can
// show its own failure state, but it never blocks the connect action.
func DbUsersForDatabase(ctx context.Context, client Client, notifier *notify.Service, dbURI uri.URI) ([]string, error) {
	users, err := client.GetDbUsers(ctx, dbURI)
	if err != nil {
		if notifier != nil {
			notifier.NotifyWarning("Could not fetch database usernames", err.Error())
		}
		return nil, err
	}
	return users, nil
}
