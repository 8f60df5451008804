package jobs

import (
	"context"

	"github.com/panelkit/panel/internal/rbac"
)

// AsyncRefresher satisfies rbac.Refresher by deferring the work to the worker. Callers
// return as soon as the task is queued; caches converge once the worker runs it.
type AsyncRefresher struct {
	client *Client
}

var _ rbac.Refresher = (*AsyncRefresher)(nil)

// NewAsyncRefresher constructs an AsyncRefresher.
func NewAsyncRefresher(client *Client) *AsyncRefresher {
	return &AsyncRefresher{client: client}
}

// RefreshOne enqueues a refresh of one account.
func (a *AsyncRefresher) RefreshOne(ctx context.Context, accountID int64) error {
	return a.client.EnqueueRefreshAccount(ctx, accountID)
}

// RefreshAll enqueues a refresh of every online account.
func (a *AsyncRefresher) RefreshAll(ctx context.Context) error {
	return a.client.EnqueueRefreshAll(ctx)
}
