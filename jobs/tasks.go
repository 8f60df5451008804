package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPermsRefreshAll recomputes the permission cache of every online account.
	TaskPermsRefreshAll = "perms:refresh_all"
	// TaskPermsRefreshAccount recomputes the permission cache of one account.
	TaskPermsRefreshAccount = "perms:refresh_account"
)

// RefreshAccountPayload names the account whose permissions changed.
type RefreshAccountPayload struct {
	AccountID int64 `json:"account_id"`
}

// NewRefreshAllTask constructs a TaskPermsRefreshAll task.
func NewRefreshAllTask() *asynq.Task {
	return asynq.NewTask(TaskPermsRefreshAll, nil)
}

// NewRefreshAccountTask constructs a TaskPermsRefreshAccount task.
func NewRefreshAccountTask(accountID int64) (*asynq.Task, error) {
	if accountID <= 0 {
		return nil, fmt.Errorf("jobs: invalid account id %d", accountID)
	}
	data, err := json.Marshal(RefreshAccountPayload{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPermsRefreshAccount, data), nil
}
