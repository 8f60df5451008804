package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/panelkit/panel/internal/jobs"
	"github.com/panelkit/panel/internal/rbac"
)

// PermissionRefreshJob runs permission refresh tasks against the resolver.
type PermissionRefreshJob struct {
	Refresher rbac.Refresher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewPermissionRefreshJob constructs the job handler.
func NewPermissionRefreshJob(refresher rbac.Refresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *PermissionRefreshJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionRefreshJob{Refresher: refresher, Logger: logger, Metrics: metrics}
}

// HandleRefreshAll processes TaskPermsRefreshAll tasks.
func (j *PermissionRefreshJob) HandleRefreshAll(ctx context.Context, _ *asynq.Task) error {
	tracker := j.Metrics.Track(TaskPermsRefreshAll)
	if err := j.Refresher.RefreshAll(ctx); err != nil {
		j.Logger.Error("refresh all permissions", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.Info("permissions refreshed", slog.String("scope", "all"))
	return tracker.End(nil)
}

// HandleRefreshAccount processes TaskPermsRefreshAccount tasks. Malformed payloads are not
// retried.
func (j *PermissionRefreshJob) HandleRefreshAccount(ctx context.Context, t *asynq.Task) error {
	tracker := j.Metrics.Track(TaskPermsRefreshAccount)
	var payload RefreshAccountPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.AccountID <= 0 {
		return tracker.End(fmt.Errorf("jobs: bad %s payload: %w", TaskPermsRefreshAccount, asynq.SkipRetry))
	}
	if err := j.Refresher.RefreshOne(ctx, payload.AccountID); err != nil {
		j.Logger.Error("refresh account permissions", slog.Int64("account_id", payload.AccountID), slog.Any("error", err))
		return tracker.End(err)
	}
	return tracker.End(nil)
}

// Handlers lists the task handlers of this job for WorkerConfig.
func (j *PermissionRefreshJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskPermsRefreshAll, Handler: j.HandleRefreshAll},
		{Type: TaskPermsRefreshAccount, Handler: j.HandleRefreshAccount},
	}
}
