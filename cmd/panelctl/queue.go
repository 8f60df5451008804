package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/panelkit/panel/jobs"
)

// queueInspector is the slice of *asynq.Inspector the queue commands read.
type queueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Failed    int
}

// queueOps wraps read-only helpers over the refresh queue.
type queueOps struct {
	inspector queueInspector
}

// InspectQueue reports the metrics of the default queue. A queue that has never seen a
// task reports zeros.
func (q queueOps) InspectQueue() (QueueStats, error) {
	if q.inspector == nil {
		return QueueStats{}, errors.New("queue: inspector not configured")
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	info, err := q.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return stats, nil
		}
		return QueueStats{}, err
	}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Failed = info.Failed
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (q queueOps) ListScheduled(size int) ([]*asynq.TaskInfo, error) {
	if q.inspector == nil {
		return nil, errors.New("queue: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return q.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

func newQueueCmd() *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the permission refresh queue",
	}

	withOps := func(run func(cmd *cobra.Command, ops queueOps) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: e.RedisAddr, Password: e.RedisPassword, DB: e.RedisDB})
			defer inspector.Close()
			return run(cmd, queueOps{inspector: inspector})
		}
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show queue counters",
		Args:  cobra.NoArgs,
		RunE: withOps(func(cmd *cobra.Command, ops queueOps) error {
			stats, err := ops.InspectQueue()
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), stats)
		}),
	}

	var size int
	scheduledCmd := &cobra.Command{
		Use:   "scheduled",
		Short: "List scheduled tasks",
		Args:  cobra.NoArgs,
		RunE: withOps(func(cmd *cobra.Command, ops queueOps) error {
			tasks, err := ops.ListScheduled(size)
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), tasks)
		}),
	}
	scheduledCmd.Flags().IntVar(&size, "size", 10, "number of tasks to list")

	queueCmd.AddCommand(inspectCmd, scheduledCmd)
	return queueCmd
}

func printStats(out io.Writer, s QueueStats) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tFAILED")
	fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Failed)
	return tw.Flush()
}

func printTasks(out io.Writer, tasks []*asynq.TaskInfo) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNEXT PROCESS AT")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return tw.Flush()
}
