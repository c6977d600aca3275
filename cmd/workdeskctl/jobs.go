package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/workdesk/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name with default payload.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := jobs.NewTask(name)
	if err != nil {
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Trigger and inspect background jobs",
}

func newJobsTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "trigger <task>",
		Short:     "Enqueue a job now",
		Long:      "Enqueue a job now. Supported: " + jobs.TaskOverdueReminders,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{jobs.TaskOverdueReminders},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			cli := NewJobsCLI(cfg.RedisAddr)
			defer cli.Close()
			info, err := cli.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
}

func newJobsInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show default queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			cli := NewJobsCLI(cfg.RedisAddr)
			defer cli.Close()
			stats, err := cli.InspectQueue()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatStats(stats))
			return nil
		},
	}
}

func formatStats(s QueueStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "queue:     %s\n", s.Queue)
	fmt.Fprintf(&b, "pending:   %d\n", s.Pending)
	fmt.Fprintf(&b, "active:    %d\n", s.Active)
	fmt.Fprintf(&b, "scheduled: %d\n", s.Scheduled)
	fmt.Fprintf(&b, "retry:     %d\n", s.Retry)
	fmt.Fprintf(&b, "archived:  %d\n", s.Archived)
	return b.String()
}

func init() {
	jobsCmd.AddCommand(newJobsTriggerCmd(), newJobsInspectCmd())
	rootCmd.AddCommand(jobsCmd)
}
