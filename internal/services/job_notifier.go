package services

import (
	"context"

	"github.com/yungbote/policylens-backend/internal/data/repos"
	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/domain/jobs"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/platform/redisbus"
)

// JobNotifier fans a job lifecycle transition out to the Redis event bus and
// the append-only job_run_event ledger. Notifications are best-effort: a bus
// or ledger failure is logged and never fails the job itself.
type JobNotifier interface {
	JobCreated(ctx context.Context, job *types.JobRun)
	JobProgress(ctx context.Context, job *types.JobRun, stage string, progress int, message string)
	JobFailed(ctx context.Context, job *types.JobRun, stage string, errorMessage string)
	JobDone(ctx context.Context, job *types.JobRun)
}

type jobNotifier struct {
	log    *logger.Logger
	bus    redisbus.Bus
	events repos.JobRunEventRepo
}

func NewJobNotifier(baseLog *logger.Logger, bus redisbus.Bus, events repos.JobRunEventRepo) JobNotifier {
	return &jobNotifier{
		log:    baseLog.With("service", "JobNotifier"),
		bus:    bus,
		events: events,
	}
}

func (n *jobNotifier) JobCreated(ctx context.Context, job *types.JobRun) {
	n.emit(ctx, job, jobs.JobEventCreated, job.Stage, job.Progress, job.Message)
}

func (n *jobNotifier) JobProgress(ctx context.Context, job *types.JobRun, stage string, progress int, message string) {
	n.emit(ctx, job, jobs.JobEventProgress, stage, progress, message)
}

func (n *jobNotifier) JobFailed(ctx context.Context, job *types.JobRun, stage string, errorMessage string) {
	n.emit(ctx, job, jobs.JobEventFailed, stage, job.Progress, errorMessage)
}

func (n *jobNotifier) JobDone(ctx context.Context, job *types.JobRun) {
	n.emit(ctx, job, jobs.JobEventSucceeded, job.Stage, 100, "")
}

func (n *jobNotifier) emit(ctx context.Context, job *types.JobRun, kind jobs.JobEventKind, stage string, progress int, message string) {
	if job == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if n.bus != nil {
		ev := redisbus.JobEvent{
			JobID:    job.ID,
			JobType:  job.JobType,
			Kind:     string(kind),
			Status:   job.Status,
			Stage:    stage,
			Progress: progress,
			Message:  message,
		}
		if err := n.bus.Publish(ctx, ev); err != nil {
			n.log.Warn("Failed to publish job event", "job_id", job.ID, "kind", kind, "error", err)
		}
	}

	if n.events != nil {
		row := &types.JobRunEvent{
			JobID:    job.ID,
			JobType:  job.JobType,
			Kind:     string(kind),
			Status:   job.Status,
			Stage:    stage,
			Progress: progress,
			Message:  message,
		}
		if _, err := n.events.Append(dbctx.Context{Ctx: ctx}, []*types.JobRunEvent{row}); err != nil {
			n.log.Warn("Failed to append job run event", "job_id", job.ID, "kind", kind, "error", err)
		}
	}
}

// NopJobNotifier discards notifications where no bus or ledger is wired.
type NopJobNotifier struct{}

func (NopJobNotifier) JobCreated(ctx context.Context, job *types.JobRun) {}
func (NopJobNotifier) JobProgress(ctx context.Context, job *types.JobRun, stage string, progress int, message string) {
}
func (NopJobNotifier) JobFailed(ctx context.Context, job *types.JobRun, stage string, errorMessage string) {
}
func (NopJobNotifier) JobDone(ctx context.Context, job *types.JobRun) {}
