package worker

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/policylens-backend/internal/data/repos"
	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/jobs/runtime"
	"github.com/yungbote/policylens-backend/internal/observability"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
	"github.com/yungbote/policylens-backend/internal/platform/envutil"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/services"
)

// Worker claims runnable job runs from Postgres (FOR UPDATE SKIP LOCKED) and
// dispatches them to registered handlers. A heartbeat goroutine runs for the
// duration of each handler so a long refresh is not reclaimed as stale.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier

	pollInterval      time.Duration
	heartbeatInterval time.Duration
	maxAttempts       int
	retryDelay        time.Duration
	staleRunning      time.Duration
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,

		pollInterval:      time.Duration(envutil.Int("WORKER_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		heartbeatInterval: time.Duration(envutil.Int("WORKER_HEARTBEAT_SECONDS", 15)) * time.Second,
		maxAttempts:       envutil.Int("WORKER_MAX_ATTEMPTS", 5),
		retryDelay:        time.Duration(envutil.Int("WORKER_RETRY_DELAY_SECONDS", 30)) * time.Second,
		staleRunning:      time.Duration(envutil.Int("WORKER_STALE_RUNNING_MINUTES", 30)) * time.Minute,
	}
}

func (w *Worker) Start(ctx context.Context) {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 2)
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("Starting job worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		workerID := i + 1
		go w.runLoop(ctx, workerID)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.maxAttempts, w.retryDelay, w.staleRunning)
			if err != nil {
				w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
				continue
			}
			if job == nil {
				continue
			}
			w.execute(ctx, workerID, job)
		}
	}
}

func (w *Worker) execute(ctx context.Context, workerID int, job *types.JobRun) {
	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.notify)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type",
			"worker_id", workerID,
			"job_type", job.JobType,
			"job_id", job.ID,
		)
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		return
	}

	stopHeartbeat := w.startHeartbeat(ctx, job)
	defer stopHeartbeat()

	start := time.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic",
					"worker_id", workerID,
					"job_id", job.ID,
					"job_type", job.JobType,
					"panic", r,
				)
				jc.Fail("panic", errFromRecover(r))
			}
		}()

		if runErr := h.Run(jc); runErr != nil {
			// Most pipelines call jc.Fail themselves; this is a safety net.
			jc.Fail("run", runErr)
		}
	}()

	if m := observability.Current(); m != nil {
		status := "ok"
		if job.Status == "failed" {
			status = "error"
		}
		m.ObserveJobStage(job.JobType, job.Stage, status, time.Since(start))
	}
}

// startHeartbeat bumps heartbeat_at until the returned stop func is called.
func (w *Worker) startHeartbeat(ctx context.Context, job *types.JobRun) func() {
	if w.heartbeatInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(w.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.repo.Heartbeat(dbctx.Context{Ctx: ctx}, job.ID); err != nil {
					w.log.Warn("Heartbeat failed", "job_id", job.ID, "error", err)
				}
			}
		}
	}()
	return func() { close(done) }
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string {
	return "no handler registered for job_type=" + e.JobType
}

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return "panic during job execution" }
