package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/policylens-backend/internal/data/repos"
	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

// ErrJobPending reports that an equivalent job is already queued or running.
var ErrJobPending = errors.New("job already queued or running")

// Job types handled by the worker.
const (
	JobTypeTermDigestRefresh   = "term_digest_refresh"
	JobTypePeriodDigestRefresh = "period_digest_refresh"
	JobTypeThemeDigestRefresh  = "theme_digest_refresh"
	JobTypeOrdersSync          = "orders_sync"
)

// JobTypeForKind maps an artifact kind to its refresh job type.
func JobTypeForKind(kind string) (string, error) {
	switch kind {
	case digests.KindTerms:
		return JobTypeTermDigestRefresh, nil
	case digests.KindPeriods:
		return JobTypePeriodDigestRefresh, nil
	case digests.KindThemes:
		return JobTypeThemeDigestRefresh, nil
	default:
		return "", fmt.Errorf("unknown digest kind %q", kind)
	}
}

// RefreshJobPayload is the JSON payload of a digest refresh job run.
type RefreshJobPayload struct {
	OfficialID string `json:"official_id,omitempty"`
	Year       int    `json:"year,omitempty"`
	Period     string `json:"period,omitempty"`
	TagID      string `json:"tag_id,omitempty"`
	Force      bool   `json:"force,omitempty"`
}

// JobService enqueues background work and serves job status reads. Enqueues
// dedupe against already-runnable jobs of the same type so the admin endpoint
// is idempotent while a refresh is pending.
type JobService interface {
	EnqueueRefresh(ctx context.Context, kind string, payload RefreshJobPayload) (*types.JobRun, error)
	EnqueueOrdersSync(ctx context.Context) (*types.JobRun, error)
	Get(ctx context.Context, id uuid.UUID) (*types.JobRun, []*types.JobRunEvent, error)
	Recent(ctx context.Context, limit int) ([]*types.JobRun, error)
}

type jobService struct {
	log    *logger.Logger
	jobs   repos.JobRunRepo
	events repos.JobRunEventRepo
	notify JobNotifier
}

func NewJobService(baseLog *logger.Logger, jobs repos.JobRunRepo, events repos.JobRunEventRepo, notify JobNotifier) JobService {
	return &jobService{
		log:    baseLog.With("service", "JobService"),
		jobs:   jobs,
		events: events,
		notify: notify,
	}
}

func (s *jobService) EnqueueRefresh(ctx context.Context, kind string, payload RefreshJobPayload) (*types.JobRun, error) {
	jobType, err := JobTypeForKind(kind)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}
	return s.enqueue(ctx, jobType, raw)
}

func (s *jobService) EnqueueOrdersSync(ctx context.Context) (*types.JobRun, error) {
	return s.enqueue(ctx, JobTypeOrdersSync, []byte("{}"))
}

func (s *jobService) enqueue(ctx context.Context, jobType string, payload []byte) (*types.JobRun, error) {
	dbc := dbctx.Context{Ctx: ctx}

	exists, err := s.jobs.ExistsRunnable(dbc, jobType, "", nil)
	if err != nil {
		return nil, fmt.Errorf("check runnable jobs: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", jobType, ErrJobPending)
	}

	job := &types.JobRun{
		ID:      uuid.New(),
		JobType: jobType,
		Status:  "queued",
		Stage:   "queued",
		Payload: datatypes.JSON(payload),
	}
	created, err := s.jobs.Create(dbc, []*types.JobRun{job})
	if err != nil {
		return nil, fmt.Errorf("create job run: %w", err)
	}
	job = created[0]

	if s.notify != nil {
		s.notify.JobCreated(ctx, job)
	}
	s.log.Info("Job enqueued", "job_type", jobType, "job_id", job.ID)
	return job, nil
}

func (s *jobService) Get(ctx context.Context, id uuid.UUID) (*types.JobRun, []*types.JobRunEvent, error) {
	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.jobs.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, nil, fmt.Errorf("load job run: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, repos.ErrNotFound
	}
	events, err := s.events.GetByJobID(dbc, id, 200)
	if err != nil {
		return nil, nil, fmt.Errorf("load job run events: %w", err)
	}
	return rows[0], events, nil
}

func (s *jobService) Recent(ctx context.Context, limit int) ([]*types.JobRun, error) {
	return s.jobs.GetRecent(dbctx.Context{Ctx: ctx}, limit)
}
