package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

type JobRunEventRepo interface {
	Append(dbc dbctx.Context, rows []*types.JobRunEvent) ([]*types.JobRunEvent, error)
	GetByJobID(dbc dbctx.Context, jobID uuid.UUID, limit int) ([]*types.JobRunEvent, error)
}

type jobRunEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunEventRepo(db *gorm.DB, baseLog *logger.Logger) JobRunEventRepo {
	return &jobRunEventRepo{db: db, log: baseLog.With("repo", "JobRunEventRepo")}
}

func (r *jobRunEventRepo) Append(dbc dbctx.Context, rows []*types.JobRunEvent) ([]*types.JobRunEvent, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.JobRunEvent{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, MapError("job_run_event.append", err)
	}
	return rows, nil
}

func (r *jobRunEventRepo) GetByJobID(dbc dbctx.Context, jobID uuid.UUID, limit int) ([]*types.JobRunEvent, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.JobRunEvent
	if jobID == uuid.Nil {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, MapError("job_run_event.get_by_job_id", err)
	}
	return out, nil
}
