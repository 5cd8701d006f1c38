package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

type OfficialRepo interface {
	Create(dbc dbctx.Context, rows []*types.Official) ([]*types.Official, error)
	GetAll(dbc dbctx.Context) ([]*types.Official, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Official, error)
	GetBySlug(dbc dbctx.Context, slug string) (*types.Official, error)
	UpsertBySlug(dbc dbctx.Context, row *types.Official) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type officialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOfficialRepo(db *gorm.DB, baseLog *logger.Logger) OfficialRepo {
	return &officialRepo{db: db, log: baseLog.With("repo", "OfficialRepo")}
}

func (r *officialRepo) Create(dbc dbctx.Context, rows []*types.Official) ([]*types.Official, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Official{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, MapError("official.create", err)
	}
	return rows, nil
}

func (r *officialRepo) GetAll(dbc dbctx.Context) ([]*types.Official, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Official
	if err := t.WithContext(dbc.Ctx).Order("slug ASC").Find(&out).Error; err != nil {
		return nil, MapError("official.get_all", err)
	}
	return out, nil
}

func (r *officialRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Official, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Official
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, MapError("official.get_by_ids", err)
	}
	return out, nil
}

func (r *officialRepo) GetBySlug(dbc dbctx.Context, slug string) (*types.Official, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if slug == "" {
		return nil, nil
	}
	var row types.Official
	err := t.WithContext(dbc.Ctx).Where("slug = ?", slug).Limit(1).Find(&row).Error
	if err != nil {
		return nil, MapError("official.get_by_slug", err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *officialRepo) UpsertBySlug(dbc dbctx.Context, row *types.Official) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.Slug == "" {
		return nil
	}
	err := t.WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "role", "updated_at"}),
	}).Create(row).Error
	return MapError("official.upsert_by_slug", err)
}

func (r *officialRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.Official{}).
		Where("id = ?", id).
		Updates(updates).Error
	return MapError("official.update_fields", err)
}

type ServiceIntervalRepo interface {
	Create(dbc dbctx.Context, rows []*types.ServiceInterval) ([]*types.ServiceInterval, error)
	GetAll(dbc dbctx.Context) ([]*types.ServiceInterval, error)
	GetByOfficialIDs(dbc dbctx.Context, officialIDs []uuid.UUID) ([]*types.ServiceInterval, error)
	ReplaceForOfficial(dbc dbctx.Context, officialID uuid.UUID, rows []*types.ServiceInterval) error
}

type serviceIntervalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewServiceIntervalRepo(db *gorm.DB, baseLog *logger.Logger) ServiceIntervalRepo {
	return &serviceIntervalRepo{db: db, log: baseLog.With("repo", "ServiceIntervalRepo")}
}

func (r *serviceIntervalRepo) Create(dbc dbctx.Context, rows []*types.ServiceInterval) ([]*types.ServiceInterval, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.ServiceInterval{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, MapError("service_interval.create", err)
	}
	return rows, nil
}

func (r *serviceIntervalRepo) GetAll(dbc dbctx.Context) ([]*types.ServiceInterval, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ServiceInterval
	if err := t.WithContext(dbc.Ctx).Order("official_id ASC, start_date ASC").Find(&out).Error; err != nil {
		return nil, MapError("service_interval.get_all", err)
	}
	return out, nil
}

func (r *serviceIntervalRepo) GetByOfficialIDs(dbc dbctx.Context, officialIDs []uuid.UUID) ([]*types.ServiceInterval, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ServiceInterval
	if len(officialIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("official_id IN ?", officialIDs).
		Order("start_date ASC").
		Find(&out).Error; err != nil {
		return nil, MapError("service_interval.get_by_official_ids", err)
	}
	return out, nil
}

// ReplaceForOfficial swaps an official's authoritative intervals atomically.
func (r *serviceIntervalRepo) ReplaceForOfficial(dbc dbctx.Context, officialID uuid.UUID, rows []*types.ServiceInterval) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if officialID == uuid.Nil {
		return nil
	}
	err := t.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("official_id = ?", officialID).Delete(&types.ServiceInterval{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			row.OfficialID = officialID
		}
		return txx.Create(&rows).Error
	})
	return MapError("service_interval.replace_for_official", err)
}
