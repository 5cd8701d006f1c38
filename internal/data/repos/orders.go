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

type OrderRepo interface {
	Create(dbc dbctx.Context, rows []*types.Order) ([]*types.Order, error)
	UpsertByExternalID(dbc dbctx.Context, rows []*types.Order) (int64, error)
	GetAllSortedBySignedAt(dbc dbctx.Context) ([]*types.Order, error)
	GetByOfficialID(dbc dbctx.Context, officialID uuid.UUID) ([]*types.Order, error)
	GetBySignedRange(dbc dbctx.Context, from, to time.Time) ([]*types.Order, error)
	GetByExternalIDs(dbc dbctx.Context, externalIDs []string) ([]*types.Order, error)
	LatestSignedAt(dbc dbctx.Context) (*time.Time, error)
	Count(dbc dbctx.Context) (int64, error)
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	return &orderRepo{db: db, log: baseLog.With("repo", "OrderRepo")}
}

func (r *orderRepo) Create(dbc dbctx.Context, rows []*types.Order) ([]*types.Order, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Order{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, MapError("order.create", err)
	}
	return rows, nil
}

// UpsertByExternalID inserts feed rows, refreshing tag enrichment on rows
// already present. Returns the number of rows touched.
func (r *orderRepo) UpsertByExternalID(dbc dbctx.Context, rows []*types.Order) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := t.WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "official_id", "official_name", "signed_at", "abstract",
			"theme_tags", "helped_tags", "hurt_tags", "source_url", "raw_payload", "updated_at",
		}),
	}).Create(&rows)
	if res.Error != nil {
		return 0, MapError("order.upsert_by_external_id", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *orderRepo) GetAllSortedBySignedAt(dbc dbctx.Context) ([]*types.Order, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Order
	if err := t.WithContext(dbc.Ctx).Order("signed_at ASC, external_id ASC").Find(&out).Error; err != nil {
		return nil, MapError("order.get_all", err)
	}
	return out, nil
}

func (r *orderRepo) GetByOfficialID(dbc dbctx.Context, officialID uuid.UUID) ([]*types.Order, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Order
	if officialID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("official_id = ?", officialID).
		Order("signed_at ASC, external_id ASC").
		Find(&out).Error; err != nil {
		return nil, MapError("order.get_by_official_id", err)
	}
	return out, nil
}

func (r *orderRepo) GetBySignedRange(dbc dbctx.Context, from, to time.Time) ([]*types.Order, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Order
	if !to.After(from) {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("signed_at >= ? AND signed_at < ?", from, to).
		Order("signed_at ASC, external_id ASC").
		Find(&out).Error; err != nil {
		return nil, MapError("order.get_by_signed_range", err)
	}
	return out, nil
}

func (r *orderRepo) GetByExternalIDs(dbc dbctx.Context, externalIDs []string) ([]*types.Order, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Order
	if len(externalIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("external_id IN ?", externalIDs).Find(&out).Error; err != nil {
		return nil, MapError("order.get_by_external_ids", err)
	}
	return out, nil
}

func (r *orderRepo) LatestSignedAt(dbc dbctx.Context) (*time.Time, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Order
	err := t.WithContext(dbc.Ctx).Order("signed_at DESC").Limit(1).Find(&row).Error
	if err != nil {
		return nil, MapError("order.latest_signed_at", err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	ts := row.SignedAt
	return &ts, nil
}

func (r *orderRepo) Count(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	if err := t.WithContext(dbc.Ctx).Model(&types.Order{}).Count(&count).Error; err != nil {
		return 0, MapError("order.count", err)
	}
	return count, nil
}
