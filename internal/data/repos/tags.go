package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

type TagRepo interface {
	Create(dbc dbctx.Context, rows []*types.Tag) ([]*types.Tag, error)
	GetAll(dbc dbctx.Context) ([]*types.Tag, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Tag, error)
	GetByKind(dbc dbctx.Context, kind string) ([]*types.Tag, error)
	GetByKindAndSlug(dbc dbctx.Context, kind, slug string) (*types.Tag, error)
	UpsertByKindAndSlug(dbc dbctx.Context, row *types.Tag) error
}

type tagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo {
	return &tagRepo{db: db, log: baseLog.With("repo", "TagRepo")}
}

func (r *tagRepo) Create(dbc dbctx.Context, rows []*types.Tag) ([]*types.Tag, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Tag{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, MapError("tag.create", err)
	}
	return rows, nil
}

func (r *tagRepo) GetAll(dbc dbctx.Context) ([]*types.Tag, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Tag
	if err := t.WithContext(dbc.Ctx).Order("kind ASC, slug ASC").Find(&out).Error; err != nil {
		return nil, MapError("tag.get_all", err)
	}
	return out, nil
}

func (r *tagRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Tag, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Tag
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, MapError("tag.get_by_ids", err)
	}
	return out, nil
}

func (r *tagRepo) GetByKind(dbc dbctx.Context, kind string) ([]*types.Tag, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Tag
	if kind == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("kind = ?", kind).Order("slug ASC").Find(&out).Error; err != nil {
		return nil, MapError("tag.get_by_kind", err)
	}
	return out, nil
}

func (r *tagRepo) GetByKindAndSlug(dbc dbctx.Context, kind, slug string) (*types.Tag, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if kind == "" || slug == "" {
		return nil, nil
	}
	var row types.Tag
	err := t.WithContext(dbc.Ctx).Where("kind = ? AND slug = ?", kind, slug).Limit(1).Find(&row).Error
	if err != nil {
		return nil, MapError("tag.get_by_kind_and_slug", err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *tagRepo) UpsertByKindAndSlug(dbc dbctx.Context, row *types.Tag) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.Kind == "" || row.Slug == "" {
		return nil
	}
	err := t.WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "description", "updated_at"}),
	}).Create(row).Error
	return MapError("tag.upsert_by_kind_and_slug", err)
}
