package registry

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TagKind string

const (
	TagKindTheme      TagKind = "theme"
	TagKindPopulation TagKind = "population"
)

type Tag struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Slug        string         `gorm:"column:slug;not null;uniqueIndex:idx_tag_kind_slug" json:"slug"`
	Kind        string         `gorm:"column:kind;not null;uniqueIndex:idx_tag_kind_slug;index" json:"kind"`
	DisplayName string         `gorm:"column:display_name;not null" json:"display_name"`
	Description string         `gorm:"column:description;type:text" json:"description,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Tag) TableName() string { return "tag" }
