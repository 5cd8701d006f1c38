package registry

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Official struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Slug      string         `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	FullName  string         `gorm:"column:full_name;not null" json:"full_name"`
	Role      string         `gorm:"column:role" json:"role,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Official) TableName() string { return "official" }

// ServiceInterval is an authoritative half-open [StartDate, EndDate) span of an
// official's service. A nil EndDate means still serving.
type ServiceInterval struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OfficialID uuid.UUID      `gorm:"type:uuid;not null;index" json:"official_id"`
	StartDate  time.Time      `gorm:"column:start_date;not null;index" json:"start_date"`
	EndDate    *time.Time     `gorm:"column:end_date;index" json:"end_date,omitempty"`
	Source     string         `gorm:"column:source" json:"source,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ServiceInterval) TableName() string { return "service_interval" }
