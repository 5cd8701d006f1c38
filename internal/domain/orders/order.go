package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Order is a normalized policy directive as delivered by the order feed.
// The feed deduplicates by ExternalID and enriches tags before persistence;
// nothing downstream mutates an order.
type Order struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExternalID   string         `gorm:"column:external_id;not null;uniqueIndex" json:"external_id"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	OfficialID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"official_id"`
	OfficialName string         `gorm:"column:official_name;not null" json:"official_name"`
	SignedAt     time.Time      `gorm:"column:signed_at;not null;index" json:"signed_at"`
	Abstract     string         `gorm:"column:abstract;type:text" json:"abstract,omitempty"`
	ThemeTags    datatypes.JSON `gorm:"column:theme_tags;type:jsonb" json:"theme_tags"`
	HelpedTags   datatypes.JSON `gorm:"column:helped_tags;type:jsonb" json:"helped_tags"`
	HurtTags     datatypes.JSON `gorm:"column:hurt_tags;type:jsonb" json:"hurt_tags"`
	SourceURL    string         `gorm:"column:source_url" json:"source_url,omitempty"`
	RawPayload   datatypes.JSON `gorm:"column:raw_payload;type:jsonb" json:"raw_payload,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Order) TableName() string { return "policy_order" }

func (o *Order) Themes() []uuid.UUID            { return decodeIDs(o.ThemeTags) }
func (o *Order) PopulationsHelped() []uuid.UUID { return decodeIDs(o.HelpedTags) }
func (o *Order) PopulationsHurt() []uuid.UUID   { return decodeIDs(o.HurtTags) }

func EncodeIDs(ids []uuid.UUID) datatypes.JSON {
	if len(ids) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}

func decodeIDs(raw datatypes.JSON) []uuid.UUID {
	if len(raw) == 0 {
		return nil
	}
	var ss []string
	if err := json.Unmarshal(raw, &ss); err != nil {
		return nil
	}
	out := make([]uuid.UUID, 0, len(ss))
	for _, s := range ss {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
