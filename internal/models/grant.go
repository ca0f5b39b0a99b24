package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Grant is a single equity-compensation award. TotalUnits is a share count,
// or a USD amount when the instrument is cash. PriceAtGrant is the ISO strike
// price; it is ignored for cash grants.
type Grant struct {
	GrantID      uuid.UUID       `gorm:"column:grant_id;type:uuid;primaryKey" json:"grant_id"`
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Kind         string          `gorm:"column:kind;not null" json:"kind"`
	Instrument   string          `gorm:"column:instrument;not null" json:"instrument"`
	TotalUnits   decimal.Decimal `gorm:"column:total_units;type:decimal(20,8);not null" json:"total_units"`
	GrantDate    time.Time       `gorm:"column:grant_date;type:date;not null" json:"grant_date"`
	PriceAtGrant decimal.Decimal `gorm:"column:price_at_grant;type:decimal(20,8);not null;default:0" json:"price_at_grant"`
	ESPPDiscount decimal.Decimal `gorm:"column:espp_discount;type:decimal(6,4);not null;default:0" json:"espp_discount"`

	// Month overrides for promotion/kickass/cash grants; 0 means policy default.
	VestMonths  int `gorm:"column:vest_months;not null;default:0" json:"vest_months"`
	CliffMonths int `gorm:"column:cliff_months;not null;default:0" json:"cliff_months"`

	Notes     string         `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	VestEvents []VestEvent `gorm:"foreignKey:GrantID;constraint:OnDelete:CASCADE" json:"vest_events,omitempty"`
}

func (Grant) TableName() string {
	return "grants"
}

func (g *Grant) BeforeCreate(tx *gorm.DB) error {
	if g.GrantID == uuid.Nil {
		g.GrantID = uuid.New()
	}
	return nil
}
