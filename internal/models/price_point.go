package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PricePoint is a user-entered share price effective on a date. Prices are
// scoped per user, not global; one row per (user, date).
type PricePoint struct {
	PriceID       uuid.UUID       `gorm:"column:price_id;type:uuid;primaryKey" json:"price_id"`
	UserID        uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_user_price_date" json:"user_id"`
	EffectiveDate time.Time       `gorm:"column:effective_date;type:date;not null;uniqueIndex:idx_user_price_date" json:"effective_date"`
	PricePerUnit  decimal.Decimal `gorm:"column:price_per_unit;type:decimal(20,8);not null" json:"price_per_unit"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (PricePoint) TableName() string {
	return "price_points"
}

func (p *PricePoint) BeforeCreate(tx *gorm.DB) error {
	if p.PriceID == uuid.Nil {
		p.PriceID = uuid.New()
	}
	return nil
}
