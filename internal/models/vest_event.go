package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VestEvent is one scheduled date on which units become owned. Rows are
// bulk-created by schedule generation and replaced wholesale on regeneration;
// only the tax/sale/exercise fields and the note are mutated afterwards.
type VestEvent struct {
	VestID  uuid.UUID `gorm:"column:vest_id;type:uuid;primaryKey" json:"vest_id"`
	GrantID uuid.UUID `gorm:"column:grant_id;type:uuid;not null;index" json:"grant_id"`

	VestDate     time.Time       `gorm:"column:vest_date;type:date;not null" json:"vest_date"`
	UnitsVesting decimal.Decimal `gorm:"column:units_vesting;type:decimal(20,8);not null" json:"units_vesting"`
	IsCliff      bool            `gorm:"column:is_cliff;not null;default:false" json:"is_cliff"`

	UnitsWithheld  decimal.Decimal `gorm:"column:units_withheld;type:decimal(20,8);not null;default:0" json:"units_withheld"`
	CashForTaxes   decimal.Decimal `gorm:"column:cash_for_taxes;type:decimal(20,8);not null;default:0" json:"cash_for_taxes"`
	UnitsSold      decimal.Decimal `gorm:"column:units_sold;type:decimal(20,8);not null;default:0" json:"units_sold"`
	UnitsExercised decimal.Decimal `gorm:"column:units_exercised;type:decimal(20,8);not null;default:0" json:"units_exercised"`
	Note           string          `gorm:"column:note;type:text" json:"note"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (VestEvent) TableName() string {
	return "vest_events"
}

func (v *VestEvent) BeforeCreate(tx *gorm.DB) error {
	if v.VestID == uuid.Nil {
		v.VestID = uuid.New()
	}
	return nil
}

// UnitsReceived is units vesting minus units withheld for taxes.
func (v *VestEvent) UnitsReceived() decimal.Decimal {
	return v.UnitsVesting.Sub(v.UnitsWithheld)
}

// UnitsHeld is what remains after sales and exercises.
func (v *VestEvent) UnitsHeld() decimal.Decimal {
	return v.UnitsReceived().Sub(v.UnitsSold).Sub(v.UnitsExercised)
}
