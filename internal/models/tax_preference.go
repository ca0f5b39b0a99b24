package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxPreference holds a user's flat estimation rates. No bracket tables and
// no year-by-year tracking; the payroll wage cap is the caller's concern
// (zero the payroll rate once wages pass the cap).
type TaxPreference struct {
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	FederalRate    decimal.Decimal `gorm:"column:federal_rate;type:decimal(6,4);not null" json:"federal_rate"`
	StateRate      decimal.Decimal `gorm:"column:state_rate;type:decimal(6,4);not null" json:"state_rate"`
	PayrollRate    decimal.Decimal `gorm:"column:payroll_rate;type:decimal(6,4);not null" json:"payroll_rate"`
	IncludePayroll bool            `gorm:"column:include_payroll;not null;default:true" json:"include_payroll"`
	LongTermRate   decimal.Decimal `gorm:"column:long_term_rate;type:decimal(6,4);not null" json:"long_term_rate"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (TaxPreference) TableName() string {
	return "tax_preferences"
}

// DefaultTaxPreference returns the rates a fresh account starts with:
// 22% federal, no state tax, 7.65% payroll, 15% long-term capital gains.
func DefaultTaxPreference(userID uuid.UUID) TaxPreference {
	return TaxPreference{
		UserID:         userID,
		FederalRate:    decimal.NewFromFloat(0.22),
		StateRate:      decimal.Zero,
		PayrollRate:    decimal.NewFromFloat(0.0765),
		IncludePayroll: true,
		LongTermRate:   decimal.NewFromFloat(0.15),
	}
}
