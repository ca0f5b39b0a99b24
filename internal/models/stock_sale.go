package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockSale records an actual sale of shares out of a vest event.
type StockSale struct {
	SaleID       uuid.UUID       `gorm:"column:sale_id;type:uuid;primaryKey" json:"sale_id"`
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	VestID       uuid.UUID       `gorm:"column:vest_id;type:uuid;not null;index" json:"vest_id"`
	SaleDate     time.Time       `gorm:"column:sale_date;type:date;not null" json:"sale_date"`
	UnitsSold    decimal.Decimal `gorm:"column:units_sold;type:decimal(20,8);not null" json:"units_sold"`
	PricePerUnit decimal.Decimal `gorm:"column:price_per_unit;type:decimal(20,8);not null" json:"price_per_unit"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (StockSale) TableName() string {
	return "stock_sales"
}

func (s *StockSale) BeforeCreate(tx *gorm.DB) error {
	if s.SaleID == uuid.Nil {
		s.SaleID = uuid.New()
	}
	return nil
}
