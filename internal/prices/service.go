package prices

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stephencoan8/vestx/internal/models"
)

var (
	ErrPriceNotFound = errors.New("Price not found")
	ErrInvalidPrice  = errors.New("Price must be zero or greater")
)

type Service struct {
	DB *gorm.DB
}

// AddPrice upserts the price for (user, date): entering a price twice for the
// same day corrects the earlier entry instead of duplicating it.
func (s *Service) AddPrice(ctx context.Context, userID uuid.UUID, date time.Time, price decimal.Decimal) (*models.PricePoint, error) {
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	var point models.PricePoint
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND effective_date = ?", userID, day).
		First(&point).Error
	switch {
	case err == nil:
		point.PricePerUnit = price
		if err := s.DB.WithContext(ctx).Save(&point).Error; err != nil {
			return nil, err
		}
		return &point, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		point = models.PricePoint{UserID: userID, EffectiveDate: day, PricePerUnit: price}
		if err := s.DB.WithContext(ctx).Create(&point).Error; err != nil {
			return nil, err
		}
		return &point, nil
	default:
		return nil, err
	}
}

// ListPrices returns the user's price history, newest first.
func (s *Service) ListPrices(ctx context.Context, userID uuid.UUID) ([]models.PricePoint, error) {
	var points []models.PricePoint
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("effective_date DESC").
		Find(&points).Error
	return points, err
}

// DeletePrice removes one of the user's price points.
func (s *Service) DeletePrice(ctx context.Context, userID, priceID uuid.UUID) error {
	res := s.DB.WithContext(ctx).
		Where("price_id = ? AND user_id = ?", priceID, userID).
		Delete(&models.PricePoint{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPriceNotFound
	}
	return nil
}

// AsOf returns the latest price on or before d. A missing price is reported
// through Quote.Found, not an error, and never as a zero price.
func (s *Service) AsOf(ctx context.Context, userID uuid.UUID, d time.Time) (Quote, error) {
	var point models.PricePoint
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND effective_date <= ?", userID, d).
		Order("effective_date DESC").
		First(&point).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Quote{}, nil
	}
	if err != nil {
		return Quote{}, err
	}
	return Quote{Price: point.PricePerUnit, Date: point.EffectiveDate, Found: true}, nil
}
