package settings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stephencoan8/vestx/internal/models"
)

var ErrPreferenceNotFound = errors.New("Tax preference not set")

type Service struct {
	DB *gorm.DB
}

// PreferenceInput carries the editable flat rates.
type PreferenceInput struct {
	FederalRate    decimal.Decimal `json:"federal_rate"`
	StateRate      decimal.Decimal `json:"state_rate"`
	PayrollRate    decimal.Decimal `json:"payroll_rate"`
	IncludePayroll bool            `json:"include_payroll"`
	LongTermRate   decimal.Decimal `json:"long_term_rate"`
}

// GetPreference returns the user's tax preference. Absence is reported, not
// defaulted: the estimator must never run on silently substituted rates.
func (s *Service) GetPreference(ctx context.Context, userID uuid.UUID) (*models.TaxPreference, error) {
	var pref models.TaxPreference
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPreferenceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// UpdatePreference upserts the user's rates.
func (s *Service) UpdatePreference(ctx context.Context, userID uuid.UUID, in PreferenceInput) (*models.TaxPreference, error) {
	for _, r := range []decimal.Decimal{in.FederalRate, in.StateRate, in.PayrollRate, in.LongTermRate} {
		if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
			return nil, errors.New("Rates must be between 0 and 1")
		}
	}
	pref := models.TaxPreference{
		UserID:         userID,
		FederalRate:    in.FederalRate,
		StateRate:      in.StateRate,
		PayrollRate:    in.PayrollRate,
		IncludePayroll: in.IncludePayroll,
		LongTermRate:   in.LongTermRate,
	}
	err := s.DB.WithContext(ctx).Save(&pref).Error
	if err != nil {
		return nil, err
	}
	return &pref, nil
}
