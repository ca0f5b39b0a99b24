// Package portfolio is the single data-assembly point for presentation.
// It resolves prices and tax rates once, calls valuation.Evaluate exactly
// once per vest event, and hands the assembled rows onward; no caller
// re-derives cost basis, gross value or tax figures on its own.
package portfolio

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stephencoan8/vestx/internal/grants"
	"github.com/stephencoan8/vestx/internal/models"
	"github.com/stephencoan8/vestx/internal/prices"
	"github.com/stephencoan8/vestx/internal/settings"
	"github.com/stephencoan8/vestx/internal/valuation"
	"github.com/stephencoan8/vestx/internal/vesting"
)

type Service struct {
	DB *gorm.DB
}

// VestRow is one vest event with its valuation. Indeterminate rows had no
// usable price for the vest date or the as-of date; their valuation is
// omitted rather than rendered as zero.
type VestRow struct {
	VestID        uuid.UUID         `json:"vest_id"`
	GrantID       uuid.UUID         `json:"grant_id"`
	Instrument    string            `json:"instrument"`
	VestDate      time.Time         `json:"vest_date"`
	UnitsVesting  decimal.Decimal   `json:"units_vesting"`
	IsCliff       bool              `json:"is_cliff"`
	Note          string            `json:"note,omitempty"`
	Indeterminate bool              `json:"indeterminate"`
	Valuation     *valuation.Result `json:"valuation,omitempty"`

	// Sales recorded against this event; populated by VestDetail only.
	Sales []models.StockSale `json:"sales,omitempty"`
}

// Summary is the whole portfolio as of one date. Totals cover determinate
// rows only; IndeterminateCount tells the caller how many rows are excluded.
type Summary struct {
	AsOf                time.Time       `json:"as_of"`
	Rows                []VestRow       `json:"rows"`
	TotalUnitsVested    decimal.Decimal `json:"total_units_vested"`
	TotalCurrentValue   decimal.Decimal `json:"total_current_value"`
	TotalUnrealizedGain decimal.Decimal `json:"total_unrealized_gain"`
	TotalTaxOnSale      decimal.Decimal `json:"total_tax_on_sale"`
	IndeterminateCount  int             `json:"indeterminate_count"`
}

// Summary assembles every vest event of every grant the user owns.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID, asOf time.Time) (*Summary, error) {
	pref, err := s.taxRates(ctx, userID)
	if err != nil {
		return nil, err
	}
	points, err := s.pricePoints(ctx, userID)
	if err != nil {
		return nil, err
	}
	current := prices.QuoteAsOf(points, asOf)

	var grantRows []models.Grant
	if err := s.DB.WithContext(ctx).
		Preload("VestEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("vest_date ASC")
		}).
		Where("user_id = ?", userID).
		Order("grant_date ASC").
		Find(&grantRows).Error; err != nil {
		return nil, err
	}

	out := &Summary{
		AsOf:                asOf,
		Rows:                make([]VestRow, 0),
		TotalUnitsVested:    decimal.Zero,
		TotalCurrentValue:   decimal.Zero,
		TotalUnrealizedGain: decimal.Zero,
		TotalTaxOnSale:      decimal.Zero,
	}
	for _, g := range grantRows {
		for _, ev := range g.VestEvents {
			row := VestRow{
				VestID:       ev.VestID,
				GrantID:      g.GrantID,
				Instrument:   g.Instrument,
				VestDate:     ev.VestDate,
				UnitsVesting: ev.UnitsVesting,
				IsCliff:      ev.IsCliff,
				Note:         ev.Note,
			}
			atVest := prices.QuoteAsOf(points, ev.VestDate)
			result, err := valuation.Evaluate(facts(g, ev), atVest, current, pref, asOf)
			if err != nil {
				// A missing price marks the row indeterminate instead of
				// corrupting totals with zeros; anything else is a real fault.
				if isIndeterminate(err) {
					row.Indeterminate = true
					out.IndeterminateCount++
					out.Rows = append(out.Rows, row)
					continue
				}
				return nil, err
			}
			row.Valuation = &result
			out.Rows = append(out.Rows, row)
			if result.Vested {
				out.TotalUnitsVested = out.TotalUnitsVested.Add(ev.UnitsVesting)
				out.TotalTaxOnSale = out.TotalTaxOnSale.Add(result.EstimatedTaxOnSale)
			}
			out.TotalCurrentValue = out.TotalCurrentValue.Add(result.CurrentMarketValue)
			out.TotalUnrealizedGain = out.TotalUnrealizedGain.Add(result.UnrealizedGain)
		}
	}
	return out, nil
}

// VestDetail assembles a single event. A missing price surfaces as
// valuation.ErrPriceUnavailable for the handler to map, never as zeros.
func (s *Service) VestDetail(ctx context.Context, userID, vestID uuid.UUID, asOf time.Time) (*VestRow, error) {
	var ev models.VestEvent
	err := s.DB.WithContext(ctx).
		Joins("JOIN grants ON grants.grant_id = vest_events.grant_id").
		Where("vest_events.vest_id = ? AND grants.user_id = ?", vestID, userID).
		First(&ev).Error
	if err == gorm.ErrRecordNotFound {
		return nil, grants.ErrVestEventNotFound
	}
	if err != nil {
		return nil, err
	}
	var g models.Grant
	if err := s.DB.WithContext(ctx).Where("grant_id = ?", ev.GrantID).First(&g).Error; err != nil {
		return nil, err
	}

	pref, err := s.taxRates(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Two single-row lookups; no need to pull the whole price history here.
	psvc := prices.Service{DB: s.DB}
	atVest, err := psvc.AsOf(ctx, userID, ev.VestDate)
	if err != nil {
		return nil, err
	}
	current, err := psvc.AsOf(ctx, userID, asOf)
	if err != nil {
		return nil, err
	}

	result, err := valuation.Evaluate(facts(g, ev), atVest, current, pref, asOf)
	if err != nil {
		return nil, err
	}

	var sales []models.StockSale
	if err := s.DB.WithContext(ctx).
		Where("vest_id = ?", ev.VestID).
		Order("sale_date ASC").
		Find(&sales).Error; err != nil {
		return nil, err
	}

	return &VestRow{
		VestID:       ev.VestID,
		GrantID:      g.GrantID,
		Instrument:   g.Instrument,
		VestDate:     ev.VestDate,
		UnitsVesting: ev.UnitsVesting,
		IsCliff:      ev.IsCliff,
		Note:         ev.Note,
		Valuation:    &result,
		Sales:        sales,
	}, nil
}

func (s *Service) taxRates(ctx context.Context, userID uuid.UUID) (*valuation.TaxRates, error) {
	svc := settings.Service{DB: s.DB}
	pref, err := svc.GetPreference(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &valuation.TaxRates{
		Federal:        pref.FederalRate,
		State:          pref.StateRate,
		Payroll:        pref.PayrollRate,
		IncludePayroll: pref.IncludePayroll,
		LongTerm:       pref.LongTermRate,
	}, nil
}

func (s *Service) pricePoints(ctx context.Context, userID uuid.UUID) ([]models.PricePoint, error) {
	var points []models.PricePoint
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&points).Error
	return points, err
}

func facts(g models.Grant, ev models.VestEvent) valuation.VestFacts {
	return valuation.VestFacts{
		Instrument:     vesting.Instrument(g.Instrument),
		IsESPP:         g.Kind == string(vesting.KindESPP),
		VestDate:       ev.VestDate,
		UnitsVesting:   ev.UnitsVesting,
		UnitsWithheld:  ev.UnitsWithheld,
		CashForTaxes:   ev.CashForTaxes,
		UnitsSold:      ev.UnitsSold,
		UnitsExercised: ev.UnitsExercised,
		StrikePrice:    g.PriceAtGrant,
		ESPPDiscount:   g.ESPPDiscount,
	}
}

func isIndeterminate(err error) bool {
	return errors.Is(err, valuation.ErrPriceUnavailable)
}
