package grants

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stephencoan8/vestx/internal/models"
	"github.com/stephencoan8/vestx/internal/vesting"
)

type Service struct {
	DB *gorm.DB
}

// GrantInput carries the editable grant attributes from create/edit requests.
type GrantInput struct {
	Kind         string          `json:"kind"`
	Instrument   string          `json:"instrument"`
	TotalUnits   decimal.Decimal `json:"total_units"`
	GrantDate    time.Time       `json:"grant_date"`
	PriceAtGrant decimal.Decimal `json:"price_at_grant"`
	ESPPDiscount decimal.Decimal `json:"espp_discount"`
	VestMonths   int             `json:"vest_months"`
	CliffMonths  int             `json:"cliff_months"`
	Notes        string          `json:"notes"`
}

func (in GrantInput) terms() vesting.GrantTerms {
	return vesting.GrantTerms{
		Kind:        vesting.Kind(in.Kind),
		Instrument:  vesting.Instrument(in.Instrument),
		TotalUnits:  in.TotalUnits,
		GrantDate:   in.GrantDate,
		VestMonths:  in.VestMonths,
		CliffMonths: in.CliffMonths,
	}
}

// CreateGrant validates the input, generates the vest schedule and persists
// grant, events and an audit row in one transaction.
func (s *Service) CreateGrant(ctx context.Context, userID uuid.UUID, in GrantInput) (*models.Grant, error) {
	schedule, err := vesting.Generate(in.terms())
	if err != nil {
		return nil, err
	}

	grant := models.Grant{
		UserID:       userID,
		Kind:         in.Kind,
		Instrument:   in.Instrument,
		TotalUnits:   in.TotalUnits,
		GrantDate:    in.GrantDate,
		PriceAtGrant: in.PriceAtGrant,
		ESPPDiscount: in.ESPPDiscount,
		VestMonths:   in.VestMonths,
		CliffMonths:  in.CliffMonths,
		Notes:        in.Notes,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&grant).Error; err != nil {
			return err
		}
		if err := insertSchedule(tx, grant.GrantID, schedule); err != nil {
			return err
		}
		return auditEvent(tx, grant.GrantID, "SCHEDULE_GENERATED", map[string]interface{}{
			"event_count": len(schedule),
			"total_units": in.TotalUnits,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetGrant(ctx, userID, grant.GrantID)
}

// EditGrant updates the grant attributes and atomically replaces the whole
// vest-event list: old events are discarded, never merged. If generation
// fails nothing changes.
func (s *Service) EditGrant(ctx context.Context, userID, grantID uuid.UUID, in GrantInput) (*models.Grant, error) {
	schedule, err := vesting.Generate(in.terms())
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var grant models.Grant
		if err := tx.Where("grant_id = ? AND user_id = ?", grantID, userID).First(&grant).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrGrantNotFound
			}
			return err
		}

		grant.Kind = in.Kind
		grant.Instrument = in.Instrument
		grant.TotalUnits = in.TotalUnits
		grant.GrantDate = in.GrantDate
		grant.PriceAtGrant = in.PriceAtGrant
		grant.ESPPDiscount = in.ESPPDiscount
		grant.VestMonths = in.VestMonths
		grant.CliffMonths = in.CliffMonths
		grant.Notes = in.Notes
		if err := tx.Save(&grant).Error; err != nil {
			return err
		}

		if err := tx.Where("grant_id = ?", grantID).Delete(&models.VestEvent{}).Error; err != nil {
			return err
		}
		if err := insertSchedule(tx, grantID, schedule); err != nil {
			return err
		}
		return auditEvent(tx, grantID, "SCHEDULE_REGENERATED", map[string]interface{}{
			"event_count": len(schedule),
			"total_units": in.TotalUnits,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetGrant(ctx, userID, grantID)
}

// DeleteGrant removes the grant and cascades to its vest events, audit rows
// and recorded sales.
func (s *Service) DeleteGrant(ctx context.Context, userID, grantID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var grant models.Grant
		if err := tx.Where("grant_id = ? AND user_id = ?", grantID, userID).First(&grant).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrGrantNotFound
			}
			return err
		}
		var vestIDs []uuid.UUID
		if err := tx.Model(&models.VestEvent{}).Where("grant_id = ?", grantID).Pluck("vest_id", &vestIDs).Error; err != nil {
			return err
		}
		if len(vestIDs) > 0 {
			if err := tx.Where("vest_id IN ?", vestIDs).Delete(&models.StockSale{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("grant_id = ?", grantID).Delete(&models.VestEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("grant_id = ?", grantID).Delete(&models.GrantEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&grant).Error
	})
}

// ListGrants returns the user's grants without their schedules.
func (s *Service) ListGrants(ctx context.Context, userID uuid.UUID) ([]models.Grant, error) {
	var out []models.Grant
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("grant_date ASC").
		Find(&out).Error
	return out, err
}

// GetGrant returns one grant with its vest events ordered by date.
func (s *Service) GetGrant(ctx context.Context, userID, grantID uuid.UUID) (*models.Grant, error) {
	var grant models.Grant
	err := s.DB.WithContext(ctx).
		Preload("VestEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("vest_date ASC")
		}).
		Where("grant_id = ? AND user_id = ?", grantID, userID).
		First(&grant).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrGrantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// RecordWithholding sets the tax withholding on a vest event: units sold to
// cover and/or cash paid out of pocket. Withheld units may not exceed the
// units vesting, and what remains must still cover prior sales/exercises.
func (s *Service) RecordWithholding(ctx context.Context, userID, vestID uuid.UUID, unitsWithheld, cashForTaxes decimal.Decimal) (*models.VestEvent, error) {
	if unitsWithheld.IsNegative() || cashForTaxes.IsNegative() {
		return nil, ErrInvalidUnits
	}
	var out *models.VestEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockVestEvent(tx, userID, vestID)
		if err != nil {
			return err
		}
		if unitsWithheld.GreaterThan(ev.UnitsVesting) {
			return ErrWithheldExceeds
		}
		received := ev.UnitsVesting.Sub(unitsWithheld)
		if ev.UnitsSold.Add(ev.UnitsExercised).GreaterThan(received) {
			return ErrWithheldExceeds
		}
		ev.UnitsWithheld = unitsWithheld
		ev.CashForTaxes = cashForTaxes
		if err := tx.Save(ev).Error; err != nil {
			return err
		}
		out = ev
		return auditEvent(tx, ev.GrantID, "WITHHOLDING_RECORDED", map[string]interface{}{
			"vest_id":        vestID,
			"units_withheld": unitsWithheld,
			"cash_for_taxes": cashForTaxes,
		})
	})
	return out, err
}

// RecordSale books a sale of units out of a vest event and creates the
// StockSale row. Sold plus exercised can never exceed units received.
func (s *Service) RecordSale(ctx context.Context, userID, vestID uuid.UUID, units, pricePerUnit decimal.Decimal, saleDate time.Time) (*models.StockSale, error) {
	if !units.IsPositive() {
		return nil, ErrInvalidUnits
	}
	if pricePerUnit.IsNegative() {
		return nil, ErrInvalidSalePrice
	}
	var sale models.StockSale
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockVestEvent(tx, userID, vestID)
		if err != nil {
			return err
		}
		if units.GreaterThan(ev.UnitsHeld()) {
			return ErrUnitsExceedHeld
		}
		ev.UnitsSold = ev.UnitsSold.Add(units)
		if err := tx.Save(ev).Error; err != nil {
			return err
		}
		sale = models.StockSale{
			UserID:       userID,
			VestID:       vestID,
			SaleDate:     saleDate,
			UnitsSold:    units,
			PricePerUnit: pricePerUnit,
		}
		if err := tx.Create(&sale).Error; err != nil {
			return err
		}
		return auditEvent(tx, ev.GrantID, "SALE_RECORDED", map[string]interface{}{
			"vest_id":        vestID,
			"units_sold":     units,
			"price_per_unit": pricePerUnit,
		})
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListSales returns the user's recorded sales, newest first.
func (s *Service) ListSales(ctx context.Context, userID uuid.UUID) ([]models.StockSale, error) {
	var sales []models.StockSale
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sale_date DESC").
		Find(&sales).Error
	return sales, err
}

// RecordExercise books an ISO exercise against a vest event.
func (s *Service) RecordExercise(ctx context.Context, userID, vestID uuid.UUID, units decimal.Decimal) (*models.VestEvent, error) {
	if !units.IsPositive() {
		return nil, ErrInvalidUnits
	}
	var out *models.VestEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockVestEvent(tx, userID, vestID)
		if err != nil {
			return err
		}
		var grant models.Grant
		if err := tx.Where("grant_id = ?", ev.GrantID).First(&grant).Error; err != nil {
			return err
		}
		if grant.Instrument != string(vesting.InstrumentISO5Y) && grant.Instrument != string(vesting.InstrumentISO6Y) {
			return ErrNotISOGrant
		}
		if units.GreaterThan(ev.UnitsHeld()) {
			return ErrUnitsExceedHeld
		}
		ev.UnitsExercised = ev.UnitsExercised.Add(units)
		if err := tx.Save(ev).Error; err != nil {
			return err
		}
		out = ev
		return auditEvent(tx, ev.GrantID, "EXERCISE_RECORDED", map[string]interface{}{
			"vest_id":         vestID,
			"units_exercised": units,
		})
	})
	return out, err
}

// UpdateNote replaces the free-text note on a vest event.
func (s *Service) UpdateNote(ctx context.Context, userID, vestID uuid.UUID, note string) (*models.VestEvent, error) {
	var out *models.VestEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockVestEvent(tx, userID, vestID)
		if err != nil {
			return err
		}
		ev.Note = note
		if err := tx.Save(ev).Error; err != nil {
			return err
		}
		out = ev
		return nil
	})
	return out, err
}

// lockVestEvent loads a vest event and checks the owning grant belongs to
// userID. Ownership is enforced here so handlers cannot reach another
// account's rows.
func lockVestEvent(tx *gorm.DB, userID, vestID uuid.UUID) (*models.VestEvent, error) {
	var ev models.VestEvent
	err := tx.
		Joins("JOIN grants ON grants.grant_id = vest_events.grant_id").
		Where("vest_events.vest_id = ? AND grants.user_id = ?", vestID, userID).
		First(&ev).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrVestEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func insertSchedule(tx *gorm.DB, grantID uuid.UUID, schedule []vesting.ScheduledVest) error {
	for _, sv := range schedule {
		ev := models.VestEvent{
			GrantID:      grantID,
			VestDate:     sv.Date,
			UnitsVesting: sv.Units,
			IsCliff:      sv.Cliff,
		}
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}
	}
	return nil
}

func auditEvent(tx *gorm.DB, grantID uuid.UUID, eventType string, data map[string]interface{}) error {
	payload, _ := json.Marshal(data)
	return tx.Create(&models.GrantEvent{
		GrantID:   grantID,
		EventType: eventType,
		EventData: datatypes.JSON(payload),
	}).Error
}
