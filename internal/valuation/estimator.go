// Package valuation enriches a vest event with cost basis, value, holding
// period and flat-rate tax estimates. Evaluate is the single authoritative
// entry point: every page that shows a vest event calls it once and passes
// the result onward instead of re-deriving any field.
//
// Every input is an explicit parameter. The estimator reads no session, no
// database and no clock, so it behaves identically from a request handler, a
// batch job or a test.
package valuation

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stephencoan8/vestx/internal/prices"
	"github.com/stephencoan8/vestx/internal/vesting"
)

var (
	// ErrPriceUnavailable means a required price lookup came back not-found.
	// Distinct from a price that is legitimately zero.
	ErrPriceUnavailable = errors.New("no price available for the requested date")

	// ErrNoTaxPreference means the caller had no tax rates to supply.
	// Defaults are never substituted here.
	ErrNoTaxPreference = errors.New("tax preference unavailable")
)

// LongTermHoldingDays is the exact long-term capital-gains boundary:
// 365 days held is long-term, 364 is short-term.
const LongTermHoldingDays = 365

// VestFacts are the recorded attributes of one vest event plus the grant
// fields the estimate depends on.
type VestFacts struct {
	Instrument     vesting.Instrument
	IsESPP         bool
	VestDate       time.Time
	UnitsVesting   decimal.Decimal
	UnitsWithheld  decimal.Decimal
	CashForTaxes   decimal.Decimal
	UnitsSold      decimal.Decimal
	UnitsExercised decimal.Decimal
	StrikePrice    decimal.Decimal // grant price per unit; ISO strike
	ESPPDiscount   decimal.Decimal // 0–1, espp grants only
}

// TaxRates are a user's flat estimation rates.
type TaxRates struct {
	Federal        decimal.Decimal
	State          decimal.Decimal
	Payroll        decimal.Decimal
	IncludePayroll bool
	LongTerm       decimal.Decimal
}

// Result carries every figure the presentation layer may show for one event.
type Result struct {
	CostBasisPerUnit   decimal.Decimal `json:"cost_basis_per_unit"`
	GrossValueAtVest   decimal.Decimal `json:"gross_value_at_vest"`
	TaxWithheld        decimal.Decimal `json:"tax_withheld"`
	NetValueAtVest     decimal.Decimal `json:"net_value_at_vest"`
	UnitsReceived      decimal.Decimal `json:"units_received"`
	UnitsHeld          decimal.Decimal `json:"units_held"`
	CurrentMarketValue decimal.Decimal `json:"current_market_value"`
	UnrealizedGain     decimal.Decimal `json:"unrealized_gain"`
	Vested             bool            `json:"vested"`
	HoldingDays        int             `json:"holding_days"`
	LongTerm           bool            `json:"long_term"`
	EstimatedTaxAtVest decimal.Decimal `json:"estimated_tax_at_vest"`
	EstimatedTaxOnSale decimal.Decimal `json:"estimated_tax_on_sale"`
}

// FactsError reports inconsistent vest-event fields.
type FactsError struct {
	Field  string
	Reason string
}

func (e *FactsError) Error() string {
	return fmt.Sprintf("invalid vest event: %s %s", e.Field, e.Reason)
}

var one = decimal.NewFromInt(1)

// Evaluate computes the valuation of one vest event as of asOf. atVest and
// current are the caller's price-lookup results for the vest date and for
// asOf; both must be Found for share-settled instruments (cash grants ignore
// prices entirely). A nil pref is an error, never a default.
func Evaluate(ev VestFacts, atVest, current prices.Quote, pref *TaxRates, asOf time.Time) (Result, error) {
	if pref == nil {
		return Result{}, ErrNoTaxPreference
	}
	if ev.UnitsWithheld.GreaterThan(ev.UnitsVesting) {
		return Result{}, &FactsError{Field: "units_withheld", Reason: "exceeds units vesting"}
	}
	received := ev.UnitsVesting.Sub(ev.UnitsWithheld)
	if ev.UnitsSold.Add(ev.UnitsExercised).GreaterThan(received) {
		return Result{}, &FactsError{Field: "units_sold", Reason: "sold plus exercised exceeds units received"}
	}

	isCash := ev.Instrument == vesting.InstrumentCash
	if !isCash {
		if !atVest.Found {
			return Result{}, fmt.Errorf("vest-date price: %w", ErrPriceUnavailable)
		}
		if !current.Found {
			return Result{}, fmt.Errorf("current price: %w", ErrPriceUnavailable)
		}
	}

	r := Result{UnitsReceived: received}
	r.UnitsHeld = received.Sub(ev.UnitsSold).Sub(ev.UnitsExercised)
	r.CostBasisPerUnit = costBasis(ev, atVest)

	if isCash {
		// Units are already dollars: value per unit is pinned at 1 and the
		// position cannot appreciate.
		r.GrossValueAtVest = ev.UnitsVesting
		r.CurrentMarketValue = r.UnitsHeld
		r.UnrealizedGain = decimal.Zero
	} else {
		r.GrossValueAtVest = ev.UnitsVesting.Mul(atVest.Price)
		r.CurrentMarketValue = r.UnitsHeld.Mul(current.Price)
		r.UnrealizedGain = r.UnitsHeld.Mul(current.Price.Sub(r.CostBasisPerUnit))
	}

	r.EstimatedTaxAtVest = r.GrossValueAtVest.Mul(ordinaryRate(pref))

	// Recorded withholding wins over the estimate when the user entered it.
	if ev.UnitsWithheld.IsPositive() || ev.CashForTaxes.IsPositive() {
		withheldValue := ev.CashForTaxes
		if !isCash {
			withheldValue = withheldValue.Add(ev.UnitsWithheld.Mul(atVest.Price))
		} else {
			withheldValue = withheldValue.Add(ev.UnitsWithheld)
		}
		r.TaxWithheld = withheldValue
	} else {
		r.TaxWithheld = r.EstimatedTaxAtVest
	}
	r.NetValueAtVest = r.GrossValueAtVest.Sub(r.TaxWithheld)

	r.Vested = !ev.VestDate.After(asOf)
	if r.Vested {
		r.HoldingDays = int(asOf.Sub(ev.VestDate).Hours() / 24)
		r.LongTerm = r.HoldingDays >= LongTermHoldingDays
		r.EstimatedTaxOnSale = saleTax(r.UnrealizedGain, r.LongTerm, pref)
	}
	return r, nil
}

// costBasis applies the per-instrument rule the whole system exists to get
// right: ISO basis is the strike paid, not the vest price; RSU/RSA basis is
// the vest price (already taxed as ordinary income); ESPP basis is the
// discounted purchase price; cash basis is 1 per unit.
func costBasis(ev VestFacts, atVest prices.Quote) decimal.Decimal {
	switch {
	case ev.Instrument == vesting.InstrumentCash:
		return one
	case ev.Instrument == vesting.InstrumentISO5Y, ev.Instrument == vesting.InstrumentISO6Y:
		return ev.StrikePrice
	case ev.IsESPP:
		return atVest.Price.Mul(one.Sub(ev.ESPPDiscount))
	default:
		return atVest.Price
	}
}

func ordinaryRate(pref *TaxRates) decimal.Decimal {
	rate := pref.Federal.Add(pref.State)
	if pref.IncludePayroll {
		rate = rate.Add(pref.Payroll)
	}
	return rate
}

// saleTax estimates the tax if sold today. A loss propagates as a negative
// figure; clipping to zero would hide the sign from the caller.
func saleTax(gain decimal.Decimal, longTerm bool, pref *TaxRates) decimal.Decimal {
	if longTerm {
		return gain.Mul(pref.LongTerm.Add(pref.State))
	}
	return gain.Mul(pref.Federal.Add(pref.State))
}
