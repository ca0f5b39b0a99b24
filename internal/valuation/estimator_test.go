package valuation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephencoan8/vestx/internal/prices"
	"github.com/stephencoan8/vestx/internal/vesting"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func quote(price float64, d time.Time) prices.Quote {
	return prices.Quote{Price: decimal.NewFromFloat(price), Date: d, Found: true}
}

func flatRates() *TaxRates {
	return &TaxRates{
		Federal:        decimal.NewFromFloat(0.22),
		State:          decimal.NewFromFloat(0.05),
		Payroll:        decimal.NewFromFloat(0.0765),
		IncludePayroll: true,
		LongTerm:       decimal.NewFromFloat(0.15),
	}
}

// ISO basis is the strike recorded on the grant, never the vest-date price.
func TestEvaluate_CostBasis_ISOUsesStrike(t *testing.T) {
	asOf := date(2026, time.January, 1)
	ev := VestFacts{
		Instrument:   vesting.InstrumentISO5Y,
		VestDate:     date(2025, time.June, 1),
		UnitsVesting: decimal.NewFromInt(100),
		StrikePrice:  decimal.NewFromInt(10),
	}
	r, err := Evaluate(ev, quote(50, ev.VestDate), quote(60, asOf), flatRates(), asOf)
	require.NoError(t, err)
	assert.True(t, r.CostBasisPerUnit.Equal(decimal.NewFromInt(10)),
		"ISO basis must be strike, got %s", r.CostBasisPerUnit)
	// 100 held × (60 − 10)
	assert.True(t, r.UnrealizedGain.Equal(decimal.NewFromInt(5000)))
}

func TestEvaluate_CostBasis_RSUUsesVestPrice(t *testing.T) {
	asOf := date(2026, time.January, 1)
	ev := VestFacts{
		Instrument:   vesting.InstrumentRSU,
		VestDate:     date(2025, time.June, 1),
		UnitsVesting: decimal.NewFromInt(100),
	}
	r, err := Evaluate(ev, quote(50, ev.VestDate), quote(60, asOf), flatRates(), asOf)
	require.NoError(t, err)
	assert.True(t, r.CostBasisPerUnit.Equal(decimal.NewFromInt(50)))
	assert.True(t, r.GrossValueAtVest.Equal(decimal.NewFromInt(5000)))
	assert.True(t, r.UnrealizedGain.Equal(decimal.NewFromInt(1000)))
}

func TestEvaluate_CostBasis_ESPPDiscounted(t *testing.T) {
	asOf := date(2025, time.June, 1)
	ev := VestFacts{
		Instrument:   vesting.InstrumentRSU,
		IsESPP:       true,
		VestDate:     date(2024, time.October, 15),
		UnitsVesting: decimal.NewFromInt(10),
		ESPPDiscount: decimal.NewFromFloat(0.15),
	}
	r, err := Evaluate(ev, quote(100, ev.VestDate), quote(100, asOf), flatRates(), asOf)
	require.NoError(t, err)
	assert.True(t, r.CostBasisPerUnit.Equal(decimal.NewFromInt(85)))
}

// The long-term boundary is exactly 365 days held, not a calendar-year rule.
func TestEvaluate_HoldingPeriodBoundary(t *testing.T) {
	asOf := date(2026, time.March, 1)
	for _, tc := range []struct {
		daysHeld int
		longTerm bool
	}{
		{364, false},
		{365, true},
	} {
		ev := VestFacts{
			Instrument:   vesting.InstrumentRSU,
			VestDate:     asOf.AddDate(0, 0, -tc.daysHeld),
			UnitsVesting: decimal.NewFromInt(10),
		}
		r, err := Evaluate(ev, quote(50, ev.VestDate), quote(50, asOf), flatRates(), asOf)
		require.NoError(t, err)
		assert.True(t, r.Vested)
		assert.Equal(t, tc.daysHeld, r.HoldingDays)
		assert.Equal(t, tc.longTerm, r.LongTerm, "days held %d", tc.daysHeld)
	}
}

func TestEvaluate_FutureVestHasNoHoldingPeriod(t *testing.T) {
	asOf := date(2025, time.January, 1)
	ev := VestFacts{
		Instrument:   vesting.InstrumentRSU,
		VestDate:     date(2025, time.June, 15),
		UnitsVesting: decimal.NewFromInt(10),
	}
	r, err := Evaluate(ev, quote(50, ev.VestDate), quote(50, asOf), flatRates(), asOf)
	require.NoError(t, err)
	assert.False(t, r.Vested)
	assert.Zero(t, r.HoldingDays)
	assert.False(t, r.LongTerm)
	assert.True(t, r.EstimatedTaxOnSale.IsZero())
}

// Cash grants cannot appreciate: gain is zero no matter the supplied price.
func TestEvaluate_CashGainAlwaysZero(t *testing.T) {
	asOf := date(2026, time.January, 1)
	ev := VestFacts{
		Instrument:   vesting.InstrumentCash,
		VestDate:     date(2025, time.March, 1),
		UnitsVesting: decimal.NewFromInt(50000),
	}
	r, err := Evaluate(ev, prices.Quote{}, quote(99999, asOf), flatRates(), asOf)
	require.NoError(t, err)
	assert.True(t, r.CostBasisPerUnit.Equal(decimal.NewFromInt(1)))
	assert.True(t, r.GrossValueAtVest.Equal(decimal.NewFromInt(50000)))
	assert.True(t, r.UnrealizedGain.IsZero())
	assert.True(t, r.CurrentMarketValue.Equal(decimal.NewFromInt(50000)))
}

func TestEvaluate_TaxAtVest(t *testing.T) {
	asOf := date(2025, time.July, 1)
	ev := VestFacts{
		Instrument:   vesting.InstrumentRSU,
		VestDate:     date(2025, time.June, 15),
		UnitsVesting: decimal.NewFromInt(20),
	}
	r, err := Evaluate(ev, quote(50, ev.VestDate), quote(50, asOf), flatRates(), asOf)
	require.NoError(t, err)
	// 1000 × (0.22 + 0.05 + 0.0765)
	assert.True(t, r.EstimatedTaxAtVest.Equal(decimal.RequireFromString("346.5")),
		"got %s", r.EstimatedTaxAtVest)

	noPayroll := flatRates()
	noPayroll.IncludePayroll = false
	r, err = Evaluate(ev, quote(50, ev.VestDate), quote(50, asOf), noPayroll, asOf)
	require.NoError(t, err)
	assert.True(t, r.EstimatedTaxAtVest.Equal(decimal.NewFromInt(270)))
}

// Recorded withholding (shares sold to cover plus cash paid) wins over the
// flat-rate estimate when the user entered it.
func TestEvaluate_RecordedWithholding(t *testing.T) {
	asOf := date(2025, time.July, 1)
	ev := VestFacts{
		Instrument:    vesting.InstrumentRSU,
		VestDate:      date(2025, time.June, 15),
		UnitsVesting:  decimal.NewFromInt(20),
		UnitsWithheld: decimal.NewFromInt(5),
		CashForTaxes:  decimal.NewFromInt(100),
	}
	r, err := Evaluate(ev, quote(50, ev.VestDate), quote(50, asOf), flatRates(), asOf)
	require.NoError(t, err)
	assert.True(t, r.TaxWithheld.Equal(decimal.NewFromInt(350))) // 5×50 + 100
	assert.True(t, r.NetValueAtVest.Equal(decimal.NewFromInt(650)))
	assert.True(t, r.UnitsReceived.Equal(decimal.NewFromInt(15)))
}

// A loss must come through as a negative sale-tax figure under both holding
// branches; clamping to zero would hide the sign.
func TestEvaluate_LossPropagatesNegative(t *testing.T) {
	for _, daysHeld := range []int{100, 400} {
		asOf := date(2026, time.June, 1)
		ev := VestFacts{
			Instrument:   vesting.InstrumentRSU,
			VestDate:     asOf.AddDate(0, 0, -daysHeld),
			UnitsVesting: decimal.NewFromInt(100),
		}
		// Bought (taxed) at 50, now worth 45: gain = −500.
		r, err := Evaluate(ev, quote(50, ev.VestDate), quote(45, asOf), flatRates(), asOf)
		require.NoError(t, err)
		assert.True(t, r.UnrealizedGain.Equal(decimal.NewFromInt(-500)))
		assert.True(t, r.EstimatedTaxOnSale.IsNegative(),
			"days held %d: expected negative tax, got %s", daysHeld, r.EstimatedTaxOnSale)
	}
}

// A missing price must be a distinguishable outcome, never a silent zero.
func TestEvaluate_MissingPrice(t *testing.T) {
	asOf := date(2025, time.July, 1)
	ev := VestFacts{
		Instrument:   vesting.InstrumentRSU,
		VestDate:     date(2025, time.June, 15),
		UnitsVesting: decimal.NewFromInt(20),
	}
	_, err := Evaluate(ev, prices.Quote{}, quote(50, asOf), flatRates(), asOf)
	require.ErrorIs(t, err, ErrPriceUnavailable)

	_, err = Evaluate(ev, quote(50, ev.VestDate), prices.Quote{}, flatRates(), asOf)
	require.ErrorIs(t, err, ErrPriceUnavailable)
}

// A found price of zero is a legitimate value and must evaluate normally.
func TestEvaluate_ZeroPriceIsNotMissing(t *testing.T) {
	asOf := date(2025, time.July, 1)
	ev := VestFacts{
		Instrument:   vesting.InstrumentRSU,
		VestDate:     date(2025, time.June, 15),
		UnitsVesting: decimal.NewFromInt(20),
	}
	r, err := Evaluate(ev, quote(0, ev.VestDate), quote(0, asOf), flatRates(), asOf)
	require.NoError(t, err)
	assert.True(t, r.GrossValueAtVest.IsZero())
}

func TestEvaluate_MissingTaxPreference(t *testing.T) {
	asOf := date(2025, time.July, 1)
	ev := VestFacts{
		Instrument:   vesting.InstrumentRSU,
		VestDate:     date(2025, time.June, 15),
		UnitsVesting: decimal.NewFromInt(20),
	}
	_, err := Evaluate(ev, quote(50, ev.VestDate), quote(50, asOf), nil, asOf)
	require.ErrorIs(t, err, ErrNoTaxPreference)
}

func TestEvaluate_RejectsInconsistentFacts(t *testing.T) {
	asOf := date(2025, time.July, 1)
	ev := VestFacts{
		Instrument:    vesting.InstrumentRSU,
		VestDate:      date(2025, time.June, 15),
		UnitsVesting:  decimal.NewFromInt(10),
		UnitsWithheld: decimal.NewFromInt(11),
	}
	_, err := Evaluate(ev, quote(50, ev.VestDate), quote(50, asOf), flatRates(), asOf)
	var ferr *FactsError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "units_withheld", ferr.Field)

	ev.UnitsWithheld = decimal.NewFromInt(2)
	ev.UnitsSold = decimal.NewFromInt(9) // received is 8
	_, err = Evaluate(ev, quote(50, ev.VestDate), quote(50, asOf), flatRates(), asOf)
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "units_sold", ferr.Field)
}
