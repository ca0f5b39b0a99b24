// Package vesting turns a grant's static attributes into its full vest-event
// schedule. Generate is pure and deterministic: persistence, and replacement
// of any previously generated events, belong to the caller.
package vesting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the reason a grant was issued.
type Kind string

const (
	KindNewHire   Kind = "new_hire"
	KindAnnual    Kind = "annual"
	KindPromotion Kind = "promotion"
	KindKickass   Kind = "kickass"
	KindESPP      Kind = "espp"
	KindCash      Kind = "cash"
)

// Instrument is what the grant pays out in.
type Instrument string

const (
	InstrumentRSU   Instrument = "rsu"
	InstrumentISO5Y Instrument = "iso_5y"
	InstrumentISO6Y Instrument = "iso_6y"
	InstrumentCash  Instrument = "cash"
)

// GrantTerms are the attributes the schedule is derived from.
// VestMonths/CliffMonths override the policy defaults for promotion, kickass
// and cash grants; zero means "use the default".
type GrantTerms struct {
	Kind        Kind
	Instrument  Instrument
	TotalUnits  decimal.Decimal
	GrantDate   time.Time
	VestMonths  int
	CliffMonths int
}

// ScheduledVest is one entry of a generated schedule.
type ScheduledVest struct {
	Date  time.Time
	Units decimal.Decimal
	Cliff bool
}

// ValidationError reports a malformed grant attribute. The offending field is
// named so the caller can surface it on the right form input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid grant: %s %s", e.Field, e.Reason)
}

const (
	// ISO grants vest over a fixed 48-month window regardless of the 5y/6y
	// label; the label only moves the window's start.
	isoWindowMonths = 48
	isoCliffMonths  = 6

	defaultRSUVestMonths  = 60
	defaultRSUCliffMonths = 12
	defaultCashMonths     = 12
)

// Generate computes the ordered vest schedule for a grant. Idempotent: the
// same terms always yield the same events, and the event units always sum to
// TotalUnits exactly (the last event absorbs any division remainder).
func Generate(t GrantTerms) ([]ScheduledVest, error) {
	if !t.TotalUnits.IsPositive() {
		return nil, &ValidationError{Field: "total_units", Reason: "must be greater than zero"}
	}
	if t.GrantDate.IsZero() {
		return nil, &ValidationError{Field: "grant_date", Reason: "is required"}
	}

	switch {
	case t.Kind == KindESPP:
		if t.Instrument != InstrumentRSU {
			return nil, &ValidationError{Field: "instrument", Reason: fmt.Sprintf("%q is not valid for an ESPP grant", t.Instrument)}
		}
		return esppSchedule(t), nil

	case t.Kind == KindCash || t.Instrument == InstrumentCash:
		if t.Kind != KindCash || t.Instrument != InstrumentCash {
			return nil, &ValidationError{Field: "instrument", Reason: fmt.Sprintf("kind %q and instrument %q must both be cash", t.Kind, t.Instrument)}
		}
		return cashSchedule(t)

	case t.Instrument == InstrumentISO5Y || t.Instrument == InstrumentISO6Y:
		if !stockKind(t.Kind) {
			return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("%q is not valid for an ISO grant", t.Kind)}
		}
		return isoSchedule(t), nil

	case t.Instrument == InstrumentRSU:
		if !stockKind(t.Kind) {
			return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("%q is not valid for an RSU grant", t.Kind)}
		}
		return rsuSchedule(t)

	default:
		return nil, &ValidationError{Field: "instrument", Reason: fmt.Sprintf("%q is not recognized", t.Instrument)}
	}
}

func stockKind(k Kind) bool {
	switch k {
	case KindNewHire, KindAnnual, KindPromotion, KindKickass:
		return true
	}
	return false
}

// isoSchedule: the vesting window starts 12 (5y label) or 24 (6y label)
// months after grant, snapped to the 1st of the month, and is always exactly
// 48 months long. The cliff lands 6 months into the window and carries 6/48
// of the units; 42 monthly vests of 1/48 follow, the last one adjusted so the
// schedule sums to the grant total exactly.
func isoSchedule(t GrantTerms) []ScheduledVest {
	offsetMonths := 12
	if t.Instrument == InstrumentISO6Y {
		offsetMonths = 24
	}
	windowStart := addMonths(t.GrantDate, offsetMonths)
	windowStart = time.Date(windowStart.Year(), windowStart.Month(), 1, 0, 0, 0, 0, time.UTC)
	cliffDate := addMonths(windowStart, isoCliffMonths)

	perMonth := t.TotalUnits.Div(decimal.NewFromInt(isoWindowMonths))
	events := make([]ScheduledVest, 0, isoWindowMonths-isoCliffMonths+1)
	events = append(events, ScheduledVest{
		Date:  cliffDate,
		Units: perMonth.Mul(decimal.NewFromInt(isoCliffMonths)),
		Cliff: true,
	})
	for i := 1; i <= isoWindowMonths-isoCliffMonths; i++ {
		events = append(events, ScheduledVest{Date: addMonths(cliffDate, i), Units: perMonth})
	}
	return absorbRemainder(events, t.TotalUnits)
}

// rsuSchedule: semi-annual vesting on the fixed June 15 / November 15
// anchors. The cliff event lands on the first anchor on or after
// grant date + cliff and carries one period's worth of units per 6 cliff
// months; remaining periods vest at successive anchors.
func rsuSchedule(t GrantTerms) ([]ScheduledVest, error) {
	vestMonths := defaultRSUVestMonths
	if t.VestMonths != 0 && (t.Kind == KindPromotion || t.Kind == KindKickass) {
		vestMonths = t.VestMonths
	}
	cliffMonths := defaultRSUCliffMonths
	if t.CliffMonths != 0 && (t.Kind == KindPromotion || t.Kind == KindKickass) {
		cliffMonths = t.CliffMonths
	}
	if vestMonths < 12 || vestMonths > 60 || vestMonths%6 != 0 {
		return nil, &ValidationError{Field: "vest_months", Reason: "must be a multiple of 6 between 12 and 60"}
	}
	if cliffMonths < 6 || cliffMonths > vestMonths || cliffMonths%6 != 0 {
		return nil, &ValidationError{Field: "cliff_months", Reason: "must be a multiple of 6 no longer than the vesting period"}
	}

	totalPeriods := vestMonths / 6
	cliffPeriods := cliffMonths / 6
	perPeriod := t.TotalUnits.Div(decimal.NewFromInt(int64(totalPeriods)))

	first := nextVestAnchor(addMonths(t.GrantDate, cliffMonths))
	events := make([]ScheduledVest, 0, totalPeriods-cliffPeriods+1)
	events = append(events, ScheduledVest{
		Date:  first,
		Units: perPeriod.Mul(decimal.NewFromInt(int64(cliffPeriods))),
		Cliff: true,
	})
	current := first
	for i := 0; i < totalPeriods-cliffPeriods; i++ {
		current = followingVestAnchor(current)
		events = append(events, ScheduledVest{Date: current, Units: perPeriod})
	}
	return absorbRemainder(events, t.TotalUnits), nil
}

// cashSchedule: duration and cliff come from the grant (default 12/12).
// Cliff equal to the duration pays out once; otherwise payouts continue
// semi-annually until the duration, at exact month offsets from the grant
// date (cash does not settle on the stock anchors).
func cashSchedule(t GrantTerms) ([]ScheduledVest, error) {
	vestMonths := t.VestMonths
	if vestMonths == 0 {
		vestMonths = defaultCashMonths
	}
	cliffMonths := t.CliffMonths
	if cliffMonths == 0 {
		cliffMonths = vestMonths
	}
	if vestMonths < 6 || vestMonths%6 != 0 {
		return nil, &ValidationError{Field: "vest_months", Reason: "must be a positive multiple of 6"}
	}
	if cliffMonths < 6 || cliffMonths > vestMonths || cliffMonths%6 != 0 {
		return nil, &ValidationError{Field: "cliff_months", Reason: "must be a multiple of 6 no longer than the vesting period"}
	}

	totalPeriods := vestMonths / 6
	cliffPeriods := cliffMonths / 6
	perPeriod := t.TotalUnits.Div(decimal.NewFromInt(int64(totalPeriods)))

	events := make([]ScheduledVest, 0, totalPeriods-cliffPeriods+1)
	events = append(events, ScheduledVest{
		Date:  addMonths(t.GrantDate, cliffMonths),
		Units: perPeriod.Mul(decimal.NewFromInt(int64(cliffPeriods))),
		Cliff: true,
	})
	for i := 1; i <= totalPeriods-cliffPeriods; i++ {
		events = append(events, ScheduledVest{Date: addMonths(t.GrantDate, cliffMonths+6*i), Units: perPeriod})
	}
	return absorbRemainder(events, t.TotalUnits), nil
}

// esppSchedule: shares are owned immediately; the single event lands on the
// next purchase-settlement anchor (May 15 / October 15) on or after grant.
func esppSchedule(t GrantTerms) []ScheduledVest {
	return []ScheduledVest{{
		Date:  nextESPPAnchor(t.GrantDate),
		Units: t.TotalUnits,
	}}
}

// absorbRemainder replaces the last event's units with total minus everything
// before it, so the schedule sums to the grant total exactly.
func absorbRemainder(events []ScheduledVest, total decimal.Decimal) []ScheduledVest {
	if len(events) == 0 {
		return events
	}
	sum := decimal.Zero
	for _, ev := range events[:len(events)-1] {
		sum = sum.Add(ev.Units)
	}
	events[len(events)-1].Units = total.Sub(sum)
	return events
}

// nextVestAnchor returns the first June 15 / November 15 on or after d.
func nextVestAnchor(d time.Time) time.Time {
	year := d.Year()
	june := time.Date(year, time.June, 15, 0, 0, 0, 0, time.UTC)
	nov := time.Date(year, time.November, 15, 0, 0, 0, 0, time.UTC)
	switch {
	case !d.After(june):
		return june
	case !d.After(nov):
		return nov
	default:
		return time.Date(year+1, time.June, 15, 0, 0, 0, 0, time.UTC)
	}
}

// followingVestAnchor returns the anchor 6 months after an anchor date.
func followingVestAnchor(anchor time.Time) time.Time {
	if anchor.Month() == time.June {
		return time.Date(anchor.Year(), time.November, 15, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(anchor.Year()+1, time.June, 15, 0, 0, 0, 0, time.UTC)
}

// nextESPPAnchor returns the first May 15 / October 15 on or after d.
func nextESPPAnchor(d time.Time) time.Time {
	year := d.Year()
	may := time.Date(year, time.May, 15, 0, 0, 0, 0, time.UTC)
	oct := time.Date(year, time.October, 15, 0, 0, 0, 0, time.UTC)
	switch {
	case !d.After(may):
		return may
	case !d.After(oct):
		return oct
	default:
		return time.Date(year+1, time.May, 15, 0, 0, 0, 0, time.UTC)
	}
}

// addMonths advances by calendar months, clamping to the last day of the
// target month instead of letting Jan 31 + 1 month spill into March.
func addMonths(d time.Time, months int) time.Time {
	year, month, day := d.Date()
	m := int(month) + months
	y := year + (m-1)/12
	m = (m-1)%12 + 1
	if m <= 0 {
		m += 12
		y--
	}
	if last := daysInMonth(y, time.Month(m)); day > last {
		day = last
	}
	return time.Date(y, time.Month(m), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
