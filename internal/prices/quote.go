package prices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stephencoan8/vestx/internal/models"
)

// Quote is the result of a price lookup. Found distinguishes "no price exists
// on or before the requested date" from a legitimately zero price, so absence
// can never coalesce into $0 downstream.
type Quote struct {
	Price decimal.Decimal `json:"price"`
	Date  time.Time       `json:"date"`
	Found bool            `json:"found"`
}

// QuoteAsOf resolves the latest price on or before d from an in-memory slice.
// Points may be in any order. Used by callers that already fetched a user's
// price history and need one lookup per vest event.
func QuoteAsOf(points []models.PricePoint, d time.Time) Quote {
	var best Quote
	for _, p := range points {
		if p.EffectiveDate.After(d) {
			continue
		}
		if !best.Found || p.EffectiveDate.After(best.Date) {
			best = Quote{Price: p.PricePerUnit, Date: p.EffectiveDate, Found: true}
		}
	}
	return best
}
