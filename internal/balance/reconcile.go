package balance

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/f0rthspace/refinance-go/internal/models"
)

// Delta is the before → after pair shown on operation success, both rendered
// with two decimal places.
type Delta struct {
	Currency string
	Old      string
	New      string
}

// String renders the delta as "10.00 → 15.00".
func (d Delta) String() string {
	return d.Old + " → " + d.New
}

// completedAmount reads the completed balance for a currency, tolerating a
// nil snapshot and an absent currency.
func completedAmount(b *models.Balances, currency string) (decimal.Decimal, bool) {
	if b == nil || b.Completed == nil {
		return decimal.Decimal{}, false
	}
	raw, ok := b.Completed[strings.ToLower(currency)]
	if !ok {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Reconcile derives the displayed balance delta for one currency across an
// operation. When the post-operation snapshot has not refreshed yet (or lacks
// the currency), the pre-operation value is treated as unchanged instead of
// blocking: a display compromise, not a financial statement.
func Reconcile(before, after *models.Balances, currency string) Delta {
	old, okOld := completedAmount(before, currency)
	if !okOld {
		old = decimal.Zero
	}
	updated, okNew := completedAmount(after, currency)
	if !okNew {
		updated = old
	}
	return Delta{
		Currency: strings.ToUpper(currency),
		Old:      old.StringFixed(2),
		New:      updated.StringFixed(2),
	}
}
