package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/f0rthspace/refinance-go/internal/models"
)

func snapshot(completed map[string]string) *models.Balances {
	return &models.Balances{Completed: completed}
}

func TestReconcileDelta(t *testing.T) {
	before := snapshot(map[string]string{"usd": "10.00"})
	after := snapshot(map[string]string{"usd": "15.00"})

	d := Reconcile(before, after, "USD")
	assert.Equal(t, "10.00", d.Old)
	assert.Equal(t, "15.00", d.New)
	assert.Equal(t, "USD", d.Currency)
	assert.Equal(t, "10.00 → 15.00", d.String())
}

func TestReconcileStaleAfterFallsBack(t *testing.T) {
	before := snapshot(map[string]string{"gel": "42.50"})

	// No refreshed snapshot yet: show the old value unchanged rather than
	// blocking.
	d := Reconcile(before, nil, "GEL")
	assert.Equal(t, "42.50", d.Old)
	assert.Equal(t, "42.50", d.New)

	// Refreshed snapshot lacks the currency: same fallback.
	d = Reconcile(before, snapshot(map[string]string{"usd": "1.00"}), "GEL")
	assert.Equal(t, "42.50", d.New)
}

func TestReconcileMissingBefore(t *testing.T) {
	after := snapshot(map[string]string{"eur": "7.00"})

	d := Reconcile(nil, after, "EUR")
	assert.Equal(t, "0.00", d.Old)
	assert.Equal(t, "7.00", d.New)
}

func TestReconcileUnparsableAmount(t *testing.T) {
	before := snapshot(map[string]string{"usd": "not-a-number"})
	after := snapshot(map[string]string{"usd": "3.00"})

	d := Reconcile(before, after, "USD")
	assert.Equal(t, "0.00", d.Old)
	assert.Equal(t, "3.00", d.New)
}
