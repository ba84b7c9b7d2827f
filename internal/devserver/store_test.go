package devserver

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f0rthspace/refinance-go/internal/models"
)

func TestStoreBalancesSplitByStatus(t *testing.T) {
	s := NewStore()

	_, err := s.CreateTransaction(1, 2, decimal.RequireFromString("5"), "GEL", "", models.StatusDraft, nil)
	require.NoError(t, err)
	_, err = s.CreateTransaction(1, 2, decimal.RequireFromString("3"), "GEL", "", models.StatusCompleted, nil)
	require.NoError(t, err)

	receiver, err := s.Balances(2)
	require.NoError(t, err)
	assert.Equal(t, "5.00", receiver.Draft["gel"])
	assert.Equal(t, "3.00", receiver.Completed["gel"])

	sender, err := s.Balances(1)
	require.NoError(t, err)
	assert.Equal(t, "-5.00", sender.Draft["gel"])
	assert.Equal(t, "-3.00", sender.Completed["gel"])
}

func TestStoreCompleteTransactionMovesBalance(t *testing.T) {
	s := NewStore()

	tx, err := s.CreateTransaction(1, 2, decimal.RequireFromString("7.50"), "USD", "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, tx.Status, "empty status defaults to draft")

	_, err = s.CompleteTransaction(tx.ID)
	require.NoError(t, err)

	b, err := s.Balances(2)
	require.NoError(t, err)
	assert.Empty(t, b.Draft["usd"])
	assert.Equal(t, "7.50", b.Completed["usd"])

	// Completing again is a safe no-op.
	again, err := s.CompleteTransaction(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, again.Status)
}

func TestStoreExchangeBooksTwoLegs(t *testing.T) {
	s := NewStore()
	source := decimal.RequireFromString("10")

	receipt, err := s.Exchange(1, "USD", "GEL", &source, nil)
	require.NoError(t, err)
	assert.Equal(t, "2.70", receipt.Rate)
	assert.Equal(t, "27.00", receipt.TargetAmount)
	require.Len(t, receipt.Transactions, 2)

	b, err := s.Balances(1)
	require.NoError(t, err)
	assert.Equal(t, "-10.00", b.Completed["usd"])
	assert.Equal(t, "27.00", b.Completed["gel"])
}

func TestStoreExchangeRejectsSameCurrency(t *testing.T) {
	s := NewStore()
	amt := decimal.RequireFromString("10")

	_, err := s.Exchange(1, "USD", "USD", &amt, nil)
	assert.Error(t, err)
}

func TestStoreDepositLifecycle(t *testing.T) {
	s := NewStore()

	dep, err := s.CreateKeepzDeposit(1, decimal.RequireFromString("20"), "gel", "https://stub/pay")
	require.NoError(t, err)
	assert.Equal(t, models.DepositPending, dep.Status)
	assert.NotEmpty(t, dep.UUID)
	assert.Equal(t, "https://stub/pay", dep.PaymentURL())
	assert.Equal(t, "GEL", dep.Currency)

	settled, err := s.CompleteDeposit(dep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DepositCompleted, settled.Status)
	require.NotNil(t, settled.ModifiedAt)

	_, err = s.CompleteDeposit(dep.ID)
	assert.ErrorIs(t, err, ErrDepositSettled)

	b, err := s.Balances(1)
	require.NoError(t, err)
	assert.Equal(t, "20.00", b.Completed["gel"])
}

func TestStoreUnknownEntity(t *testing.T) {
	s := NewStore()

	_, err := s.CreateTransaction(1, 999, decimal.RequireFromString("1"), "GEL", "", "", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Balances(999)
	assert.ErrorIs(t, err, ErrNotFound)
}
