// Package devserver is an in-memory stand-in for the refinance backend. It
// implements the boundary contract the client core talks to, including the
// sentinel-URL provider stub, so flows can be exercised end to end without
// the real collaborator.
package devserver

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/f0rthspace/refinance-go/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDepositSettled = errors.New("deposit is not pending")
)

// treasuryEntityID receives/pays the legs of currency exchanges.
// keepzEntityID is the provider intake entity backing deposits.
const (
	treasuryEntityID = 100
	keepzEntityID    = 101
)

// Store holds all dev state behind one mutex. Everything is lost on restart,
// which is the point: the stub exists to exercise the client, not to keep
// money.
type Store struct {
	mu       sync.Mutex
	entities map[int64]models.EntityRef
	txs      map[int64]*models.Transaction
	deposits map[int64]*models.Deposit
	nextTx   int64
	nextDep  int64
	rates    models.RateTable
	sheets   []models.RateSheet
	now      func() time.Time
}

// NewStore seeds a store with demo entities and a fixed GEL-pivot rate
// sheet.
func NewStore() *Store {
	sheets := []models.RateSheet{{
		Currencies: []models.CurrencyRate{
			{Code: "USD", Rate: decimal.RequireFromString("2.70"), Quantity: decimal.NewFromInt(1)},
			{Code: "EUR", Rate: decimal.RequireFromString("3.10"), Quantity: decimal.NewFromInt(1)},
		},
	}}
	return &Store{
		entities: map[int64]models.EntityRef{
			1:                {ID: 1, Name: "alice", Active: true},
			2:                {ID: 2, Name: "bob", Active: true},
			treasuryEntityID: {ID: treasuryEntityID, Name: "treasury", Active: true},
			keepzEntityID:    {ID: keepzEntityID, Name: "keepz_in", Active: true},
		},
		txs:      make(map[int64]*models.Transaction),
		deposits: make(map[int64]*models.Deposit),
		rates:    models.NewRateTable(sheets),
		sheets:   sheets,
		now:      time.Now,
	}
}

// RateSheets returns the published sheets, newest first.
func (s *Store) RateSheets() []models.RateSheet {
	return s.sheets
}

// Entity looks up a seeded entity.
func (s *Store) Entity(id int64) (models.EntityRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	return e, ok
}

// CreateTransaction stores a new transaction. Status must be draft or
// completed; empty defaults to draft.
func (s *Store) CreateTransaction(fromID, toID int64, amount decimal.Decimal, currency, comment, status string, tagIDs []int64) (*models.Transaction, error) {
	if status == "" {
		status = models.StatusDraft
	}
	if status != models.StatusDraft && status != models.StatusCompleted {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[fromID]; !ok {
		return nil, fmt.Errorf("from entity %d: %w", fromID, ErrNotFound)
	}
	if _, ok := s.entities[toID]; !ok {
		return nil, fmt.Errorf("to entity %d: %w", toID, ErrNotFound)
	}
	s.nextTx++
	tx := &models.Transaction{
		ID:           s.nextTx,
		FromEntityID: fromID,
		ToEntityID:   toID,
		Amount:       amount.StringFixed(2),
		Currency:     strings.ToUpper(currency),
		Status:       status,
		Comment:      comment,
		TagIDs:       tagIDs,
	}
	s.txs[tx.ID] = tx
	return tx, nil
}

// CompleteTransaction moves a draft to completed. Completing an
// already-completed transaction is a no-op, so a repeated confirm call after
// a lost response stays safe.
func (s *Store) CompleteTransaction(id int64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, ErrNotFound
	}
	tx.Status = models.StatusCompleted
	return tx, nil
}

// Transaction fetches a transaction by id.
func (s *Store) Transaction(id int64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// Balances sums transactions for an entity per currency, split by status:
// credits for incoming, debits for outgoing. Matches the backend's balance
// derivation.
func (s *Store) Balances(entityID int64) (*models.Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[entityID]; !ok {
		return nil, ErrNotFound
	}

	sums := map[string]map[string]decimal.Decimal{
		models.StatusDraft:     {},
		models.StatusCompleted: {},
	}
	for _, tx := range s.txs {
		amount, err := decimal.NewFromString(tx.Amount)
		if err != nil {
			continue
		}
		bucket := sums[tx.Status]
		cur := strings.ToLower(tx.Currency)
		if tx.ToEntityID == entityID {
			bucket[cur] = bucket[cur].Add(amount)
		}
		if tx.FromEntityID == entityID {
			bucket[cur] = bucket[cur].Sub(amount)
		}
	}

	render := func(bucket map[string]decimal.Decimal) map[string]string {
		out := make(map[string]string, len(bucket))
		for cur, amt := range bucket {
			out[cur] = amt.StringFixed(2)
		}
		return out
	}
	return &models.Balances{
		Draft:     render(sums[models.StatusDraft]),
		Completed: render(sums[models.StatusCompleted]),
	}, nil
}

// Convert derives an exchange projection from the store's rate table.
func (s *Store) Convert(source, target string, sourceAmount, targetAmount *decimal.Decimal) *models.Conversion {
	return s.rates.Convert(source, target, sourceAmount, targetAmount)
}

// Exchange executes a conversion as two completed transactions through the
// treasury entity and returns the receipt.
func (s *Store) Exchange(entityID int64, source, target string, sourceAmount, targetAmount *decimal.Decimal) (*models.ExchangeReceipt, error) {
	conv := s.Convert(source, target, sourceAmount, targetAmount)
	if conv == nil {
		return nil, fmt.Errorf("no conversion from %s to %s", source, target)
	}
	comment := fmt.Sprintf("exchange %s→%s @ %s", strings.ToUpper(source), strings.ToUpper(target), conv.Rate.StringFixed(2))
	out, err := s.CreateTransaction(entityID, treasuryEntityID, conv.SourceAmount, source, comment, models.StatusCompleted, nil)
	if err != nil {
		return nil, err
	}
	in, err := s.CreateTransaction(treasuryEntityID, entityID, conv.TargetAmount, target, comment, models.StatusCompleted, nil)
	if err != nil {
		return nil, err
	}
	return &models.ExchangeReceipt{
		SourceCurrency: strings.ToUpper(source),
		SourceAmount:   conv.SourceAmount.StringFixed(2),
		TargetCurrency: strings.ToUpper(target),
		TargetAmount:   conv.TargetAmount.StringFixed(2),
		Rate:           conv.Rate.StringFixed(2),
		Transactions:   []models.Transaction{*out, *in},
	}, nil
}

// CreateKeepzDeposit opens a pending deposit carrying the sentinel payment
// link.
func (s *Store) CreateKeepzDeposit(toEntityID int64, amount decimal.Decimal, currency, paymentURL string) (*models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	to, ok := s.entities[toEntityID]
	if !ok {
		return nil, fmt.Errorf("to entity %d: %w", toEntityID, ErrNotFound)
	}
	from := s.entities[keepzEntityID]
	s.nextDep++
	dep := &models.Deposit{
		ID:            s.nextDep,
		UUID:          uuid.NewString(),
		ActorEntityID: toEntityID,
		FromEntityID:  from.ID,
		FromEntity:    &from,
		ToEntityID:    to.ID,
		ToEntity:      &to,
		Amount:        amount.StringFixed(2),
		Currency:      strings.ToUpper(currency),
		Status:        models.DepositPending,
		Provider:      "keepz",
		Details: &models.DepositDetails{
			Keepz: &models.KeepzDetails{PaymentURL: paymentURL},
		},
		CreatedAt: s.now(),
	}
	s.deposits[dep.ID] = dep
	return dep, nil
}

// Deposit fetches a deposit by id.
func (s *Store) Deposit(id int64) (*models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dep, ok := s.deposits[id]
	if !ok {
		return nil, ErrNotFound
	}
	return dep, nil
}

// CompleteDeposit settles a pending deposit: flips it to completed and books
// the backing completed transaction so balances move.
func (s *Store) CompleteDeposit(id int64) (*models.Deposit, error) {
	s.mu.Lock()
	dep, ok := s.deposits[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if dep.Status != models.DepositPending {
		s.mu.Unlock()
		return nil, ErrDepositSettled
	}
	dep.Status = models.DepositCompleted
	modified := s.now()
	dep.ModifiedAt = &modified
	amount, _ := decimal.NewFromString(dep.Amount)
	toID := dep.ToEntityID
	currency := dep.Currency
	s.mu.Unlock()

	if _, err := s.CreateTransaction(keepzEntityID, toID, amount, currency, "keepz deposit", models.StatusCompleted, nil); err != nil {
		return nil, err
	}
	return dep, nil
}
