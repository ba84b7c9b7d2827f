package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/f0rthspace/refinance-go/internal/api"
	"github.com/f0rthspace/refinance-go/internal/balance"
	"github.com/f0rthspace/refinance-go/internal/models"
)

// minAmount is the smallest transferable unit in any supported currency.
var minAmount = decimal.New(1, -2)

// TransactionService is the slice of the backend a TransactionFlow needs.
type TransactionService interface {
	CreateTransaction(ctx context.Context, params api.CreateTransactionParams) (*models.Transaction, error)
	CompleteTransaction(ctx context.Context, id int64) (*models.Transaction, error)
}

// SubmitParams are the form values for a pay/receive operation.
type SubmitParams struct {
	FromEntityID int64
	ToEntityID   int64
	Amount       string
	Currency     string
	Comment      string
	TagIDs       []int64
}

// TransactionFlow orchestrates one draft-create → confirm operation:
// form → confirm → success, with confirm → form on cancel. Exactly one
// create call per Submit and at most one confirm call per Confirm; no
// automatic retries.
type TransactionFlow struct {
	svc   TransactionService
	cache *balance.Cache
	log   *zap.Logger
	actor int64

	mu       sync.Mutex
	step     Step
	inFlight bool
	tx       *models.Transaction
	before   *models.Balances
}

// NewTransactionFlow builds a flow acting on behalf of the given entity.
func NewTransactionFlow(svc TransactionService, cache *balance.Cache, actorEntityID int64, log *zap.Logger) *TransactionFlow {
	if log == nil {
		log = zap.NewNop()
	}
	return &TransactionFlow{svc: svc, cache: cache, log: log, actor: actorEntityID}
}

// Step returns the flow's current position.
func (f *TransactionFlow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Transaction returns the draft (or completed) transaction carried by the
// flow, nil on the form step.
func (f *TransactionFlow) Transaction() *models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tx
}

// Submit validates the form and creates the draft transaction. On success
// the flow moves to confirm carrying the returned transaction; on any
// failure it stays on the form and nothing is mutated.
func (f *TransactionFlow) Submit(ctx context.Context, params SubmitParams) error {
	amount, err := decimal.NewFromString(params.Amount)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", params.Amount, err)
	}
	if amount.LessThan(minAmount) {
		return ErrAmountTooSmall
	}

	f.mu.Lock()
	if f.step != StepForm {
		f.mu.Unlock()
		return ErrInvalidState
	}
	if f.inFlight {
		f.mu.Unlock()
		return ErrBusy
	}
	f.inFlight = true
	f.mu.Unlock()
	defer f.clearInFlight()

	// Captured before the draft exists so the success screen can show the
	// pre-transition balance. Best effort: a miss just degrades the delta.
	before, err := f.cache.Get(ctx, f.actor)
	if err != nil {
		f.log.Warn("pre-submit balance snapshot unavailable",
			zap.Int64("entity_id", f.actor), zap.Error(err))
		before = nil
	}

	tx, err := f.svc.CreateTransaction(ctx, api.CreateTransactionParams{
		FromEntityID: params.FromEntityID,
		ToEntityID:   params.ToEntityID,
		Amount:       amount.StringFixed(2),
		Currency:     params.Currency,
		Comment:      params.Comment,
		Status:       models.StatusDraft,
		TagIDs:       params.TagIDs,
	})
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.step = StepConfirm
	f.tx = tx
	f.before = before
	f.mu.Unlock()

	f.log.Info("draft transaction created",
		zap.Int64("transaction_id", tx.ID),
		zap.String("amount", tx.Amount),
		zap.String("currency", tx.Currency))
	return nil
}

// Confirm completes the draft transaction. Valid only on the confirm step.
// On failure the flow stays on confirm and Confirm may be re-invoked; the
// server is expected to treat repeated completion safely.
func (f *TransactionFlow) Confirm(ctx context.Context) error {
	f.mu.Lock()
	if f.step != StepConfirm {
		f.mu.Unlock()
		return ErrInvalidState
	}
	if f.inFlight {
		f.mu.Unlock()
		return ErrBusy
	}
	f.inFlight = true
	id := f.tx.ID
	f.mu.Unlock()
	defer f.clearInFlight()

	tx, err := f.svc.CompleteTransaction(ctx, id)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.step = StepSuccess
	f.tx = tx
	f.mu.Unlock()

	f.cache.Invalidate(f.actor)
	f.log.Info("transaction completed", zap.Int64("transaction_id", tx.ID))
	return nil
}

// CancelConfirm returns from confirm to the form. The already-created draft
// is NOT deleted or rolled back: the backend defines no void operation, so
// the draft stays dangling server-side.
func (f *TransactionFlow) CancelConfirm() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepConfirm {
		return ErrInvalidState
	}
	if f.inFlight {
		return ErrBusy
	}
	f.log.Warn("confirm cancelled, draft transaction left dangling",
		zap.Int64("transaction_id", f.tx.ID))
	f.step = StepForm
	f.tx = nil
	f.before = nil
	return nil
}

// Reset returns the flow to the form from any step, clearing all payload.
func (f *TransactionFlow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return ErrBusy
	}
	f.step = StepForm
	f.tx = nil
	f.before = nil
	return nil
}

// Delta derives the before → after balance display for the completed
// transaction's currency. Valid only on the success step. The refreshed
// snapshot is read through the cache; if it has not caught up yet the old
// value is shown on both sides.
func (f *TransactionFlow) Delta(ctx context.Context) (balance.Delta, error) {
	f.mu.Lock()
	if f.step != StepSuccess {
		f.mu.Unlock()
		return balance.Delta{}, ErrInvalidState
	}
	before := f.before
	currency := f.tx.Currency
	f.mu.Unlock()

	after, err := f.cache.Get(ctx, f.actor)
	if err != nil {
		after = nil
	}
	return balance.Reconcile(before, after, currency), nil
}

func (f *TransactionFlow) clearInFlight() {
	f.mu.Lock()
	f.inFlight = false
	f.mu.Unlock()
}
