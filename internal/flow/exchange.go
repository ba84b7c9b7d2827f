package flow

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/f0rthspace/refinance-go/internal/api"
	"github.com/f0rthspace/refinance-go/internal/balance"
	"github.com/f0rthspace/refinance-go/internal/models"
)

// InputMode names which side of the exchange the user is editing. The other
// side is always derived.
type InputMode int

const (
	InputSource InputMode = iota
	InputTarget
)

func (m InputMode) String() string {
	if m == InputTarget {
		return "target"
	}
	return "source"
}

// ExchangeService is the slice of the backend an ExchangeFlow needs.
type ExchangeService interface {
	ExecuteExchange(ctx context.Context, params api.ExchangeParams) (*models.ExchangeReceipt, error)
}

// PreviewInput are the exchange form values. Exactly one of SourceAmount and
// TargetAmount must be set; it becomes the driving side.
type PreviewInput struct {
	SourceCurrency string
	TargetCurrency string
	SourceAmount   *decimal.Decimal
	TargetAmount   *decimal.Decimal
}

// ExchangeFlow orchestrates preview → execute for a currency conversion:
// form → preview → success, with preview → form on cancel. The preview is a
// pure local projection from the rate table; no entity exists server-side
// until Execute, so cancelling has no side effect.
type ExchangeFlow struct {
	svc   ExchangeService
	cache *balance.Cache
	log   *zap.Logger
	actor int64

	mu       sync.Mutex
	rates    models.RateTable
	step     Step
	inFlight bool
	mode     InputMode
	preview  *models.ExchangePreview
	before   *models.Balances
	receipt  *models.ExchangeReceipt
}

// NewExchangeFlow builds a flow acting on behalf of the given entity. Rates
// come from the rates endpoint via models.NewRateTable.
func NewExchangeFlow(svc ExchangeService, cache *balance.Cache, rates models.RateTable, actorEntityID int64, log *zap.Logger) *ExchangeFlow {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExchangeFlow{svc: svc, cache: cache, rates: rates, log: log, actor: actorEntityID}
}

// SetRates replaces the rate table, e.g. after a refetch.
func (f *ExchangeFlow) SetRates(rates models.RateTable) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates = rates
}

// Step returns the flow's current position.
func (f *ExchangeFlow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Preview returns the current projection, nil outside preview/success.
func (f *ExchangeFlow) Preview() *models.ExchangePreview {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.preview
}

// Receipt returns the server receipt, nil before success.
func (f *ExchangeFlow) Receipt() *models.ExchangeReceipt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipt
}

// RequestPreview derives a projection purely from the form values and the
// rate table; no network call is made. The flow moves to preview only when
// the currencies differ and exactly one valid amount is set.
func (f *ExchangeFlow) RequestPreview(ctx context.Context, input PreviewInput) error {
	f.mu.Lock()
	if f.step != StepForm {
		f.mu.Unlock()
		return ErrInvalidState
	}
	rates := f.rates
	f.mu.Unlock()

	if input.SourceCurrency == "" || input.TargetCurrency == "" {
		return ErrNoConversion
	}
	if strings.EqualFold(input.SourceCurrency, input.TargetCurrency) {
		return ErrSameCurrency
	}
	driving := input.SourceAmount
	mode := InputSource
	if driving == nil {
		driving = input.TargetAmount
		mode = InputTarget
	}
	if driving == nil {
		return ErrNoConversion
	}
	if driving.LessThan(minAmount) {
		return ErrAmountTooSmall
	}

	conv := rates.Convert(input.SourceCurrency, input.TargetCurrency, input.SourceAmount, input.TargetAmount)
	if conv == nil {
		return ErrNoConversion
	}

	// Balances as of preview time, for the post-success delta display.
	before := f.cache.Peek(f.actor)
	if before == nil {
		var err error
		before, err = f.cache.Get(ctx, f.actor)
		if err != nil {
			f.log.Warn("pre-exchange balance snapshot unavailable",
				zap.Int64("entity_id", f.actor), zap.Error(err))
		}
	}

	f.mu.Lock()
	f.step = StepPreview
	f.mode = mode
	f.before = before
	f.preview = &models.ExchangePreview{
		SourceCurrency: input.SourceCurrency,
		SourceAmount:   conv.SourceAmount.StringFixed(2),
		TargetCurrency: input.TargetCurrency,
		TargetAmount:   conv.TargetAmount.StringFixed(2),
		Rate:           conv.Rate.StringFixed(2),
	}
	f.mu.Unlock()
	return nil
}

// Execute submits the previewed exchange. Only the driving side's amount is
// sent; the server recomputes the other side authoritatively, so the local
// floor-truncated figure is never submitted as ground truth. On failure the
// flow stays on preview and Execute may be re-invoked.
func (f *ExchangeFlow) Execute(ctx context.Context) error {
	f.mu.Lock()
	if f.step != StepPreview {
		f.mu.Unlock()
		return ErrInvalidState
	}
	if f.inFlight {
		f.mu.Unlock()
		return ErrBusy
	}
	f.inFlight = true
	params := api.ExchangeParams{
		EntityID:       f.actor,
		SourceCurrency: f.preview.SourceCurrency,
		TargetCurrency: f.preview.TargetCurrency,
	}
	switch f.mode {
	case InputTarget:
		params.TargetAmount = f.preview.TargetAmount
	default:
		params.SourceAmount = f.preview.SourceAmount
	}
	f.mu.Unlock()
	defer f.clearInFlight()

	receipt, err := f.svc.ExecuteExchange(ctx, params)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.step = StepSuccess
	f.receipt = receipt
	f.mu.Unlock()

	f.cache.Invalidate(f.actor)
	f.log.Info("exchange executed",
		zap.String("source", receipt.SourceCurrency),
		zap.String("target", receipt.TargetCurrency),
		zap.String("rate", receipt.Rate))
	return nil
}

// CancelPreview returns to the form. Nothing was created server-side, so
// there is nothing to undo.
func (f *ExchangeFlow) CancelPreview() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepPreview {
		return ErrInvalidState
	}
	if f.inFlight {
		return ErrBusy
	}
	f.step = StepForm
	f.preview = nil
	f.before = nil
	return nil
}

// Reset returns the flow to the form from any step, clearing all payload.
func (f *ExchangeFlow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return ErrBusy
	}
	f.step = StepForm
	f.mode = InputSource
	f.preview = nil
	f.before = nil
	f.receipt = nil
	return nil
}

// Deltas derives the before → after balance display for both legs of the
// executed exchange. Valid only on the success step.
func (f *ExchangeFlow) Deltas(ctx context.Context) (source, target balance.Delta, err error) {
	f.mu.Lock()
	if f.step != StepSuccess {
		f.mu.Unlock()
		return balance.Delta{}, balance.Delta{}, ErrInvalidState
	}
	before := f.before
	srcCur := f.receipt.SourceCurrency
	dstCur := f.receipt.TargetCurrency
	f.mu.Unlock()

	after, getErr := f.cache.Get(ctx, f.actor)
	if getErr != nil {
		after = nil
	}
	return balance.Reconcile(before, after, srcCur), balance.Reconcile(before, after, dstCur), nil
}

func (f *ExchangeFlow) clearInFlight() {
	f.mu.Lock()
	f.inFlight = false
	f.mu.Unlock()
}
