package flow

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f0rthspace/refinance-go/internal/api"
	"github.com/f0rthspace/refinance-go/internal/models"
)

type fakeExchangeService struct {
	calls      int
	err        error
	lastParams api.ExchangeParams
}

func (s *fakeExchangeService) ExecuteExchange(ctx context.Context, params api.ExchangeParams) (*models.ExchangeReceipt, error) {
	s.calls++
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	return &models.ExchangeReceipt{
		SourceCurrency: params.SourceCurrency,
		SourceAmount:   "10.00",
		TargetCurrency: params.TargetCurrency,
		TargetAmount:   "27.00",
		Rate:           "2.70",
		Transactions: []models.Transaction{
			{ID: 1, Status: models.StatusCompleted},
			{ID: 2, Status: models.StatusCompleted},
		},
	}, nil
}

func usdRates(t *testing.T) models.RateTable {
	t.Helper()
	return models.NewRateTable([]models.RateSheet{{
		Currencies: []models.CurrencyRate{
			{Code: "USD", Rate: decimal.RequireFromString("2.70"), Quantity: decimal.NewFromInt(1)},
		},
	}})
}

func sourceInput(amount string) PreviewInput {
	d := decimal.RequireFromString(amount)
	return PreviewInput{
		SourceCurrency: "USD",
		TargetCurrency: "GEL",
		SourceAmount:   &d,
	}
}

func TestExchangeFlowPreviewIsLocal(t *testing.T) {
	svc := &fakeExchangeService{}
	cache, _ := newTestCache(nil)
	f := NewExchangeFlow(svc, cache, usdRates(t), 1, nil)

	require.NoError(t, f.RequestPreview(context.Background(), sourceInput("10")))
	assert.Equal(t, StepPreview, f.Step())
	assert.Equal(t, 0, svc.calls, "preview must not call the backend")

	p := f.Preview()
	require.NotNil(t, p)
	assert.Equal(t, "10.00", p.SourceAmount)
	assert.Equal(t, "27.00", p.TargetAmount)
	assert.Equal(t, "2.70", p.Rate)
}

func TestExchangeFlowPreviewRejections(t *testing.T) {
	svc := &fakeExchangeService{}
	cache, _ := newTestCache(nil)
	f := NewExchangeFlow(svc, cache, usdRates(t), 1, nil)

	same := sourceInput("10")
	same.TargetCurrency = "USD"
	assert.ErrorIs(t, f.RequestPreview(context.Background(), same), ErrSameCurrency)

	neither := sourceInput("10")
	neither.SourceAmount = nil
	assert.ErrorIs(t, f.RequestPreview(context.Background(), neither), ErrNoConversion)

	both := sourceInput("10")
	d := decimal.RequireFromString("27")
	both.TargetAmount = &d
	assert.ErrorIs(t, f.RequestPreview(context.Background(), both), ErrNoConversion)

	tiny := sourceInput("0.001")
	assert.ErrorIs(t, f.RequestPreview(context.Background(), tiny), ErrAmountTooSmall)

	unknown := sourceInput("10")
	unknown.SourceCurrency = "JPY"
	assert.ErrorIs(t, f.RequestPreview(context.Background(), unknown), ErrNoConversion)

	assert.Equal(t, StepForm, f.Step())
}

func TestExchangeFlowExecuteSubmitsDrivingSideOnly(t *testing.T) {
	t.Run("source driving", func(t *testing.T) {
		svc := &fakeExchangeService{}
		cache, _ := newTestCache(nil)
		f := NewExchangeFlow(svc, cache, usdRates(t), 1, nil)

		require.NoError(t, f.RequestPreview(context.Background(), sourceInput("10")))
		require.NoError(t, f.Execute(context.Background()))

		assert.Equal(t, int64(1), svc.lastParams.EntityID)
		assert.Equal(t, "10.00", svc.lastParams.SourceAmount)
		assert.Empty(t, svc.lastParams.TargetAmount, "non-driving amount must be omitted")
	})

	t.Run("target driving", func(t *testing.T) {
		svc := &fakeExchangeService{}
		cache, _ := newTestCache(nil)
		f := NewExchangeFlow(svc, cache, usdRates(t), 1, nil)

		d := decimal.RequireFromString("27")
		require.NoError(t, f.RequestPreview(context.Background(), PreviewInput{
			SourceCurrency: "USD",
			TargetCurrency: "GEL",
			TargetAmount:   &d,
		}))
		require.NoError(t, f.Execute(context.Background()))

		assert.Equal(t, "27.00", svc.lastParams.TargetAmount)
		assert.Empty(t, svc.lastParams.SourceAmount, "non-driving amount must be omitted")
	})
}

func TestExchangeFlowExecuteFailureStaysOnPreview(t *testing.T) {
	svc := &fakeExchangeService{err: &api.Error{Status: 500, Message: "internal"}}
	cache, _ := newTestCache(nil)
	f := NewExchangeFlow(svc, cache, usdRates(t), 1, nil)

	require.NoError(t, f.RequestPreview(context.Background(), sourceInput("10")))
	require.Error(t, f.Execute(context.Background()))
	assert.Equal(t, StepPreview, f.Step())

	svc.err = nil
	require.NoError(t, f.Execute(context.Background()))
	assert.Equal(t, StepSuccess, f.Step())
	assert.Equal(t, 2, svc.calls)
}

func TestExchangeFlowSuccessInvalidatesCache(t *testing.T) {
	svc := &fakeExchangeService{}
	cache, _ := newTestCache(nil)
	var invalidated []int64
	cache.Subscribe(func(entityID int64) { invalidated = append(invalidated, entityID) })

	f := NewExchangeFlow(svc, cache, usdRates(t), 9, nil)
	require.NoError(t, f.RequestPreview(context.Background(), sourceInput("10")))
	require.NoError(t, f.Execute(context.Background()))

	assert.Equal(t, []int64{9}, invalidated)
	require.NotNil(t, f.Receipt())
	assert.Len(t, f.Receipt().Transactions, 2)
}

func TestExchangeFlowCancelPreview(t *testing.T) {
	svc := &fakeExchangeService{}
	cache, _ := newTestCache(nil)
	f := NewExchangeFlow(svc, cache, usdRates(t), 1, nil)

	assert.ErrorIs(t, f.CancelPreview(), ErrInvalidState)

	require.NoError(t, f.RequestPreview(context.Background(), sourceInput("10")))
	require.NoError(t, f.CancelPreview())
	assert.Equal(t, StepForm, f.Step())
	assert.Nil(t, f.Preview())
	assert.Equal(t, 0, svc.calls, "cancelling a preview has no side effect")
}

func TestExchangeFlowExecuteGuards(t *testing.T) {
	svc := &fakeExchangeService{}
	cache, _ := newTestCache(nil)
	f := NewExchangeFlow(svc, cache, usdRates(t), 1, nil)

	assert.ErrorIs(t, f.Execute(context.Background()), ErrInvalidState)

	require.NoError(t, f.RequestPreview(context.Background(), sourceInput("10")))
	require.NoError(t, f.Execute(context.Background()))
	assert.ErrorIs(t, f.Execute(context.Background()), ErrInvalidState, "success never re-executes")
}

func TestExchangeFlowDeltas(t *testing.T) {
	svc := &fakeExchangeService{}
	cache, fetch := newTestCache(map[int64]*models.Balances{
		1: {Completed: map[string]string{"usd": "50.00", "gel": "0.00"}},
	})
	f := NewExchangeFlow(svc, cache, usdRates(t), 1, nil)

	require.NoError(t, f.RequestPreview(context.Background(), sourceInput("10")))

	fetch.snapshots[1] = &models.Balances{Completed: map[string]string{"usd": "40.00", "gel": "27.00"}}
	require.NoError(t, f.Execute(context.Background()))

	source, target, err := f.Deltas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "50.00 → 40.00", source.String())
	assert.Equal(t, "0.00 → 27.00", target.String())
}
