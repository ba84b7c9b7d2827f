package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(rates ...CurrencyRate) RateTable {
	return NewRateTable([]RateSheet{{Currencies: rates}})
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestConversionRate(t *testing.T) {
	rt := table(
		CurrencyRate{Code: "AAA", Rate: dec(t, "2"), Quantity: dec(t, "1")},
		CurrencyRate{Code: "BBB", Rate: dec(t, "4"), Quantity: dec(t, "1")},
	)

	rate, ok := rt.ConversionRate("AAA", "BBB")
	require.True(t, ok)
	assert.True(t, rate.Equal(dec(t, "0.5")), "got %s", rate)

	display, ok := rt.DisplayRate("AAA", "BBB")
	require.True(t, ok)
	assert.Equal(t, "0.50", display.StringFixed(2))
}

func TestConversionRateTruncatesNotRounds(t *testing.T) {
	// 5.19 GEL per 10 units gives a 0.519 rate; the displayed rate must be
	// cut to 0.51, never rounded up to 0.52.
	rt := table(
		CurrencyRate{Code: "XXX", Rate: dec(t, "5.19"), Quantity: dec(t, "10")},
	)
	display, ok := rt.DisplayRate("XXX", "GEL")
	require.True(t, ok)
	assert.Equal(t, "0.51", display.StringFixed(2))
}

func TestConversionRatePivotImplicit(t *testing.T) {
	rt := table(
		CurrencyRate{Code: "USD", Rate: dec(t, "2.70"), Quantity: dec(t, "1")},
	)

	rate, ok := rt.ConversionRate("USD", "gel")
	require.True(t, ok)
	assert.True(t, rate.Equal(dec(t, "2.70")))

	inverse, ok := rt.ConversionRate("GEL", "usd")
	require.True(t, ok)
	assert.Equal(t, "0.37", inverse.Truncate(2).StringFixed(2))
}

func TestConversionRateRejects(t *testing.T) {
	rt := table(
		CurrencyRate{Code: "USD", Rate: dec(t, "2.70"), Quantity: dec(t, "1")},
	)

	_, ok := rt.ConversionRate("USD", "USD")
	assert.False(t, ok, "same currency must not convert")

	_, ok = rt.ConversionRate("USD", "JPY")
	assert.False(t, ok, "unknown currency must not convert")
}

func TestConvertSourceDriving(t *testing.T) {
	rt := table(
		CurrencyRate{Code: "USD", Rate: dec(t, "2.70"), Quantity: dec(t, "1")},
	)
	source := dec(t, "10")

	conv := rt.Convert("USD", "GEL", &source, nil)
	require.NotNil(t, conv)
	assert.Equal(t, "10.00", conv.SourceAmount.StringFixed(2))
	assert.Equal(t, "27.00", conv.TargetAmount.StringFixed(2))
	assert.Equal(t, "2.70", conv.Rate.StringFixed(2))
}

func TestConvertTargetDriving(t *testing.T) {
	rt := table(
		CurrencyRate{Code: "USD", Rate: dec(t, "2.70"), Quantity: dec(t, "1")},
	)
	target := dec(t, "27")

	conv := rt.Convert("USD", "GEL", nil, &target)
	require.NotNil(t, conv)
	assert.Equal(t, "10.00", conv.SourceAmount.StringFixed(2))
	assert.Equal(t, "27.00", conv.TargetAmount.StringFixed(2))
}

func TestConvertUsesFullPrecisionRate(t *testing.T) {
	// Rate is 0.519: the derived amount comes from the untruncated rate
	// (100 * 0.519 = 51.90), not from the displayed 0.51.
	rt := table(
		CurrencyRate{Code: "XXX", Rate: dec(t, "5.19"), Quantity: dec(t, "10")},
	)
	source := dec(t, "100")

	conv := rt.Convert("XXX", "GEL", &source, nil)
	require.NotNil(t, conv)
	assert.Equal(t, "51.90", conv.TargetAmount.StringFixed(2))
	assert.Equal(t, "0.51", conv.Rate.StringFixed(2))
}

func TestConvertNilCases(t *testing.T) {
	rt := table(
		CurrencyRate{Code: "USD", Rate: dec(t, "2.70"), Quantity: dec(t, "1")},
	)
	amt := dec(t, "10")

	assert.Nil(t, rt.Convert("USD", "GEL", nil, nil), "neither amount set")
	assert.Nil(t, rt.Convert("USD", "GEL", &amt, &amt), "both amounts set")
	assert.Nil(t, rt.Convert("USD", "USD", &amt, nil), "same currency")
	assert.Nil(t, rt.Convert("USD", "JPY", &amt, nil), "unknown currency")
}

func TestDepositPaymentURL(t *testing.T) {
	dep := Deposit{Details: &DepositDetails{Keepz: &KeepzDetails{
		PaymentShortURL: "https://k.pz/x",
	}}}
	assert.Equal(t, "https://k.pz/x", dep.PaymentURL())

	dep.Details.Keepz.PaymentURL = "https://pay.example/x"
	assert.Equal(t, "https://pay.example/x", dep.PaymentURL())

	assert.Empty(t, Deposit{}.PaymentURL())
}

func TestDepositIsDevMode(t *testing.T) {
	const sentinel = "https://example.com/keepz-dev-payment-placeholder"
	dep := Deposit{Details: &DepositDetails{Keepz: &KeepzDetails{PaymentURL: sentinel}}}

	assert.True(t, dep.IsDevMode(sentinel))
	assert.False(t, dep.IsDevMode(""), "empty sentinel disables dev mode")
	assert.False(t, Deposit{}.IsDevMode(sentinel))
}
