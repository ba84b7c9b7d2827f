package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PivotCurrency is the currency all rates are quoted against. It has an
// implicit rate and quantity of 1 and never appears in the rate table itself.
const PivotCurrency = "GEL"

// CurrencyRate is one row of the rate table: Rate units of the pivot currency
// buy Quantity units of the quoted currency.
type CurrencyRate struct {
	Code     string          `json:"code"`
	Rate     decimal.Decimal `json:"rate"`
	Quantity decimal.Decimal `json:"quantity"`
}

// RateSheet is the wire shape of the rates endpoint.
type RateSheet struct {
	Currencies []CurrencyRate `json:"currencies"`
}

// RateTable maps lowercase currency codes to their pivot-quoted rates.
type RateTable map[string]CurrencyRate

// NewRateTable builds a lookup table from the first sheet of the rates
// response. Later sheets are ignored, matching the upstream feed which
// publishes one sheet per day, newest first.
func NewRateTable(sheets []RateSheet) RateTable {
	t := make(RateTable)
	if len(sheets) == 0 {
		return t
	}
	for _, c := range sheets[0].Currencies {
		t[strings.ToLower(c.Code)] = c
	}
	return t
}

var one = decimal.NewFromInt(1)

// pivotPer returns how many pivot units one unit of the given currency is
// worth. The pivot itself is 1 by definition.
func (t RateTable) pivotPer(code string) (decimal.Decimal, bool) {
	if strings.EqualFold(code, PivotCurrency) {
		return one, true
	}
	c, ok := t[strings.ToLower(code)]
	if !ok || c.Quantity.IsZero() {
		return decimal.Decimal{}, false
	}
	return c.Rate.Div(c.Quantity), true
}

// ConversionRate returns the full-precision source→target rate, or false when
// either currency is unknown or the currencies are equal.
func (t RateTable) ConversionRate(source, target string) (decimal.Decimal, bool) {
	if strings.EqualFold(source, target) {
		return decimal.Decimal{}, false
	}
	ps, ok := t.pivotPer(source)
	if !ok {
		return decimal.Decimal{}, false
	}
	pt, ok := t.pivotPer(target)
	if !ok || pt.IsZero() {
		return decimal.Decimal{}, false
	}
	return ps.Div(pt), true
}

// DisplayRate returns the source→target rate truncated to two decimal places.
// Truncation, not rounding: the shown rate must never overstate what the
// backend will convert.
func (t RateTable) DisplayRate(source, target string) (decimal.Decimal, bool) {
	r, ok := t.ConversionRate(source, target)
	if !ok {
		return decimal.Decimal{}, false
	}
	return r.Truncate(2), true
}

// Conversion is a derived source/target amount pair with the truncated rate.
type Conversion struct {
	SourceAmount decimal.Decimal
	TargetAmount decimal.Decimal
	Rate         decimal.Decimal
}

// Convert derives the non-driving amount of an exchange. Exactly one of
// sourceAmount/targetAmount must be non-nil; the derived side is computed with
// the full-precision rate and then truncated to two decimals. Returns nil
// when both or neither amount is set, when the currencies are equal, or when
// a currency is missing from the table.
func (t RateTable) Convert(source, target string, sourceAmount, targetAmount *decimal.Decimal) *Conversion {
	if (sourceAmount == nil) == (targetAmount == nil) {
		return nil
	}
	rate, ok := t.ConversionRate(source, target)
	if !ok || rate.IsZero() {
		return nil
	}
	display := rate.Truncate(2)
	if sourceAmount != nil {
		return &Conversion{
			SourceAmount: *sourceAmount,
			TargetAmount: sourceAmount.Mul(rate).Truncate(2),
			Rate:         display,
		}
	}
	return &Conversion{
		SourceAmount: targetAmount.Div(rate).Truncate(2),
		TargetAmount: *targetAmount,
		Rate:         display,
	}
}
