package api

import (
	"context"
	"net/http"

	"github.com/f0rthspace/refinance-go/internal/models"
)

// ExchangeParams is the payload for previewing or executing an exchange.
// Exactly one of SourceAmount/TargetAmount is set: the driving side. The
// other is omitted so the server recomputes it authoritatively.
type ExchangeParams struct {
	EntityID       int64  `json:"entity_id"`
	SourceCurrency string `json:"source_currency"`
	SourceAmount   string `json:"source_amount,omitempty"`
	TargetCurrency string `json:"target_currency"`
	TargetAmount   string `json:"target_amount,omitempty"`
}

// PreviewExchange asks the server for its projection of an exchange. The
// client can also compute this locally from the rate table; see
// internal/flow.
func (c *Client) PreviewExchange(ctx context.Context, params ExchangeParams) (*models.ExchangePreview, error) {
	var preview models.ExchangePreview
	if err := c.do(ctx, http.MethodPost, "currency_exchange/preview", nil, params, &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}

// ExecuteExchange performs the exchange and returns the server receipt.
func (c *Client) ExecuteExchange(ctx context.Context, params ExchangeParams) (*models.ExchangeReceipt, error) {
	var receipt models.ExchangeReceipt
	if err := c.do(ctx, http.MethodPost, "currency_exchange/exchange", nil, params, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// GetExchangeRates fetches the published rate sheets, newest first.
func (c *Client) GetExchangeRates(ctx context.Context) ([]models.RateSheet, error) {
	var sheets []models.RateSheet
	if err := c.do(ctx, http.MethodGet, "currency_exchange/rates", nil, nil, &sheets); err != nil {
		return nil, err
	}
	return sheets, nil
}
