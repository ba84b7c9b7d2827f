package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/f0rthspace/refinance-go/internal/models"
)

// CreateDepositParams identifies the receiving entity and amount for a
// provider deposit.
type CreateDepositParams struct {
	ToEntityID int64
	Amount     string
	Currency   string
}

// CreateKeepzDeposit opens a deposit with the keepz provider. The backend
// takes these as query parameters, not a JSON body.
func (c *Client) CreateKeepzDeposit(ctx context.Context, params CreateDepositParams) (*models.Deposit, error) {
	query := url.Values{
		"to_entity_id": {strconv.FormatInt(params.ToEntityID, 10)},
		"amount":       {params.Amount},
		"currency":     {params.Currency},
	}
	var dep models.Deposit
	if err := c.do(ctx, http.MethodPost, "deposits/providers/keepz", query, nil, &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

// GetDeposit fetches the current state of a deposit.
func (c *Client) GetDeposit(ctx context.Context, id int64) (*models.Deposit, error) {
	var dep models.Deposit
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("deposits/%d", id), nil, nil, &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

// CompleteDepositDev force-completes a dev-mode deposit. Rejected by the
// backend outside development environments.
func (c *Client) CompleteDepositDev(ctx context.Context, id int64) (*models.Deposit, error) {
	var dep models.Deposit
	endpoint := fmt.Sprintf("deposits/%d/complete-dev", id)
	if err := c.do(ctx, http.MethodPost, endpoint, nil, nil, &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}
