package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/f0rthspace/refinance-go/internal/models"
)

// GetBalances fetches the per-currency draft/completed balances for an
// entity. Always a point-in-time read; callers cache and invalidate via
// internal/balance.
func (c *Client) GetBalances(ctx context.Context, entityID int64) (*models.Balances, error) {
	var b models.Balances
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("balances/%d", entityID), nil, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
