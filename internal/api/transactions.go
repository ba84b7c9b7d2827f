package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/f0rthspace/refinance-go/internal/models"
)

// CreateTransactionParams is the payload for creating a transaction. Amount
// is a decimal string; Status defaults to draft server-side when empty.
type CreateTransactionParams struct {
	FromEntityID int64   `json:"from_entity_id"`
	ToEntityID   int64   `json:"to_entity_id"`
	Amount       string  `json:"amount"`
	Currency     string  `json:"currency"`
	Comment      string  `json:"comment,omitempty"`
	Status       string  `json:"status,omitempty"`
	TagIDs       []int64 `json:"tag_ids,omitempty"`
}

// CreateTransaction creates a draft transaction.
func (c *Client) CreateTransaction(ctx context.Context, params CreateTransactionParams) (*models.Transaction, error) {
	if params.Status == "" {
		params.Status = models.StatusDraft
	}
	var tx models.Transaction
	if err := c.do(ctx, http.MethodPost, "transactions", nil, params, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

type transactionStatusPatch struct {
	Status string `json:"status"`
}

// CompleteTransaction moves a draft transaction to completed.
func (c *Client) CompleteTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	var tx models.Transaction
	endpoint := fmt.Sprintf("transactions/%d", id)
	patch := transactionStatusPatch{Status: models.StatusCompleted}
	if err := c.do(ctx, http.MethodPatch, endpoint, nil, patch, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransaction fetches a single transaction by id.
func (c *Client) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	var tx models.Transaction
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("transactions/%d", id), nil, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
