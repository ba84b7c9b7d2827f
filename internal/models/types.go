package models

import "time"

// Transaction statuses. A transaction is created as a draft and moved to
// completed by exactly one confirm call; there is no backward transition.
const (
	StatusDraft     = "draft"
	StatusCompleted = "completed"
)

// Deposit statuses this core reacts to. Providers may report other states
// (cancelled, expired); anything that is not pending stops polling.
const (
	DepositPending   = "pending"
	DepositCompleted = "completed"
)

// Transaction represents a transfer between two entities.
type Transaction struct {
	ID           int64   `json:"id"`
	FromEntityID int64   `json:"from_entity_id"`
	ToEntityID   int64   `json:"to_entity_id"`
	Amount       string  `json:"amount"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
	Comment      string  `json:"comment,omitempty"`
	TagIDs       []int64 `json:"tag_ids,omitempty"`
}

// EntityRef is the short entity projection embedded in deposits.
type EntityRef struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// KeepzDetails carries provider-specific payment links.
type KeepzDetails struct {
	PaymentURL      string `json:"payment_url,omitempty"`
	PaymentShortURL string `json:"payment_short_url,omitempty"`
}

// DepositDetails is the per-provider detail envelope.
type DepositDetails struct {
	Keepz *KeepzDetails `json:"keepz,omitempty"`
}

// Deposit is a provider-initiated top-up. It is created once and polled
// read-only until its status leaves pending.
type Deposit struct {
	ID            int64           `json:"id"`
	UUID          string          `json:"uuid,omitempty"`
	ActorEntityID int64           `json:"actor_entity_id"`
	FromEntityID  int64           `json:"from_entity_id"`
	FromEntity    *EntityRef      `json:"from_entity,omitempty"`
	ToEntityID    int64           `json:"to_entity_id"`
	ToEntity      *EntityRef      `json:"to_entity,omitempty"`
	Amount        string          `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	Provider      string          `json:"provider"`
	Details       *DepositDetails `json:"details,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ModifiedAt    *time.Time      `json:"modified_at,omitempty"`
}

// PaymentURL returns the deposit's payment link, preferring the full URL over
// the short one. Empty string when the provider supplied neither.
func (d Deposit) PaymentURL() string {
	if d.Details == nil || d.Details.Keepz == nil {
		return ""
	}
	if d.Details.Keepz.PaymentURL != "" {
		return d.Details.Keepz.PaymentURL
	}
	return d.Details.Keepz.PaymentShortURL
}

// IsDevMode reports whether the deposit came from a non-production provider
// stub, recognized by its sentinel payment link.
func (d Deposit) IsDevMode(sentinelURL string) bool {
	return sentinelURL != "" && d.PaymentURL() == sentinelURL
}

// Balances is a point-in-time snapshot of one entity's per-currency balances,
// split by confirmation status. Amounts are decimal strings keyed by
// lowercase currency code. Never mutated, only replaced wholesale.
type Balances struct {
	Draft     map[string]string `json:"draft"`
	Completed map[string]string `json:"completed"`
}

// ExchangePreview is a locally computed projection of an exchange. It is
// never persisted and never authoritative.
type ExchangePreview struct {
	SourceCurrency string `json:"source_currency"`
	SourceAmount   string `json:"source_amount"`
	TargetCurrency string `json:"target_currency"`
	TargetAmount   string `json:"target_amount"`
	Rate           string `json:"rate"`
}

// ExchangeReceipt is the server-confirmed result of executing an exchange.
// Immutable once returned; the two legs are completed transactions.
type ExchangeReceipt struct {
	SourceCurrency string        `json:"source_currency"`
	SourceAmount   string        `json:"source_amount"`
	TargetCurrency string        `json:"target_currency"`
	TargetAmount   string        `json:"target_amount"`
	Rate           string        `json:"rate"`
	Transactions   []Transaction `json:"transactions"`
}
