package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentEvent is the webhook payload delivered by the payment gateway.
// Amount and currency are optional; when present they are cross-checked
// against the order before any state changes.
type PaymentEvent struct {
	OrderID   string           `json:"order_id" validate:"required"`
	PaymentID string           `json:"payment_id" validate:"required"`
	Status    string           `json:"status" validate:"required"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Currency  string           `json:"currency,omitempty"`
}

// successStatuses are the gateway statuses that mean money actually moved.
// Everything else is acknowledged and discarded.
var successStatuses = map[string]struct{}{
	"paid":      {},
	"completed": {},
}

// IsSuccessful reports whether the event represents a settled payment.
func (e PaymentEvent) IsSuccessful() bool {
	_, ok := successStatuses[strings.ToLower(strings.TrimSpace(e.Status))]
	return ok
}

// Outcome classifies how the reconciler disposed of an event.
type Outcome string

const (
	// OutcomeCredited means the order transitioned to paid and credits landed.
	OutcomeCredited Outcome = "credited"
	// OutcomeAlreadyProcessed means the order was already paid; nothing changed.
	OutcomeAlreadyProcessed Outcome = "already_processed"
	// OutcomeIgnored means the event did not represent a successful payment.
	OutcomeIgnored Outcome = "ignored"
)

// Result is returned for every accepted event.
type Result struct {
	Outcome Outcome `json:"outcome"`
	OrderID string  `json:"order_id"`
	Credits int64   `json:"credits,omitempty"`
	Balance int64   `json:"balance,omitempty"`
}
