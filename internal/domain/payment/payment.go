// Package payment abstracts the online payment gateways (PayPal, Ziina) and
// reconciles local order state with gateway-reported truth.
//
// Two integration shapes exist. PayPal is pre-paid: the gateway order is
// created from the priced cart alone, and the marketplace order is only
// persisted after a successful capture. Ziina is a post-paid intent: the
// marketplace order exists first (stock already decremented), an intent
// references it, and a poll or webhook settles the status later.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Record statuses, shared across gateways.
const (
	StatusCreated   = "created"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrNotFound indicates an unknown payment record.
var ErrNotFound = fmt.Errorf("payment not found")

// GatewayError wraps a third-party failure with the provider's message so
// operators can debug without the client seeing raw provider internals.
type GatewayError struct {
	Gateway string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s gateway: %s", e.Gateway, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Record is the local row tracking one gateway payment for an order. Inserts
// are best-effort: a record persistence failure never fails the checkout.
type Record struct {
	ID         string
	OrderID    string
	Gateway    string
	ExternalID string
	Amount     decimal.Decimal
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Repository persists payment records and webhook event receipts.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByExternalID(ctx context.Context, gateway, externalID string) (*Record, error)
	UpdateStatus(ctx context.Context, id, status string) error
	// MarkEventProcessed records a webhook event id. It returns false when
	// the event was already recorded, making duplicate deliveries no-ops.
	MarkEventProcessed(ctx context.Context, gateway, eventID string) (bool, error)
}

// IntentRequest is the input for creating a gateway order or payment intent.
type IntentRequest struct {
	// Amount in AED.
	Amount decimal.Decimal
	// Reference is the marketplace order id for post-paid gateways; empty for
	// pre-paid gateways where no order exists yet.
	Reference  string
	SuccessURL string
	CancelURL  string
}

// Intent is a created gateway order or payment intent.
type Intent struct {
	ExternalID  string
	RedirectURL string
	Status      string
}

// CaptureResult reports the settled state of a gateway payment.
type CaptureResult struct {
	ExternalID string
	Status     string
	Amount     decimal.Decimal
}

// Gateway is the uniform contract both providers implement. For Ziina,
// Capture is a status fetch: the provider settles asynchronously and Capture
// reports the current state.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	Capture(ctx context.Context, externalID string) (*CaptureResult, error)
}
