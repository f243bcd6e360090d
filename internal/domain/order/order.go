// Package order contains the marketplace order entities and the checkout
// transaction coordinator.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. COD orders start at StatusPending;
// online-gateway orders start at StatusPendingPayment until the gateway
// confirms. Transitions are gated by per-actor allow-lists, not a full graph.
type Status string

const (
	StatusPending        Status = "pending"
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusCancelled      Status = "cancelled"
	StatusDelivered      Status = "delivered"
	StatusPaymentFailed  Status = "payment_failed"
)

// PaymentMethod selects the fee policy and the gateway integration shape.
type PaymentMethod string

const (
	MethodCOD    PaymentMethod = "cod"
	MethodPayPal PaymentMethod = "paypal"
	MethodCard   PaymentMethod = "card"
	MethodZiina  PaymentMethod = "ziina"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCOD, MethodPayPal, MethodCard, MethodZiina:
		return true
	}
	return false
}

// Online reports whether m is settled through a payment gateway.
func (m PaymentMethod) Online() bool {
	return m.Valid() && m != MethodCOD
}

// Address is the structured shipping address. Orders store a JSON snapshot of
// it, not a reference, so later address-book edits never alter history.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Order is owned by exactly one customer. After creation only the status and
// the seller-edited totals change.
type Order struct {
	ID              string
	CustomerID      string
	Items           []Item
	TotalAmount     decimal.Decimal
	CODFee          decimal.Decimal
	ShippingFee     decimal.Decimal
	Status          Status
	PaymentMethod   PaymentMethod
	ShippingAddress Address
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is a single order line. Size and colour are denormalized strings taken
// at order time. Total must equal UnitPrice x Quantity after any edit.
type Item struct {
	ID             string
	OrderID        string
	ProductID      string
	Name           string
	SelectedSize   string
	SelectedColour string
	Quantity       int
	UnitPrice      decimal.Decimal
	Total          decimal.Decimal
	PriceEdited    bool
	QuantityEdited bool
	EditedAt       *time.Time
}

// Repository defines persistence operations for orders and their items.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	CreateItem(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, st Status) error
	GetItem(ctx context.Context, itemID string) (*Item, error)
	UpdateItem(ctx context.Context, it *Item) error
	UpdateTotal(ctx context.Context, orderID string, total decimal.Decimal) error
	// SellerOwns reports whether at least one of the order's line items
	// references a product owned by the seller.
	SellerOwns(ctx context.Context, orderID, sellerID string) (bool, error)
	// ListStalePendingPayment returns orders still in pending_payment whose
	// last update is older than the cutoff.
	ListStalePendingPayment(ctx context.Context, cutoff time.Time) ([]Order, error)
}

// ErrNotFound indicates an unknown order.
var ErrNotFound = fmt.Errorf("order not found")

// ErrNotOwner indicates the acting user has no claim on the order.
var ErrNotOwner = fmt.Errorf("order does not belong to user")

// StatusNotAllowedError indicates a status outside the actor's allow-list.
type StatusNotAllowedError struct {
	Status Status
	Role   string
}

func (e *StatusNotAllowedError) Error() string {
	return fmt.Sprintf("status %q not allowed for %s", e.Status, e.Role)
}
