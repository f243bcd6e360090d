// Package catalog holds the product catalog entities and the variant stock
// ledger contract. A variant is the (product, size, colour) stock-keeping unit;
// all checkout decisions read and mutate variant rows, never the product-level
// stock aggregate.
package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrProductNotFound indicates an unknown or inactive product.
var ErrProductNotFound = fmt.Errorf("product not found")

// SizeNotAvailableError indicates the requested (size, colour) combination does
// not exist in the product's variant collection.
type SizeNotAvailableError struct {
	ProductID string
	Size      string
	Colour    string
}

func (e *SizeNotAvailableError) Error() string {
	if e.Colour == "" {
		return fmt.Sprintf("size %q not available for product %s", e.Size, e.ProductID)
	}
	return fmt.Sprintf("size %q colour %q not available for product %s", e.Size, e.Colour, e.ProductID)
}

// InsufficientStockError indicates the requested quantity exceeds the variant's
// available quantity.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Size      string
	Colour    string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s size %q: requested %d, available %d",
		e.ProductID, e.Size, e.Requested, e.Available)
}

// Product is a catalog entry owned by a seller. Price and CODEligible act as
// fallbacks when a cart line does not resolve to a concrete variant.
type Product struct {
	ID            string
	SellerID      string
	Name          string
	Price         decimal.Decimal
	MarketPrice   decimal.Decimal
	CODEligible   bool
	Active        bool
	StockQuantity int
}

// Variant is a (size, colour) stock-keeping unit attached to a product.
type Variant struct {
	Size           string
	Colour         string
	Quantity       int
	Price          decimal.Decimal
	MarketPrice    decimal.Decimal
	ActualBuyPrice decimal.Decimal
	CODEligible    bool
}

// Availability is the ledger's answer for a single (product, size, colour).
type Availability struct {
	Quantity    int
	UnitPrice   decimal.Decimal
	CODEligible bool
}

// Repository provides catalog reads.
type Repository interface {
	// GetByID returns an active product. Returns ErrProductNotFound for
	// unknown or inactive products.
	GetByID(ctx context.Context, id string) (*Product, error)
	// Variants returns the product's variant collection in stored order.
	Variants(ctx context.Context, productID string) ([]Variant, error)
}

// Ledger is the authoritative per-variant quantity store.
type Ledger interface {
	// Availability reports the live quantity, price, and COD eligibility for
	// an exact (size, colour) tuple. Returns ErrProductNotFound or
	// *SizeNotAvailableError.
	Availability(ctx context.Context, productID, size, colour string) (*Availability, error)

	// AdjustStock applies delta to a variant's quantity: negative for a sale,
	// positive for a restock. A sale is a single conditional update guarded by
	// quantity >= -delta; when the guard fails it returns
	// *InsufficientStockError. The product-level stock_quantity aggregate is
	// recomputed as a side effect, for display only.
	AdjustStock(ctx context.Context, productID, size, colour string, delta int) error

	// ReplaceVariants swaps the product's entire variant collection. Sellers
	// resubmit the full list; individual variants are never deleted.
	ReplaceVariants(ctx context.Context, productID string, variants []Variant) error
}
