// Package cart re-prices client-supplied cart lines against the catalog.
// Client prices are never trusted; every line is resolved to an authoritative
// unit price and COD eligibility flag before any fee or order logic runs.
package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/souq-marketplace/internal/domain/catalog"
)

// ErrInvalidQuantity indicates a line with a non-positive quantity.
var ErrInvalidQuantity = fmt.Errorf("quantity must be greater than 0")

// OutOfStockError indicates no variant of the product has stock to satisfy an
// unsized line.
type OutOfStockError struct {
	ProductID string
	Name      string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s is out of stock", e.ProductID)
}

// Line is a client-supplied cart line. It is ephemeral: it exists only for the
// duration of a pricing or ordering request and is never persisted.
type Line struct {
	ProductID      string
	Quantity       int
	SelectedSize   string
	SelectedColour string
}

// PricedLine is a line with the authoritative price and COD flag resolved.
type PricedLine struct {
	ProductID      string
	Name           string
	UnitPrice      decimal.Decimal
	Quantity       int
	SelectedSize   string
	SelectedColour string
	CODEligible    bool
}

// Subtotal returns the line's unit price times quantity.
func (l PricedLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Pricer resolves cart lines to authoritative priced lines.
type Pricer struct {
	products catalog.Repository
}

// NewPricer creates a Pricer backed by the given catalog repository.
func NewPricer(products catalog.Repository) *Pricer {
	return &Pricer{products: products}
}

// Price resolves every line and returns the priced lines plus the subtotal.
//
// Per line: a matching (size, colour) variant supplies price and COD
// eligibility; a selected size with no matching variant falls back to the
// product's base price and product-level eligibility. When no size was
// selected but the product has variants, the first variant with stock is
// chosen, preferring a colour match; if none has stock the line fails with
// *OutOfStockError.
func (p *Pricer) Price(ctx context.Context, lines []Line) ([]PricedLine, decimal.Decimal, error) {
	priced := make([]PricedLine, 0, len(lines))
	subtotal := decimal.Zero

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, decimal.Zero, ErrInvalidQuantity
		}

		prod, err := p.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}

		variants, err := p.products.Variants(ctx, line.ProductID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("variants for product %s: %w", line.ProductID, err)
		}

		pl, err := resolveLine(line, prod, variants)
		if err != nil {
			return nil, decimal.Zero, err
		}

		priced = append(priced, pl)
		subtotal = subtotal.Add(pl.Subtotal())
	}

	return priced, subtotal, nil
}

func resolveLine(line Line, prod *catalog.Product, variants []catalog.Variant) (PricedLine, error) {
	pl := PricedLine{
		ProductID:      line.ProductID,
		Name:           prod.Name,
		Quantity:       line.Quantity,
		SelectedSize:   line.SelectedSize,
		SelectedColour: line.SelectedColour,
		UnitPrice:      prod.Price,
		CODEligible:    prod.CODEligible,
	}

	if line.SelectedSize != "" {
		if v, ok := findVariant(variants, line.SelectedSize, line.SelectedColour); ok {
			pl.UnitPrice = v.Price
			pl.CODEligible = v.CODEligible
			pl.SelectedColour = v.Colour
		}
		return pl, nil
	}

	if len(variants) == 0 {
		return pl, nil
	}

	// No size selected: pick the first in-stock variant, preferring the
	// requested colour when one was given.
	if line.SelectedColour != "" {
		for _, v := range variants {
			if v.Colour == line.SelectedColour && v.Quantity > 0 {
				return variantLine(pl, v), nil
			}
		}
	}
	for _, v := range variants {
		if v.Quantity > 0 {
			return variantLine(pl, v), nil
		}
	}

	return PricedLine{}, &OutOfStockError{ProductID: prod.ID, Name: prod.Name}
}

func variantLine(pl PricedLine, v catalog.Variant) PricedLine {
	pl.UnitPrice = v.Price
	pl.CODEligible = v.CODEligible
	pl.SelectedSize = v.Size
	pl.SelectedColour = v.Colour
	return pl
}

// findVariant looks up an exact size match. When colour is non-empty the
// colour must match too; otherwise the first variant with the size wins.
func findVariant(variants []catalog.Variant, size, colour string) (catalog.Variant, bool) {
	for _, v := range variants {
		if v.Size != size {
			continue
		}
		if colour == "" || v.Colour == colour {
			return v, true
		}
	}
	return catalog.Variant{}, false
}
