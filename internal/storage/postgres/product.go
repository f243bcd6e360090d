package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/souq-marketplace/internal/domain/catalog"
)

const (
	getProductSQL = `SELECT id, seller_id, name, price, market_price, cod_eligible, active, stock_quantity
		FROM products WHERE id = $1 AND active`

	listVariantsSQL = `SELECT size, colour, quantity, price, market_price, actual_buy_price, cod_eligible
		FROM product_variants WHERE product_id = $1 ORDER BY position, size, colour`

	getVariantSQL = `SELECT v.quantity, v.price, v.cod_eligible
		FROM product_variants v
		JOIN products p ON p.id = v.product_id AND p.active
		WHERE v.product_id = $1 AND v.size = $2 AND v.colour = $3`

	// Sale decrements are guarded so the update is the availability check:
	// zero rows affected under concurrency means the stock is gone.
	adjustStockSQL = `UPDATE product_variants
		SET quantity = quantity + $4
		WHERE product_id = $1 AND size = $2 AND colour = $3 AND quantity + $4 >= 0`

	// Display-only aggregate, never consulted for checkout decisions.
	refreshAggregateSQL = `UPDATE products
		SET stock_quantity = (SELECT COALESCE(SUM(quantity), 0) FROM product_variants WHERE product_id = $1),
		    updated_at = now()
		WHERE id = $1`

	deleteVariantsSQL = `DELETE FROM product_variants WHERE product_id = $1`

	insertVariantSQL = `INSERT INTO product_variants
		(product_id, size, colour, quantity, price, market_price, actual_buy_price, cod_eligible, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
)

var (
	_ catalog.Repository = (*ProductRepository)(nil)
	_ catalog.Ledger     = (*ProductRepository)(nil)
)

// ProductRepository implements the catalog repository and the variant stock
// ledger backed by PostgreSQL.
type ProductRepository struct {
	db DB
}

// NewProductRepository returns a ProductRepository over db (pool or tx).
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID returns an active product by id.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.db.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// Variants returns the product's variant collection in stored order.
func (r *ProductRepository) Variants(ctx context.Context, productID string) ([]catalog.Variant, error) {
	rows, err := r.db.Query(ctx, listVariantsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing variants for %q: %w", productID, err)
	}
	return pgx.CollectRows(rows, scanVariant)
}

// Availability reports live stock for an exact (size, colour) tuple.
func (r *ProductRepository) Availability(ctx context.Context, productID, size, colour string) (*catalog.Availability, error) {
	var av catalog.Availability
	err := r.db.QueryRow(ctx, getVariantSQL, productID, size, colour).
		Scan(&av.Quantity, &av.UnitPrice, &av.CODEligible)
	if err == nil {
		return &av, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("availability for %q: %w", productID, err)
	}

	// Distinguish a missing product from a missing variant.
	if _, err := r.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return nil, &catalog.SizeNotAvailableError{ProductID: productID, Size: size, Colour: colour}
}

// AdjustStock applies delta to one variant. Negative deltas are conditional:
// a concurrent sale that drained the row makes this return
// *catalog.InsufficientStockError instead of going negative.
func (r *ProductRepository) AdjustStock(ctx context.Context, productID, size, colour string, delta int) error {
	tag, err := r.db.Exec(ctx, adjustStockSQL, productID, size, colour, delta)
	if err != nil {
		return fmt.Errorf("adjusting stock for %q: %w", productID, err)
	}

	if tag.RowsAffected() == 0 {
		av, err := r.Availability(ctx, productID, size, colour)
		if err != nil {
			return err
		}
		return &catalog.InsufficientStockError{
			ProductID: productID,
			Size:      size,
			Colour:    colour,
			Requested: -delta,
			Available: av.Quantity,
		}
	}

	if _, err := r.db.Exec(ctx, refreshAggregateSQL, productID); err != nil {
		return fmt.Errorf("refreshing stock aggregate for %q: %w", productID, err)
	}
	return nil
}

// ReplaceVariants swaps the product's whole variant collection.
func (r *ProductRepository) ReplaceVariants(ctx context.Context, productID string, variants []catalog.Variant) error {
	if _, err := r.db.Exec(ctx, deleteVariantsSQL, productID); err != nil {
		return fmt.Errorf("clearing variants for %q: %w", productID, err)
	}

	for i, v := range variants {
		_, err := r.db.Exec(ctx, insertVariantSQL,
			productID, v.Size, v.Colour, v.Quantity,
			v.Price, v.MarketPrice, v.ActualBuyPrice, v.CODEligible, i)
		if err != nil {
			return fmt.Errorf("inserting variant (%s, %s) for %q: %w", v.Size, v.Colour, productID, err)
		}
	}

	if _, err := r.db.Exec(ctx, refreshAggregateSQL, productID); err != nil {
		return fmt.Errorf("refreshing stock aggregate for %q: %w", productID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Price, &p.MarketPrice,
		&p.CODEligible, &p.Active, &p.StockQuantity)
	return p, err
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(&v.Size, &v.Colour, &v.Quantity, &v.Price,
		&v.MarketPrice, &v.ActualBuyPrice, &v.CODEligible)
	return v, err
}
