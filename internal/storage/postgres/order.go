package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/souq-marketplace/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders
		(id, customer_id, total_amount, cod_fee, shipping_fee, status, payment_method, shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items
		(id, order_id, product_id, name, selected_size, selected_colour, quantity, unit_price, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getOrderSQL = `SELECT id, customer_id, total_amount, cod_fee, shipping_fee, status, payment_method,
		shipping_address, created_at, updated_at
		FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT id, customer_id, total_amount, cod_fee, shipping_fee, status, payment_method,
		shipping_address, created_at, updated_at
		FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	listStaleSQL = `SELECT id, customer_id, total_amount, cod_fee, shipping_fee, status, payment_method,
		shipping_address, created_at, updated_at
		FROM orders WHERE status = 'pending_payment' AND updated_at < $1 ORDER BY updated_at`

	listItemsSQL = `SELECT id, order_id, product_id, name, selected_size, selected_colour, quantity,
		unit_price, total, price_edited_by_seller, quantity_edited_by_seller, edited_at
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	getItemSQL = `SELECT id, order_id, product_id, name, selected_size, selected_colour, quantity,
		unit_price, total, price_edited_by_seller, quantity_edited_by_seller, edited_at
		FROM order_items WHERE id = $1`

	updateStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	updateTotalSQL = `UPDATE orders SET total_amount = $2, updated_at = now() WHERE id = $1`

	updateItemSQL = `UPDATE order_items SET quantity = $2, unit_price = $3, total = $4,
		price_edited_by_seller = $5, quantity_edited_by_seller = $6, edited_at = $7
		WHERE id = $1`

	sellerOwnsSQL = `SELECT EXISTS (
		SELECT 1 FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1 AND p.seller_id = $2)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository over db (pool or tx).
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order row with a JSON snapshot of the shipping address.
// Items are inserted separately via CreateItem.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	err = r.db.QueryRow(ctx, insertOrderSQL,
		o.ID, o.CustomerID, o.TotalAmount, o.CODFee, o.ShippingFee,
		string(o.Status), string(o.PaymentMethod), addr).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// CreateItem persists one order line.
func (r *OrderRepository) CreateItem(ctx context.Context, it *order.Item) error {
	_, err := r.db.Exec(ctx, insertOrderItemSQL,
		it.ID, it.OrderID, it.ProductID, it.Name,
		it.SelectedSize, it.SelectedColour, it.Quantity, it.UnitPrice, it.Total)
	if err != nil {
		return fmt.Errorf("creating order item %q: %w", it.ID, err)
	}
	return nil
}

// GetByID returns an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.db.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByCustomer returns the customer's orders with items, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", customerID, err)
	}
	return r.collectWithItems(ctx, rows)
}

// ListStalePendingPayment returns pending_payment orders not touched since
// the cutoff, oldest first.
func (r *OrderRepository) ListStalePendingPayment(ctx context.Context, cutoff time.Time) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listStaleSQL, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing stale pending orders: %w", err)
	}
	return r.collectWithItems(ctx, rows)
}

// UpdateStatus sets the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, st order.Status) error {
	tag, err := r.db.Exec(ctx, updateStatusSQL, id, string(st))
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// UpdateTotal sets the order's total amount.
func (r *OrderRepository) UpdateTotal(ctx context.Context, orderID string, total decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, updateTotalSQL, orderID, total)
	if err != nil {
		return fmt.Errorf("updating total of order %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// GetItem returns one order line by id.
func (r *OrderRepository) GetItem(ctx context.Context, itemID string) (*order.Item, error) {
	rows, err := r.db.Query(ctx, getItemSQL, itemID)
	if err != nil {
		return nil, fmt.Errorf("getting order item %q: %w", itemID, err)
	}

	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting order item %q: %w", itemID, err)
	}
	return &it, nil
}

// UpdateItem persists a seller-edited line.
func (r *OrderRepository) UpdateItem(ctx context.Context, it *order.Item) error {
	tag, err := r.db.Exec(ctx, updateItemSQL,
		it.ID, it.Quantity, it.UnitPrice, it.Total,
		it.PriceEdited, it.QuantityEdited, it.EditedAt)
	if err != nil {
		return fmt.Errorf("updating order item %q: %w", it.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrItemNotFound
	}
	return nil
}

// SellerOwns reports whether the seller owns at least one line's product.
func (r *OrderRepository) SellerOwns(ctx context.Context, orderID, sellerID string) (bool, error) {
	var owns bool
	if err := r.db.QueryRow(ctx, sellerOwnsSQL, orderID, sellerID).Scan(&owns); err != nil {
		return false, fmt.Errorf("checking seller ownership of order %q: %w", orderID, err)
	}
	return owns, nil
}

func (r *OrderRepository) collectWithItems(ctx context.Context, rows pgx.Rows) ([]order.Order, error) {
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, err
	}

	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.attachItems(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.db.Query(ctx, listItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}

	for _, it := range items {
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
		method string
		addr   []byte
	)
	err := row.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.CODFee, &o.ShippingFee,
		&status, &method, &addr, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}

	o.Status = order.Status(status)
	o.PaymentMethod = order.PaymentMethod(method)
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	return o, nil
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name,
		&it.SelectedSize, &it.SelectedColour, &it.Quantity,
		&it.UnitPrice, &it.Total, &it.PriceEdited, &it.QuantityEdited, &it.EditedAt)
	return it, err
}
