package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/souq-marketplace/internal/domain/payment"
)

const (
	insertPaymentSQL = `INSERT INTO payments (id, order_id, gateway, external_id, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getPaymentByExternalSQL = `SELECT id, order_id, gateway, external_id, amount, status, created_at, updated_at
		FROM payments WHERE gateway = $1 AND external_id = $2
		ORDER BY created_at DESC LIMIT 1`

	updatePaymentStatusSQL = `UPDATE payments SET status = $2, updated_at = now() WHERE id = $1`

	insertWebhookEventSQL = `INSERT INTO webhook_events (event_id, gateway)
		VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	db DB
}

// NewPaymentRepository returns a PaymentRepository over db (pool or tx).
func NewPaymentRepository(db DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment record.
func (r *PaymentRepository) Create(ctx context.Context, rec *payment.Record) error {
	_, err := r.db.Exec(ctx, insertPaymentSQL,
		rec.ID, rec.OrderID, rec.Gateway, rec.ExternalID, rec.Amount, rec.Status)
	if err != nil {
		return fmt.Errorf("creating payment %q: %w", rec.ID, err)
	}
	return nil
}

// GetByExternalID returns the latest record for a gateway payment id.
func (r *PaymentRepository) GetByExternalID(ctx context.Context, gateway, externalID string) (*payment.Record, error) {
	rows, err := r.db.Query(ctx, getPaymentByExternalSQL, gateway, externalID)
	if err != nil {
		return nil, fmt.Errorf("getting payment %s/%s: %w", gateway, externalID, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("getting payment %s/%s: %w", gateway, externalID, err)
	}
	return &rec, nil
}

// UpdateStatus sets a payment record's status.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := r.db.Exec(ctx, updatePaymentStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("updating payment %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrNotFound
	}
	return nil
}

// MarkEventProcessed records a webhook event id; duplicates report false.
func (r *PaymentRepository) MarkEventProcessed(ctx context.Context, gateway, eventID string) (bool, error) {
	tag, err := r.db.Exec(ctx, insertWebhookEventSQL, eventID, gateway)
	if err != nil {
		return false, fmt.Errorf("recording webhook event %q: %w", eventID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanPayment(row pgx.CollectableRow) (payment.Record, error) {
	var rec payment.Record
	err := row.Scan(&rec.ID, &rec.OrderID, &rec.Gateway, &rec.ExternalID,
		&rec.Amount, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}
