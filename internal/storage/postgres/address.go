package postgres

import (
	"context"
	"fmt"

	"github.com/xenking/souq-marketplace/internal/domain/address"
)

const (
	addressExistsSQL = `SELECT EXISTS (
		SELECT 1 FROM user_addresses
		WHERE user_id = $1 AND line1 = $2 AND city = $3 AND state = $4 AND postal_code = $5)`

	countAddressesSQL = `SELECT COUNT(*) FROM user_addresses WHERE user_id = $1`

	insertAddressSQL = `INSERT INTO user_addresses
		(id, user_id, line1, line2, city, state, postal_code, country, phone, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	db DB
}

// NewAddressRepository returns an AddressRepository over db (pool or tx).
func NewAddressRepository(db DB) *AddressRepository {
	return &AddressRepository{db: db}
}

// Exists reports whether the customer already saved an address with the same
// dedup key.
func (r *AddressRepository) Exists(ctx context.Context, userID, line1, city, state, postalCode string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, addressExistsSQL, userID, line1, city, state, postalCode).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking address existence: %w", err)
	}
	return exists, nil
}

// CountByUser returns the number of saved addresses for the customer.
func (r *AddressRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, countAddressesSQL, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting addresses: %w", err)
	}
	return count, nil
}

// Create inserts a saved address.
func (r *AddressRepository) Create(ctx context.Context, a *address.Saved) error {
	_, err := r.db.Exec(ctx, insertAddressSQL,
		a.ID, a.UserID, a.Line1, a.Line2, a.City, a.State,
		a.PostalCode, a.Country, a.Phone, a.IsDefault)
	if err != nil {
		return fmt.Errorf("creating address %q: %w", a.ID, err)
	}
	return nil
}
