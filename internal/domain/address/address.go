// Package address maintains the customer's saved address book as a side
// effect of order placement.
package address

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// MaxSaved caps the number of saved addresses per customer.
const MaxSaved = 6

// Saved is a customer's stored shipping address. Dedup key is
// (Line1, City, State, PostalCode).
type Saved struct {
	ID         string
	UserID     string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
	IsDefault  bool
	CreatedAt  time.Time
}

// Repository defines persistence for saved addresses.
type Repository interface {
	// Exists reports whether the customer already has an address matching the
	// dedup key.
	Exists(ctx context.Context, userID, line1, city, state, postalCode string) (bool, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, a *Saved) error
}

// Synchronizer saves a shipping address opportunistically after checkout.
type Synchronizer struct {
	repo Repository
}

// NewSynchronizer creates a Synchronizer backed by the given repository.
func NewSynchronizer(repo Repository) *Synchronizer {
	return &Synchronizer{repo: repo}
}

// Sync inserts the address as a non-default entry unless an identical one
// already exists or the customer is at the cap. Callers treat any returned
// error as non-fatal: checkout never fails on address-book upkeep.
func (s *Synchronizer) Sync(ctx context.Context, userID string, a Saved) error {
	exists, err := s.repo.Exists(ctx, userID, a.Line1, a.City, a.State, a.PostalCode)
	if err != nil {
		return errors.Wrap(err, "check existing address")
	}
	if exists {
		return nil
	}

	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "count addresses")
	}
	if count >= MaxSaved {
		return nil
	}

	a.ID = uuid.New().String()
	a.UserID = userID
	a.IsDefault = false
	if err := s.repo.Create(ctx, &a); err != nil {
		return errors.Wrap(err, "save address")
	}
	return nil
}
