// Package postgres implements the domain repositories and the transactional
// unit of work on top of pgx.
package postgres

import (
	"context"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/souq-marketplace/db"
	"github.com/xenking/souq-marketplace/internal/domain/catalog"
	"github.com/xenking/souq-marketplace/internal/domain/order"
	"github.com/xenking/souq-marketplace/internal/domain/payment"
)

// DB is the subset of pgx operations the repositories need; both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same repository code runs
// pooled or inside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Store owns the pool and hands out repositories and units of work.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Products returns the pooled (non-transactional) product repository.
func (s *Store) Products() *ProductRepository { return NewProductRepository(s.pool) }

// Orders returns the pooled order repository.
func (s *Store) Orders() *OrderRepository { return NewOrderRepository(s.pool) }

// Addresses returns the pooled address repository.
func (s *Store) Addresses() *AddressRepository { return NewAddressRepository(s.pool) }

// Payments returns the pooled payment repository.
func (s *Store) Payments() *PaymentRepository { return NewPaymentRepository(s.pool) }

// Tx bundles transaction-scoped repositories. It satisfies both order.Tx and
// payment.Tx.
type Tx struct {
	orders   *OrderRepository
	products *ProductRepository
	payments *PaymentRepository
}

func (t *Tx) Orders() order.Repository     { return t.orders }
func (t *Tx) Ledger() catalog.Ledger       { return t.products }
func (t *Tx) Payments() payment.Repository { return t.payments }

var (
	_ order.Tx   = (*Tx)(nil)
	_ payment.Tx = (*Tx)(nil)
)

// do begins a transaction, runs fn over transaction-scoped repositories, and
// commits; any error rolls the whole transaction back.
func (s *Store) do(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	bundle := &Tx{
		orders:   NewOrderRepository(tx),
		products: NewProductRepository(tx),
		payments: NewPaymentRepository(tx),
	}
	if err := fn(bundle); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type orderUnitOfWork struct{ s *Store }

func (u orderUnitOfWork) Do(ctx context.Context, fn func(tx order.Tx) error) error {
	return u.s.do(ctx, func(tx *Tx) error { return fn(tx) })
}

type paymentUnitOfWork struct{ s *Store }

func (u paymentUnitOfWork) Do(ctx context.Context, fn func(tx payment.Tx) error) error {
	return u.s.do(ctx, func(tx *Tx) error { return fn(tx) })
}

// OrderUnitOfWork returns the unit of work the order coordinator runs in.
func (s *Store) OrderUnitOfWork() order.UnitOfWork { return orderUnitOfWork{s} }

// PaymentUnitOfWork returns the unit of work payment reconciliation runs in.
func (s *Store) PaymentUnitOfWork() payment.UnitOfWork { return paymentUnitOfWork{s} }
