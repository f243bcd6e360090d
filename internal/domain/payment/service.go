package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/souq-marketplace/internal/domain/cart"
	"github.com/xenking/souq-marketplace/internal/domain/catalog"
	"github.com/xenking/souq-marketplace/internal/domain/fees"
	"github.com/xenking/souq-marketplace/internal/domain/order"
)

// ErrOrderNotPayable indicates the order is not awaiting an online payment.
var ErrOrderNotPayable = fmt.Errorf("order is not awaiting payment")

// NotCompletedError indicates a capture that did not settle.
type NotCompletedError struct {
	ExternalID string
	Status     string
}

func (e *NotCompletedError) Error() string {
	return fmt.Sprintf("payment %s not completed: status %s", e.ExternalID, e.Status)
}

// Tx bundles the repositories a payment reconciliation transaction touches.
type Tx interface {
	Orders() order.Repository
	Ledger() catalog.Ledger
	Payments() Repository
}

// UnitOfWork runs fn inside one database transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx Tx) error) error
}

// OrderPlacer persists a marketplace order; implemented by the order service.
type OrderPlacer interface {
	Place(ctx context.Context, req order.PlaceRequest) (*order.Order, error)
}

// Event is a normalized gateway webhook event.
type Event struct {
	ID       string
	Type     string
	IntentID string
	Status   string
}

// Service drives both gateway integration shapes and webhook reconciliation.
type Service struct {
	uow    UnitOfWork
	orders order.Repository
	placer OrderPlacer
	pricer *cart.Pricer
	paypal Gateway
	ziina  Gateway
}

// NewService creates the payment Service.
func NewService(uow UnitOfWork, orders order.Repository, placer OrderPlacer, pricer *cart.Pricer, paypal, ziina Gateway) *Service {
	return &Service{
		uow:    uow,
		orders: orders,
		placer: placer,
		pricer: pricer,
		paypal: paypal,
		ziina:  ziina,
	}
}

// CreatePayPalOrder prices the cart server-side and creates the gateway order.
// No marketplace order row exists yet; that only happens at capture.
func (s *Service) CreatePayPalOrder(ctx context.Context, lines []cart.Line) (*Intent, error) {
	priced, _, err := s.pricer.Price(ctx, lines)
	if err != nil {
		return nil, err
	}
	quote := fees.OnlineShipping(priced)

	return s.paypal.CreateIntent(ctx, IntentRequest{Amount: quote.Total})
}

// CapturePayPal captures the approved gateway order and, only on a completed
// capture, runs the checkout transaction with the order created directly as
// confirmed. Stock is decremented at capture time, never before.
func (s *Service) CapturePayPal(ctx context.Context, externalID string, req order.PlaceRequest) (*order.Order, error) {
	res, err := s.paypal.Capture(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if res.Status != StatusCompleted {
		return nil, &NotCompletedError{ExternalID: externalID, Status: res.Status}
	}

	req.Method = order.MethodPayPal
	req.InitialStatus = order.StatusConfirmed
	o, err := s.placer.Place(ctx, req)
	if err != nil {
		return nil, err
	}

	s.recordBestEffort(ctx, &Record{
		ID:         uuid.New().String(),
		OrderID:    o.ID,
		Gateway:    "paypal",
		ExternalID: externalID,
		Amount:     o.TotalAmount,
		Status:     StatusCompleted,
	})
	return o, nil
}

// CreateZiinaIntent creates a payment intent for an order already persisted in
// pending_payment. The caller redirects the customer to the returned URL.
func (s *Service) CreateZiinaIntent(ctx context.Context, customerID, orderID string) (*Intent, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, order.ErrNotOwner
	}
	if o.Status != order.StatusPendingPayment {
		return nil, ErrOrderNotPayable
	}

	intent, err := s.ziina.CreateIntent(ctx, IntentRequest{
		Amount:    o.TotalAmount,
		Reference: o.ID,
	})
	if err != nil {
		return nil, err
	}

	s.recordBestEffort(ctx, &Record{
		ID:         uuid.New().String(),
		OrderID:    o.ID,
		Gateway:    "ziina",
		ExternalID: intent.ExternalID,
		Amount:     o.TotalAmount,
		Status:     intent.Status,
	})
	return intent, nil
}

// PollZiina fetches the intent's current gateway state and applies it locally.
func (s *Service) PollZiina(ctx context.Context, intentID string) (*CaptureResult, error) {
	res, err := s.ziina.Capture(ctx, intentID)
	if err != nil {
		return nil, err
	}

	if err := s.uow.Do(ctx, func(tx Tx) error {
		return applyGatewayStatus(ctx, tx, "ziina", intentID, res.Status)
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// HandleZiinaWebhook applies an asynchronous status event. Processing is
// idempotent: the event id is recorded first and duplicates are dropped.
// Callers always answer the gateway with success; errors here are for logs.
func (s *Service) HandleZiinaWebhook(ctx context.Context, ev Event) error {
	return s.uow.Do(ctx, func(tx Tx) error {
		fresh, err := tx.Payments().MarkEventProcessed(ctx, "ziina", ev.ID)
		if err != nil {
			return errors.Wrap(err, "record webhook event")
		}
		if !fresh {
			return nil // duplicate delivery
		}
		return applyGatewayStatus(ctx, tx, "ziina", ev.IntentID, mapZiinaStatus(ev.Status))
	})
}

// applyGatewayStatus moves the payment record and, when the order is still
// awaiting payment, the order itself to the gateway-reported state.
func applyGatewayStatus(ctx context.Context, tx Tx, gateway, externalID, status string) error {
	if status == StatusCreated {
		return nil // nothing settled yet
	}

	rec, err := tx.Payments().GetByExternalID(ctx, gateway, externalID)
	if err != nil {
		return err
	}
	if err := tx.Payments().UpdateStatus(ctx, rec.ID, status); err != nil {
		return errors.Wrap(err, "update payment status")
	}

	o, err := tx.Orders().GetByID(ctx, rec.OrderID)
	if err != nil {
		return err
	}
	if o.Status != order.StatusPendingPayment {
		return nil // already settled by an earlier poll or webhook
	}

	next := order.StatusConfirmed
	if status == StatusFailed {
		next = order.StatusPaymentFailed
	}
	return tx.Orders().UpdateStatus(ctx, o.ID, next)
}

// recordBestEffort persists a payment record, logging instead of failing: the
// parent operation already succeeded and must not be rolled back over
// bookkeeping.
func (s *Service) recordBestEffort(ctx context.Context, rec *Record) {
	err := s.uow.Do(ctx, func(tx Tx) error {
		return tx.Payments().Create(ctx, rec)
	})
	if err != nil {
		zctx.From(ctx).Warn("payment record insert failed",
			zap.String("order_id", rec.OrderID),
			zap.String("gateway", rec.Gateway),
			zap.Error(err),
		)
	}
}

// Reconciler restocks orders stranded in pending_payment. The Ziina path
// decrements stock at order creation, so an abandoned payment leaves stock
// held until this compensating transaction releases it.
type Reconciler struct {
	uow     UnitOfWork
	orders  order.Repository
	timeout time.Duration
}

// NewReconciler creates a Reconciler. timeout is how long an order may sit in
// pending_payment before it is failed and restocked.
func NewReconciler(uow UnitOfWork, orders order.Repository, timeout time.Duration) *Reconciler {
	return &Reconciler{uow: uow, orders: orders, timeout: timeout}
}

// Run reconciles on every tick until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce fails and restocks every stale pending_payment order, each in
// its own compensating transaction.
func (r *Reconciler) ReconcileOnce(ctx context.Context) {
	lg := zctx.From(ctx)

	stale, err := r.orders.ListStalePendingPayment(ctx, time.Now().Add(-r.timeout))
	if err != nil {
		lg.Error("list stale pending orders", zap.Error(err))
		return
	}

	for _, o := range stale {
		if err := r.reconcileOrder(ctx, o.ID); err != nil {
			lg.Error("reconcile order", zap.String("order_id", o.ID), zap.Error(err))
			continue
		}
		lg.Info("restocked abandoned order", zap.String("order_id", o.ID))
	}
}

func (r *Reconciler) reconcileOrder(ctx context.Context, orderID string) error {
	return r.uow.Do(ctx, func(tx Tx) error {
		o, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		// Re-check under the transaction; a webhook may have settled it.
		if o.Status != order.StatusPendingPayment {
			return nil
		}

		for _, it := range o.Items {
			if it.SelectedSize == "" {
				continue
			}
			if err := tx.Ledger().AdjustStock(ctx, it.ProductID, it.SelectedSize, it.SelectedColour, it.Quantity); err != nil {
				return errors.Wrapf(err, "restock product %s", it.ProductID)
			}
		}
		return tx.Orders().UpdateStatus(ctx, o.ID, order.StatusPaymentFailed)
	})
}
