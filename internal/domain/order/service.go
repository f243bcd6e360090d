package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/souq-marketplace/internal/domain/address"
	"github.com/xenking/souq-marketplace/internal/domain/cart"
	"github.com/xenking/souq-marketplace/internal/domain/catalog"
	"github.com/xenking/souq-marketplace/internal/domain/fees"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyItems     = fmt.Errorf("items required")
	ErrInvalidMethod  = fmt.Errorf("unknown payment method")
	ErrMissingAddress = fmt.Errorf("shipping address required")
	ErrItemNotFound   = fmt.Errorf("order item not found")
)

// CODNotEligibleError rejects a COD checkout because at least one line is not
// COD-eligible. Items carries the disqualifying lines for the client UI.
type CODNotEligibleError struct {
	Items []cart.PricedLine
}

func (e *CODNotEligibleError) Error() string {
	return fmt.Sprintf("%d item(s) not eligible for cash on delivery", len(e.Items))
}

// Tx bundles the repositories participating in one database transaction.
type Tx interface {
	Orders() Repository
	Ledger() catalog.Ledger
}

// UnitOfWork runs fn inside a single transaction: fn returning an error rolls
// everything back, nil commits.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx Tx) error) error
}

// AddressSync saves a shipping address after a successful checkout.
type AddressSync interface {
	Sync(ctx context.Context, userID string, a address.Saved) error
}

// Actor identifies the authenticated user driving a status change.
type Actor struct {
	ID   string
	Role string
}

const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
)

// Per-actor status allow-lists. No transition graph is enforced beyond these.
var (
	customerStatuses = map[Status]bool{
		StatusCancelled: true,
		StatusConfirmed: true,
	}
	sellerStatuses = map[Status]bool{
		StatusConfirmed:     true,
		StatusCancelled:     true,
		StatusDelivered:     true,
		StatusPaymentFailed: true,
	}
)

// PlaceRequest is the input for a checkout attempt.
type PlaceRequest struct {
	CustomerID string
	Lines      []cart.Line
	Address    Address
	Method     PaymentMethod
	// InitialStatus overrides the method's default starting status. The
	// PayPal capture path sets StatusConfirmed here because the gateway has
	// already settled the payment.
	InitialStatus Status
}

// ItemEdit is a seller correction to one order line. Nil fields are left
// unchanged.
type ItemEdit struct {
	ItemID    string
	UnitPrice *decimal.Decimal
	Quantity  *int
}

// Service coordinates checkout: validation, pricing, fee policy, atomic stock
// decrement, persistence, and the non-fatal address-book side effect.
type Service struct {
	uow       UnitOfWork
	orders    Repository
	pricer    *cart.Pricer
	addresses AddressSync
}

// NewService creates the order Service.
func NewService(uow UnitOfWork, orders Repository, pricer *cart.Pricer, addresses AddressSync) *Service {
	return &Service{
		uow:       uow,
		orders:    orders,
		pricer:    pricer,
		addresses: addresses,
	}
}

// Place runs the checkout transaction. All writes happen inside one unit of
// work: any stock or persistence failure rolls back the whole order, so no
// partial order or partial decrement ever survives. The COD eligibility gate
// runs before the transaction opens, so an ineligible cart writes nothing.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyItems
	}
	if !req.Method.Valid() {
		return nil, ErrInvalidMethod
	}
	if req.Address.Line1 == "" || req.Address.City == "" {
		return nil, ErrMissingAddress
	}

	// Authoritative pricing; client-supplied prices never reach this point.
	priced, _, err := s.pricer.Price(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	codFee, shippingFee := decimal.Zero, decimal.Zero
	var total decimal.Decimal
	if req.Method == MethodCOD {
		q := fees.COD(priced)
		if !q.Eligible {
			return nil, &CODNotEligibleError{Items: q.NonCODItems}
		}
		codFee, total = q.Fee, q.Total
	} else {
		q := fees.OnlineShipping(priced)
		shippingFee, total = q.Fee, q.Total
	}

	status, err := initialStatus(req.Method, req.InitialStatus)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:              uuid.New().String(),
		CustomerID:      req.CustomerID,
		TotalAmount:     total,
		CODFee:          codFee,
		ShippingFee:     shippingFee,
		Status:          status,
		PaymentMethod:   req.Method,
		ShippingAddress: req.Address,
	}

	err = s.uow.Do(ctx, func(tx Tx) error {
		// Validate live availability first so the error names the offending
		// line before anything is written.
		for _, pl := range priced {
			if pl.SelectedSize == "" {
				continue // product without variants, no ledger row
			}
			av, err := tx.Ledger().Availability(ctx, pl.ProductID, pl.SelectedSize, pl.SelectedColour)
			if err != nil {
				return err
			}
			if av.Quantity < pl.Quantity {
				return &catalog.InsufficientStockError{
					ProductID: pl.ProductID,
					Name:      pl.Name,
					Size:      pl.SelectedSize,
					Colour:    pl.SelectedColour,
					Requested: pl.Quantity,
					Available: av.Quantity,
				}
			}
		}

		if err := tx.Orders().Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, pl := range priced {
			it := &Item{
				ID:             uuid.New().String(),
				OrderID:        o.ID,
				ProductID:      pl.ProductID,
				Name:           pl.Name,
				SelectedSize:   pl.SelectedSize,
				SelectedColour: pl.SelectedColour,
				Quantity:       pl.Quantity,
				UnitPrice:      pl.UnitPrice,
				Total:          pl.Subtotal(),
			}
			if err := tx.Orders().CreateItem(ctx, it); err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			o.Items = append(o.Items, *it)

			if pl.SelectedSize != "" {
				// The decrement re-checks quantity >= n atomically, closing
				// the race window between the check above and this write.
				if err := tx.Ledger().AdjustStock(ctx, pl.ProductID, pl.SelectedSize, pl.SelectedColour, -pl.Quantity); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Address-book upkeep happens after commit and never fails the order.
	if err := s.addresses.Sync(ctx, req.CustomerID, address.Saved{
		Line1:      req.Address.Line1,
		Line2:      req.Address.Line2,
		City:       req.Address.City,
		State:      req.Address.State,
		PostalCode: req.Address.PostalCode,
		Country:    req.Address.Country,
		Phone:      req.Address.Phone,
	}); err != nil {
		zctx.From(ctx).Warn("address sync failed",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}

	return o, nil
}

func initialStatus(m PaymentMethod, override Status) (Status, error) {
	def := StatusPending
	if m.Online() {
		def = StatusPendingPayment
	}
	switch override {
	case "":
		return def, nil
	case StatusPending, StatusPendingPayment:
		return def, nil
	case StatusConfirmed:
		if !m.Online() {
			return "", &StatusNotAllowedError{Status: override, Role: RoleCustomer}
		}
		return StatusConfirmed, nil
	default:
		return "", &StatusNotAllowedError{Status: override, Role: RoleCustomer}
	}
}

// Get returns one of the customer's orders, enforcing ownership.
func (s *Service) Get(ctx context.Context, customerID, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, ErrNotOwner
	}
	return o, nil
}

// List returns the customer's orders, newest first.
func (s *Service) List(ctx context.Context, customerID string) ([]Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

// UpdateStatus applies a status change after verifying ownership and the
// actor's allow-list. No transition graph is enforced beyond the allow-list.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, orderID string, st Status) (*Order, error) {
	allowed := customerStatuses
	if actor.Role == RoleSeller {
		allowed = sellerStatuses
	}
	if !allowed[st] {
		return nil, &StatusNotAllowedError{Status: st, Role: actor.Role}
	}

	var updated *Order
	err := s.uow.Do(ctx, func(tx Tx) error {
		o, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		switch actor.Role {
		case RoleSeller:
			owns, err := tx.Orders().SellerOwns(ctx, orderID, actor.ID)
			if err != nil {
				return err
			}
			if !owns {
				return ErrNotOwner
			}
		default:
			if o.CustomerID != actor.ID {
				return ErrNotOwner
			}
		}

		if err := tx.Orders().UpdateStatus(ctx, orderID, st); err != nil {
			return err
		}
		o.Status = st
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// EditItems applies seller corrections to order lines and recomputes the line
// and order totals in the same transaction. Quantity corrections feed back
// into the variant ledger so seller-side fixes keep stock honest.
func (s *Service) EditItems(ctx context.Context, sellerID, orderID string, edits []ItemEdit) (*Order, error) {
	var updated *Order
	err := s.uow.Do(ctx, func(tx Tx) error {
		owns, err := tx.Orders().SellerOwns(ctx, orderID, sellerID)
		if err != nil {
			return err
		}
		if !owns {
			return ErrNotOwner
		}

		o, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, edit := range edits {
			idx := -1
			for i := range o.Items {
				if o.Items[i].ID == edit.ItemID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return ErrItemNotFound
			}
			it := &o.Items[idx]

			if edit.UnitPrice != nil {
				it.UnitPrice = *edit.UnitPrice
				it.PriceEdited = true
			}
			if edit.Quantity != nil && *edit.Quantity != it.Quantity {
				delta := it.Quantity - *edit.Quantity
				it.Quantity = *edit.Quantity
				it.QuantityEdited = true
				if it.SelectedSize != "" {
					if err := tx.Ledger().AdjustStock(ctx, it.ProductID, it.SelectedSize, it.SelectedColour, delta); err != nil {
						return err
					}
				}
			}
			it.Total = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
			it.EditedAt = &now

			if err := tx.Orders().UpdateItem(ctx, it); err != nil {
				return fmt.Errorf("update item %s: %w", it.ID, err)
			}
		}

		total := o.CODFee.Add(o.ShippingFee)
		for _, it := range o.Items {
			total = total.Add(it.Total)
		}
		total = total.Round(2)
		if err := tx.Orders().UpdateTotal(ctx, orderID, total); err != nil {
			return err
		}
		o.TotalAmount = total
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
