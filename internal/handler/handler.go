// Package handler exposes the marketplace checkout API over REST.
package handler

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/xenking/souq-marketplace/internal/domain/cart"
	"github.com/xenking/souq-marketplace/internal/domain/order"
	"github.com/xenking/souq-marketplace/internal/domain/payment"
	"github.com/xenking/souq-marketplace/pkg/health"
)

// OrderService is the checkout coordinator surface the handlers need.
type OrderService interface {
	Place(ctx context.Context, req order.PlaceRequest) (*order.Order, error)
	Get(ctx context.Context, customerID, orderID string) (*order.Order, error)
	List(ctx context.Context, customerID string) ([]order.Order, error)
	UpdateStatus(ctx context.Context, actor order.Actor, orderID string, st order.Status) (*order.Order, error)
	EditItems(ctx context.Context, sellerID, orderID string, edits []order.ItemEdit) (*order.Order, error)
}

// PaymentService is the gateway integration surface the handlers need.
type PaymentService interface {
	CreatePayPalOrder(ctx context.Context, lines []cart.Line) (*payment.Intent, error)
	CapturePayPal(ctx context.Context, externalID string, req order.PlaceRequest) (*order.Order, error)
	CreateZiinaIntent(ctx context.Context, customerID, orderID string) (*payment.Intent, error)
	PollZiina(ctx context.Context, intentID string) (*payment.CaptureResult, error)
	HandleZiinaWebhook(ctx context.Context, ev payment.Event) error
}

// Handler wires the domain services into HTTP routes.
type Handler struct {
	orders   OrderService
	payments PaymentService
	pricer   *cart.Pricer
	auth     *Authenticator
	health   *health.Health
}

// New creates the Handler.
func New(orders OrderService, payments PaymentService, pricer *cart.Pricer, auth *Authenticator, h *health.Health) *Handler {
	return &Handler{
		orders:   orders,
		payments: payments,
		pricer:   pricer,
		auth:     auth,
		health:   h,
	}
}

// Routes builds the router. Calculate endpoints and the Ziina webhook are
// public; everything else under /api requires a bearer token.
func (h *Handler) Routes() *httprouter.Router {
	r := httprouter.New()

	r.HandlerFunc(http.MethodGet, "/livez", h.health.LiveEndpoint)
	r.HandlerFunc(http.MethodGet, "/readyz", h.health.ReadyEndpoint)

	r.POST("/api/orders/calculate-cod", h.calculateCOD)
	r.POST("/api/orders/calculate-shipping", h.calculateShipping)

	r.POST("/api/orders", h.auth.Require(order.RoleCustomer, h.placeOrder))
	r.GET("/api/orders", h.auth.Require(order.RoleCustomer, h.listOrders))
	r.GET("/api/orders/:id", h.auth.Require(order.RoleCustomer, h.getOrder))
	r.PATCH("/api/orders/:id/status", h.auth.Require(order.RoleCustomer, h.updateOrderStatus))

	r.POST("/api/paypal/create", h.auth.Require(order.RoleCustomer, h.createPayPalOrder))
	r.POST("/api/paypal/capture/:orderId", h.auth.Require(order.RoleCustomer, h.capturePayPal))

	r.POST("/api/ziina/payment-intent", h.auth.Require(order.RoleCustomer, h.createZiinaIntent))
	r.GET("/api/ziina/payment-intent/:id", h.auth.Require(order.RoleCustomer, h.pollZiinaIntent))
	r.POST("/api/ziina/webhook", h.ziinaWebhook)

	r.PATCH("/api/seller/orders/:id/status", h.auth.Require(order.RoleSeller, h.sellerUpdateStatus))
	r.PATCH("/api/seller/orders/:id/details", h.auth.Require(order.RoleSeller, h.sellerEditItems))

	return r
}
