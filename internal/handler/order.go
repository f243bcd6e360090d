package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"

	"github.com/xenking/souq-marketplace/internal/domain/cart"
	"github.com/xenking/souq-marketplace/internal/domain/fees"
	"github.com/xenking/souq-marketplace/internal/domain/order"
)

type itemRequest struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	SelectedSize   string `json:"selectedSize"`
	SelectedColour string `json:"selectedColour"`
}

func toLines(items []itemRequest) []cart.Line {
	lines := make([]cart.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, cart.Line{
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			SelectedSize:   it.SelectedSize,
			SelectedColour: it.SelectedColour,
		})
	}
	return lines
}

type addressRequest struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

func (a addressRequest) toDomain() order.Address {
	return order.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

type orderResponse struct {
	ID              string              `json:"id"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	CODFee          decimal.Decimal     `json:"cod_fee"`
	ShippingFee     decimal.Decimal     `json:"shipping_fee"`
	Status          order.Status        `json:"status"`
	PaymentMethod   order.PaymentMethod `json:"payment_method"`
	ShippingAddress order.Address       `json:"shipping_address"`
	Items           []itemResponse      `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
}

type itemResponse struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	SelectedSize   string          `json:"selectedSize,omitempty"`
	SelectedColour string          `json:"selectedColour,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		TotalAmount:     o.TotalAmount,
		CODFee:          o.CODFee,
		ShippingFee:     o.ShippingFee,
		Status:          o.Status,
		PaymentMethod:   o.PaymentMethod,
		ShippingAddress: o.ShippingAddress,
		Items:           make([]itemResponse, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, itemResponse{
			ID:             it.ID,
			ProductID:      it.ProductID,
			Name:           it.Name,
			SelectedSize:   it.SelectedSize,
			SelectedColour: it.SelectedColour,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Total:          it.Total,
		})
	}
	return resp
}

type calculateRequest struct {
	Items []itemRequest `json:"items"`
}

// calculateCOD prices the cart and quotes the Cash-on-Delivery surcharge.
func (h *Handler) calculateCOD(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req calculateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	priced, _, err := h.pricer.Price(r.Context(), toLines(req.Items))
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := fees.COD(priced)
	items := make([]nonCODItem, 0, len(q.NonCODItems))
	for _, it := range q.NonCODItems {
		items = append(items, nonCODItem{ProductID: it.ProductID, Name: it.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subtotal":    q.Subtotal,
		"codFee":      q.Fee,
		"total":       q.Total,
		"codEligible": q.Eligible,
		"nonCodItems": items,
	})
}

// calculateShipping prices the cart and quotes the online shipping surcharge.
func (h *Handler) calculateShipping(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req calculateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	priced, _, err := h.pricer.Price(r.Context(), toLines(req.Items))
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := fees.OnlineShipping(priced)
	writeJSON(w, http.StatusOK, map[string]any{
		"subtotal":    q.Subtotal,
		"shippingFee": q.Fee,
		"total":       q.Total,
	})
}

type placeOrderRequest struct {
	Items           []itemRequest  `json:"items"`
	ShippingAddress addressRequest `json:"shipping_address"`
	PaymentMethod   string         `json:"payment_method"`
	Status          string         `json:"status"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := ActorFromContext(r.Context())

	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.Place(r.Context(), order.PlaceRequest{
		CustomerID:    actor.ID,
		Lines:         toLines(req.Items),
		Address:       req.ShippingAddress.toDomain(),
		Method:        order.PaymentMethod(req.PaymentMethod),
		InitialStatus: order.Status(req.Status),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"order": toOrderResponse(o)})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := ActorFromContext(r.Context())

	orders, err := h.orders.List(r.Context(), actor.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": resp})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := ActorFromContext(r.Context())

	o, err := h.orders.Get(r.Context(), actor.ID, ps.ByName("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": toOrderResponse(o)})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := ActorFromContext(r.Context())

	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), actor, ps.ByName("id"), order.Status(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": toOrderResponse(o)})
}
