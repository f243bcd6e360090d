package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/xenking/souq-marketplace/internal/domain/order"
	"github.com/xenking/souq-marketplace/internal/domain/payment"
)

// createPayPalOrder prices the cart and opens a gateway order. Nothing is
// persisted locally yet.
func (h *Handler) createPayPalOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req calculateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	intent, err := h.payments.CreatePayPalOrder(r.Context(), toLines(req.Items))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         intent.ExternalID,
		"approveUrl": intent.RedirectURL,
		"status":     intent.Status,
	})
}

type captureRequest struct {
	Items           []itemRequest  `json:"items"`
	ShippingAddress addressRequest `json:"shipping_address"`
}

// capturePayPal settles the approved gateway order and persists the
// marketplace order as confirmed in one shot.
func (h *Handler) capturePayPal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := ActorFromContext(r.Context())

	var req captureRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.payments.CapturePayPal(r.Context(), ps.ByName("orderId"), order.PlaceRequest{
		CustomerID: actor.ID,
		Lines:      toLines(req.Items),
		Address:    req.ShippingAddress.toDomain(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"order": toOrderResponse(o)})
}

type ziinaIntentRequest struct {
	OrderID string `json:"order_id"`
}

func (h *Handler) createZiinaIntent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := ActorFromContext(r.Context())

	var req ziinaIntentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	intent, err := h.payments.CreateZiinaIntent(r.Context(), actor.ID, req.OrderID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          intent.ExternalID,
		"redirectUrl": intent.RedirectURL,
		"status":      intent.Status,
	})
}

func (h *Handler) pollZiinaIntent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := h.payments.PollZiina(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     res.ExternalID,
		"status": res.Status,
	})
}

type ziinaWebhookRequest struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		IntentID string `json:"payment_intent_id"`
		Status   string `json:"status"`
	} `json:"data"`
}

// ziinaWebhook ingests asynchronous gateway events. The gateway always gets a
// 200 so it stops retrying; processing failures are logged and picked up by
// the next poll or the reconciler.
func (h *Handler) ziinaWebhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req ziinaWebhookRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.payments.HandleZiinaWebhook(r.Context(), payment.Event{
		ID:       req.ID,
		Type:     req.Type,
		IntentID: req.Data.IntentID,
		Status:   req.Data.Status,
	})
	if err != nil {
		zctx.From(r.Context()).Error("ziina webhook processing failed",
			zap.String("event_id", req.ID),
			zap.Error(err),
		)
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}
