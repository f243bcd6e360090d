package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"

	"github.com/xenking/souq-marketplace/internal/domain/order"
)

func (h *Handler) sellerUpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

type itemEditRequest struct {
	ItemID    string           `json:"item_id"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Quantity  *int             `json:"quantity"`
}

type editItemsRequest struct {
	Items []itemEditRequest `json:"items"`
}

// sellerEditItems applies price and quantity corrections to order lines. The
// order total is recomputed server-side; quantity changes flow back into the
// variant ledger.
func (h *Handler) sellerEditItems(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, _ := ActorFromContext(r.Context())

	var req editItemsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeErrorCode(w, http.StatusBadRequest, "items required")
		return
	}

	edits := make([]order.ItemEdit, 0, len(req.Items))
	for _, it := range req.Items {
		edits = append(edits, order.ItemEdit{
			ItemID:    it.ItemID,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}

	o, err := h.orders.EditItems(r.Context(), actor.ID, ps.ByName("id"), edits)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": toOrderResponse(o)})
}
