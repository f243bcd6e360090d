package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/souq-marketplace/internal/domain/cart"
	"github.com/xenking/souq-marketplace/internal/domain/catalog"
	"github.com/xenking/souq-marketplace/internal/domain/order"
	"github.com/xenking/souq-marketplace/internal/domain/payment"
)

// errorResponse is the uniform error envelope. Errors carries machine-readable
// per-line detail so the client can highlight the offending cart rows.
type errorResponse struct {
	Code        int          `json:"code"`
	Message     string       `json:"message"`
	Errors      []lineError  `json:"errors,omitempty"`
	NonCODItems []nonCODItem `json:"nonCodItems,omitempty"`
}

type lineError struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Size      string `json:"size,omitempty"`
	Colour    string `json:"colour,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
	Reason    string `json:"reason"`
}

type nonCODItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Code: code, Message: msg})
}

// writeError translates a domain error into the HTTP envelope. Validation and
// business-rule rejections answer 400 with structured detail, not-found 404,
// ownership 403, gateway failures 500 with the provider message relayed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr    *catalog.InsufficientStockError
		sizeErr     *catalog.SizeNotAvailableError
		oosErr      *cart.OutOfStockError
		codErr      *order.CODNotEligibleError
		statusErr   *order.StatusNotAllowedError
		gatewayErr  *payment.GatewayError
		notCaptured *payment.NotCompletedError
	)

	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
			Errors: []lineError{{
				ProductID: stockErr.ProductID,
				Name:      stockErr.Name,
				Size:      stockErr.Size,
				Colour:    stockErr.Colour,
				Requested: stockErr.Requested,
				Available: stockErr.Available,
				Reason:    "insufficient_stock",
			}},
		})
	case errors.As(err, &sizeErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
			Errors: []lineError{{
				ProductID: sizeErr.ProductID,
				Size:      sizeErr.Size,
				Colour:    sizeErr.Colour,
				Reason:    "size_not_available",
			}},
		})
	case errors.As(err, &oosErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
			Errors: []lineError{{
				ProductID: oosErr.ProductID,
				Name:      oosErr.Name,
				Reason:    "out_of_stock",
			}},
		})
	case errors.As(err, &codErr):
		resp := errorResponse{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		}
		for _, it := range codErr.Items {
			resp.NonCODItems = append(resp.NonCODItems, nonCODItem{ProductID: it.ProductID, Name: it.Name})
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &statusErr):
		writeErrorCode(w, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrNotOwner):
		writeErrorCode(w, http.StatusForbidden, err.Error())
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, order.ErrItemNotFound),
		errors.Is(err, payment.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidMethod),
		errors.Is(err, order.ErrMissingAddress),
		errors.Is(err, payment.ErrOrderNotPayable):
		writeErrorCode(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notCaptured):
		writeErrorCode(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &gatewayErr):
		zctx.From(r.Context()).Error("gateway failure",
			zap.String("gateway", gatewayErr.Gateway),
			zap.Error(err),
		)
		writeErrorCode(w, http.StatusInternalServerError, gatewayErr.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeErrorCode(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody parses the JSON request body into dst, answering 400 on garbage.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
