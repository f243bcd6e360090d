//go:build integration

package integration

import (
	"net/http"
	"strconv"
	"testing"
)

// num parses a decimal JSON string; amounts serialize as quoted numbers whose
// textual form depends on scale ("98" vs "98.00").
func num(t *testing.T, s string) float64 {
	t.Helper()
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		t.Fatalf("parse amount %q: %v", s, err)
	}
	return f
}

func shippingAddress() map[string]string {
	return map[string]string{
		"line1":       "Villa 5, Palm Street",
		"city":        "Dubai",
		"state":       "Dubai",
		"postal_code": "00000",
	}
}

func TestHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		resp := doRequest(t, http.MethodGet, path, nil, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestCalculateCODQuote(t *testing.T) {
	// 2 x Oud Lounge T-Shirt S black at 49.00 = 98.00, COD fee 10% = 9.80.
	resp := doRequest(t, http.MethodPost, "/api/orders/calculate-cod",
		items(item("prod-oud-tee", 2, "S", "black")), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	q := decodeJSON[quoteResponse](t, resp)
	if num(t, q.Subtotal) != 98 || num(t, q.CODFee) != 9.8 {
		t.Errorf("quote = %s + %s, want 98 + 9.8", q.Subtotal, q.CODFee)
	}
	if !q.CODEligible {
		t.Error("all-eligible cart must be COD eligible")
	}
}

func TestCalculateCODFlagsIneligibleLines(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders/calculate-cod",
		items(
			item("prod-oud-tee", 1, "S", "black"),
			item("prod-desert-sneaker", 1, "42", "white"),
		), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	q := decodeJSON[quoteResponse](t, resp)
	if q.CODEligible {
		t.Error("cart with a non-COD sneaker must not be COD eligible")
	}
}

func TestOrdersRequireAuth(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", items(), "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCODCheckoutFlow(t *testing.T) {
	bearer := token(t, "customer-amira", "customer")

	body := items(item("prod-oud-tee", 2, "M", "black"))
	body["shipping_address"] = shippingAddress()
	body["payment_method"] = "cod"

	resp := doRequest(t, http.MethodPost, "/api/orders", body, bearer)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	env := decodeJSON[orderEnvelope](t, resp)
	o := env.Order
	if o.Status != "pending" {
		t.Errorf("status = %s, want pending", o.Status)
	}
	// 2 x 49 = 98, COD fee 9.80.
	if num(t, o.TotalAmount) != 107.8 {
		t.Errorf("total = %s, want 107.8", o.TotalAmount)
	}
	if len(o.Items) != 1 || num(t, o.Items[0].UnitPrice) != 49 {
		t.Errorf("items = %+v, want one line at catalog price 49", o.Items)
	}

	// The order shows up in the customer's list and detail views.
	resp = doRequest(t, http.MethodGet, "/api/orders/"+o.ID, nil, bearer)
	got := decodeJSON[orderEnvelope](t, resp)
	if got.Order.ID != o.ID {
		t.Errorf("fetched order %s, want %s", got.Order.ID, o.ID)
	}

	// Another customer cannot read it.
	resp = doRequest(t, http.MethodGet, "/api/orders/"+o.ID, nil, token(t, "customer-omar", "customer"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("cross-customer read = %d, want 403", resp.StatusCode)
	}
}

func TestCheckoutDepletesStockAtomically(t *testing.T) {
	bearer := token(t, "customer-omar", "customer")

	// Seeded L/sand has 7 units. Order 5, then 5 again: the second must fail
	// whole, leaving the 2 remaining units intact for a final order of 2.
	place := func(qty int) *http.Response {
		body := items(item("prod-oud-tee", qty, "L", "sand"))
		body["shipping_address"] = shippingAddress()
		body["payment_method"] = "cod"
		return doRequest(t, http.MethodPost, "/api/orders", body, bearer)
	}

	resp := place(5)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first order = %d, want 201", resp.StatusCode)
	}

	resp = place(5)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversell = %d, want 400", resp.StatusCode)
	}
	fail := decodeJSON[errorResponse](t, resp)
	if len(fail.Errors) != 1 || fail.Errors[0].Reason != "insufficient_stock" {
		t.Fatalf("errors = %+v, want one insufficient_stock entry", fail.Errors)
	}
	if fail.Errors[0].Available != 2 {
		t.Errorf("available = %d, want 2 (failed order must not decrement)", fail.Errors[0].Available)
	}

	resp = place(2)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("remaining stock order = %d, want 201", resp.StatusCode)
	}
}

func TestCODRejectedForIneligibleCart(t *testing.T) {
	bearer := token(t, "customer-amira", "customer")

	body := items(item("prod-desert-sneaker", 1, "41", "white"))
	body["shipping_address"] = shippingAddress()
	body["payment_method"] = "cod"

	resp := doRequest(t, http.MethodPost, "/api/orders", body, bearer)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	fail := decodeJSON[errorResponse](t, resp)
	if len(fail.NonCODItems) != 1 || fail.NonCODItems[0].ProductID != "prod-desert-sneaker" {
		t.Errorf("nonCodItems = %+v, want the sneaker flagged", fail.NonCODItems)
	}
}

func TestSellerStatusUpdate(t *testing.T) {
	bearer := token(t, "customer-amira", "customer")

	body := items(item("prod-oud-tee", 1, "S", "black"))
	body["shipping_address"] = shippingAddress()
	body["payment_method"] = "cod"

	resp := doRequest(t, http.MethodPost, "/api/orders", body, bearer)
	env := decodeJSON[orderEnvelope](t, resp)

	// The selling seller may mark it delivered.
	resp = doRequest(t, http.MethodPatch, "/api/seller/orders/"+env.Order.ID+"/status",
		map[string]string{"status": "delivered"}, token(t, "seller-khalid", "seller"))
	updated := decodeJSON[orderEnvelope](t, resp)
	if updated.Order.Status != "delivered" {
		t.Errorf("status = %s, want delivered", updated.Order.Status)
	}

	// An unrelated seller may not touch it.
	resp = doRequest(t, http.MethodPatch, "/api/seller/orders/"+env.Order.ID+"/status",
		map[string]string{"status": "cancelled"}, token(t, "seller-noor", "seller"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("unrelated seller = %d, want 403", resp.StatusCode)
	}
}

func TestZiinaWebhookAlwaysAccepted(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/ziina/webhook", map[string]any{
		"id":   "evt-unknown-intent",
		"type": "payment_intent.status.updated",
		"data": map[string]string{"payment_intent_id": "zi-does-not-exist", "status": "completed"},
	}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("webhook = %d, want 200 even for unknown intents", resp.StatusCode)
	}
}
