package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/xenking/souq-marketplace/internal/domain/cart"
)

func line(productID string, price string, qty int, codEligible bool) cartLine {
	return cartLine{productID: productID, price: decimal.RequireFromString(price), qty: qty, cod: codEligible}
}

type cartLine struct {
	productID string
	price     decimal.Decimal
	qty       int
	cod       bool
}

func lines(ls ...cartLine) []cart.PricedLine {
	out := make([]cart.PricedLine, 0, len(ls))
	for _, l := range ls {
		out = append(out, cart.PricedLine{
			ProductID:   l.productID,
			Name:        l.productID,
			UnitPrice:   l.price,
			Quantity:    l.qty,
			CODEligible: l.cod,
		})
	}
	return out
}

func TestCODFee(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		wantFee  string
	}{
		{name: "free at threshold", subtotal: "100", wantFee: "0"},
		{name: "above threshold", subtotal: "150", wantFee: "0"},
		{name: "clamped to minimum", subtotal: "40", wantFee: "5"},
		{name: "ten percent", subtotal: "80", wantFee: "8"},
		{name: "clamped to maximum", subtotal: "99.99", wantFee: "10"},
		{name: "tiny order", subtotal: "1", wantFee: "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := COD(lines(line("p1", tt.subtotal, 1, true)))
			assert.True(t, q.Fee.Equal(decimal.RequireFromString(tt.wantFee)),
				"fee = %s, want %s", q.Fee, tt.wantFee)
			assert.True(t, q.Total.Equal(q.Subtotal.Add(q.Fee)))
			assert.True(t, q.Eligible)
		})
	}
}

func TestCODEligibility(t *testing.T) {
	q := COD(lines(
		line("p1", "30", 1, true),
		line("p2", "40", 1, false),
		line("p3", "10", 2, false),
	))

	assert.False(t, q.Eligible)
	assert.Len(t, q.NonCODItems, 2)
	assert.Equal(t, "p2", q.NonCODItems[0].ProductID)
	assert.Equal(t, "p3", q.NonCODItems[1].ProductID)
	// The fee is still quoted so the client can show what COD would cost.
	assert.True(t, q.Subtotal.Equal(decimal.NewFromInt(90)))
}

func TestCODQuantityMultiplied(t *testing.T) {
	q := COD(lines(line("p1", "25", 4, true)))
	assert.True(t, q.Subtotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, q.Fee.IsZero())
}

func TestOnlineShipping(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		wantFee  string
	}{
		{name: "free at threshold", subtotal: "50", wantFee: "0"},
		{name: "flat fee below threshold", subtotal: "49", wantFee: "5"},
		{name: "free above threshold", subtotal: "200", wantFee: "0"},
		{name: "just below", subtotal: "49.99", wantFee: "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := OnlineShipping(lines(line("p1", tt.subtotal, 1, true)))
			assert.True(t, q.Fee.Equal(decimal.RequireFromString(tt.wantFee)),
				"fee = %s, want %s", q.Fee, tt.wantFee)
			assert.True(t, q.Total.Equal(q.Subtotal.Add(q.Fee)))
		})
	}
}
