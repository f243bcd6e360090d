// Package fees implements the payment-method surcharge policies. All
// functions are pure: no I/O, no clock, amounts in AED.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/souq-marketplace/internal/domain/cart"
)

var (
	codFreeThreshold = decimal.NewFromInt(100)
	codRate          = decimal.RequireFromString("0.10")
	codMinFee        = decimal.NewFromInt(5)
	codMaxFee        = decimal.NewFromInt(10)

	onlineFlatFee       = decimal.NewFromInt(5)
	onlineFreeThreshold = decimal.NewFromInt(50)
)

// Quote is a computed fee over a cart subtotal.
type Quote struct {
	Subtotal decimal.Decimal
	Fee      decimal.Decimal
	Total    decimal.Decimal
}

// CODQuote extends Quote with the eligibility verdict. An order is COD-eligible
// only when every line is; NonCODItems lists the disqualifying lines.
type CODQuote struct {
	Quote
	Eligible    bool
	NonCODItems []cart.PricedLine
}

// COD computes the Cash-on-Delivery surcharge. Fee is zero at or above 100,
// otherwise 10% of the subtotal clamped to [5, 10].
func COD(lines []cart.PricedLine) CODQuote {
	subtotal := decimal.Zero
	var nonCOD []cart.PricedLine
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
		if !l.CODEligible {
			nonCOD = append(nonCOD, l)
		}
	}

	q := CODQuote{
		Quote:       Quote{Subtotal: subtotal},
		Eligible:    len(nonCOD) == 0,
		NonCODItems: nonCOD,
	}

	if subtotal.LessThan(codFreeThreshold) {
		fee := subtotal.Mul(codRate)
		if fee.LessThan(codMinFee) {
			fee = codMinFee
		}
		if fee.GreaterThan(codMaxFee) {
			fee = codMaxFee
		}
		q.Fee = fee.Round(2)
	} else {
		q.Fee = decimal.Zero
	}

	q.Total = subtotal.Add(q.Fee).Round(2)
	return q
}

// OnlineShipping computes the flat online-payment shipping surcharge: 5 below
// a subtotal of 50, zero at 50 and above.
func OnlineShipping(lines []cart.PricedLine) Quote {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}

	fee := decimal.Zero
	if subtotal.LessThan(onlineFreeThreshold) {
		fee = onlineFlatFee
	}

	return Quote{
		Subtotal: subtotal,
		Fee:      fee,
		Total:    subtotal.Add(fee).Round(2),
	}
}
